// errors/access_errors.go
package errors

import "errors"

var (
	ErrMissingIdentity   = errors.New("missing identity identifier")
	ErrMissingRequestID  = errors.New("missing request identifier")
	ErrEvaluationTimeout = errors.New("evaluation timeout")
	ErrInternalFault     = errors.New("internal evaluation error")
	ErrInvalidRequest    = errors.New("invalid access request")
	ErrAuditQueueFull    = errors.New("audit queue full")
	ErrAuditClosed       = errors.New("audit service closed")
)
