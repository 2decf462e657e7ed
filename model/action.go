// model/action.go
package model

import (
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

type ActionType string

const (
	ActionAllow     ActionType = "ALLOW"
	ActionDeny      ActionType = "DENY"
	ActionChallenge ActionType = "CHALLENGE"
	ActionMonitor   ActionType = "MONITOR"
	ActionLog       ActionType = "LOG"
	ActionAlert     ActionType = "ALERT"
)

// Action is a closed set of policy actions. Only the types in this file
// implement it.
type Action interface {
	Type() ActionType
	isAction()
}

type AllowAction struct{}

type DenyAction struct {
	Reason string `json:"reason,omitempty"`
}

type ChallengeAction struct {
	ChallengeType string `json:"challengeType"`
}

type MonitorAction struct {
	Level pdp_model.MonitoringLevel `json:"level"`
}

type LogAction struct {
	Message string `json:"message,omitempty"`
}

type AlertAction struct {
	Severity string `json:"severity"`
	Message  string `json:"message,omitempty"`
}

func (AllowAction) Type() ActionType     { return ActionAllow }
func (DenyAction) Type() ActionType      { return ActionDeny }
func (ChallengeAction) Type() ActionType { return ActionChallenge }
func (MonitorAction) Type() ActionType   { return ActionMonitor }
func (LogAction) Type() ActionType       { return ActionLog }
func (AlertAction) Type() ActionType     { return ActionAlert }

func (AllowAction) isAction()     {}
func (DenyAction) isAction()      {}
func (ChallengeAction) isAction() {}
func (MonitorAction) isAction()   {}
func (LogAction) isAction()       {}
func (AlertAction) isAction()     {}
