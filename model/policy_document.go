// model/policy_document.go
package model

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	sentinel_errors "github.com/dev-mohitbeniwal/sentinel/errors"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

// PolicyDocument is the JSON/YAML form of a SecurityPolicy.
type PolicyDocument struct {
	ID           string              `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string              `json:"name" yaml:"name"`
	Description  string              `json:"description,omitempty" yaml:"description,omitempty"`
	Priority     int                 `json:"priority" yaml:"priority"`
	Enabled      *bool               `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Conditions   []ConditionDocument `json:"conditions" yaml:"conditions"`
	Actions      []ActionDocument    `json:"actions" yaml:"actions"`
	Version      int                 `json:"version,omitempty" yaml:"version,omitempty"`
	LastModified *time.Time          `json:"lastModified,omitempty" yaml:"lastModified,omitempty"`
}

type ConditionDocument struct {
	Type     ConditionType `json:"type" yaml:"type"`
	Field    string        `json:"field,omitempty" yaml:"field,omitempty"`
	Operator Operator      `json:"operator" yaml:"operator"`
	Value    ScalarValue   `json:"value" yaml:"value"`
	Weight   *float64      `json:"weight,omitempty" yaml:"weight,omitempty"`
}

type ActionDocument struct {
	Type       ActionType        `json:"type" yaml:"type"`
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Action parameter keys.
const (
	ParamReason        = "reason"
	ParamChallengeType = "challengeType"
	ParamLevel         = "level"
	ParamMessage       = "message"
	ParamSeverity      = "severity"
)

// ScalarValue accepts JSON strings, numbers and booleans and keeps their
// literal text.
type ScalarValue string

func (v *ScalarValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = ScalarValue(s)
		return nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return fmt.Errorf("condition value must be a scalar, got %s", text)
	}
	*v = ScalarValue(text)
	return nil
}

// ToPolicy converts the document through the builder.
func (d PolicyDocument) ToPolicy() (*SecurityPolicy, error) {
	b := NewPolicy(d.ID, d.Name).
		Description(d.Description).
		Priority(d.Priority)
	if d.Enabled != nil {
		b.Enabled(*d.Enabled)
	}

	for _, c := range d.Conditions {
		weight := 1.0
		if c.Weight != nil {
			weight = *c.Weight
		}
		b.Condition(Condition{
			Type:     ConditionType(strings.ToUpper(string(c.Type))),
			Field:    c.Field,
			Operator: Operator(strings.ToUpper(string(c.Operator))),
			Value:    string(c.Value),
			Weight:   weight,
		})
	}

	for i, a := range d.Actions {
		action, err := a.toAction()
		if err != nil {
			return nil, sentinel_errors.NewPolicyConfigError(d.ID, fmt.Sprintf("actions[%d]", i), err.Error())
		}
		b.Action(action)
	}

	p, err := b.Build()
	if err != nil {
		return nil, err
	}
	p.Version = d.Version
	return p, nil
}

func (a ActionDocument) toAction() (Action, error) {
	switch ActionType(strings.ToUpper(string(a.Type))) {
	case ActionAllow:
		return AllowAction{}, nil
	case ActionDeny:
		return DenyAction{Reason: a.Parameters[ParamReason]}, nil
	case ActionChallenge:
		return ChallengeAction{ChallengeType: a.Parameters[ParamChallengeType]}, nil
	case ActionMonitor:
		return MonitorAction{Level: pdp_model.MonitoringLevel(strings.ToUpper(a.Parameters[ParamLevel]))}, nil
	case ActionLog:
		return LogAction{Message: a.Parameters[ParamMessage]}, nil
	case ActionAlert:
		return AlertAction{Severity: a.Parameters[ParamSeverity], Message: a.Parameters[ParamMessage]}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
}

// DocumentFromPolicy renders a policy in its wire form.
func DocumentFromPolicy(p *SecurityPolicy) PolicyDocument {
	enabled := p.Enabled
	modified := p.LastModified
	doc := PolicyDocument{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Priority:     p.Priority,
		Enabled:      &enabled,
		Version:      p.Version,
		LastModified: &modified,
	}
	for _, c := range p.Conditions {
		weight := c.Weight
		doc.Conditions = append(doc.Conditions, ConditionDocument{
			Type:     c.Type,
			Field:    c.Field,
			Operator: c.Operator,
			Value:    ScalarValue(c.Value),
			Weight:   &weight,
		})
	}
	for _, a := range p.Actions {
		doc.Actions = append(doc.Actions, documentFromAction(a))
	}
	return doc
}

func documentFromAction(a Action) ActionDocument {
	switch v := a.(type) {
	case DenyAction:
		return ActionDocument{Type: ActionDeny, Parameters: nonEmpty(ParamReason, v.Reason)}
	case ChallengeAction:
		return ActionDocument{Type: ActionChallenge, Parameters: nonEmpty(ParamChallengeType, v.ChallengeType)}
	case MonitorAction:
		return ActionDocument{Type: ActionMonitor, Parameters: nonEmpty(ParamLevel, string(v.Level))}
	case LogAction:
		return ActionDocument{Type: ActionLog, Parameters: nonEmpty(ParamMessage, v.Message)}
	case AlertAction:
		params := nonEmpty(ParamSeverity, v.Severity)
		if v.Message != "" {
			if params == nil {
				params = map[string]string{}
			}
			params[ParamMessage] = v.Message
		}
		return ActionDocument{Type: ActionAlert, Parameters: params}
	default:
		return ActionDocument{Type: a.Type()}
	}
}

func nonEmpty(key, value string) map[string]string {
	if value == "" {
		return nil
	}
	return map[string]string{key: value}
}

type policyFile struct {
	Policies []PolicyDocument `yaml:"policies"`
}

// LoadPolicyDocuments reads a YAML (or JSON) file of the form
// `policies: [...]`.
func LoadPolicyDocuments(r io.Reader) ([]PolicyDocument, error) {
	var f policyFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode policy file: %w", err)
	}
	return f.Policies, nil
}

// ReadPolicies decodes a policy file and builds every policy in it. The
// first invalid policy aborts the read.
func ReadPolicies(r io.Reader) ([]*SecurityPolicy, error) {
	docs, err := LoadPolicyDocuments(r)
	if err != nil {
		return nil, err
	}
	policies := make([]*SecurityPolicy, 0, len(docs))
	for _, doc := range docs {
		p, err := doc.ToPolicy()
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}
