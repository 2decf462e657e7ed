// model/policy_builder.go
package model

import (
	"time"

	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

// PolicyBuilder assembles a SecurityPolicy. Nothing is validated until Build,
// which reports the first problem as a *errors.PolicyConfigError.
type PolicyBuilder struct {
	policy SecurityPolicy
}

// NewPolicy starts an enabled policy with the given id and name. The id may be
// empty; the policy service assigns one on add.
func NewPolicy(id, name string) *PolicyBuilder {
	return &PolicyBuilder{policy: SecurityPolicy{ID: id, Name: name, Enabled: true}}
}

func (b *PolicyBuilder) Description(d string) *PolicyBuilder {
	b.policy.Description = d
	return b
}

func (b *PolicyBuilder) Priority(p int) *PolicyBuilder {
	b.policy.Priority = p
	return b
}

func (b *PolicyBuilder) Enabled(enabled bool) *PolicyBuilder {
	b.policy.Enabled = enabled
	return b
}

// When adds a condition on the default attribute of its type, weight 1.
func (b *PolicyBuilder) When(t ConditionType, op Operator, value string) *PolicyBuilder {
	return b.Condition(Condition{Type: t, Operator: op, Value: value, Weight: 1})
}

// WhenField adds a condition on a specific attribute, weight 1.
func (b *PolicyBuilder) WhenField(t ConditionType, field string, op Operator, value string) *PolicyBuilder {
	return b.Condition(Condition{Type: t, Field: field, Operator: op, Value: value, Weight: 1})
}

func (b *PolicyBuilder) Condition(c Condition) *PolicyBuilder {
	b.policy.Conditions = append(b.policy.Conditions, c)
	return b
}

func (b *PolicyBuilder) Allow() *PolicyBuilder {
	return b.Action(AllowAction{})
}

func (b *PolicyBuilder) Deny(reason string) *PolicyBuilder {
	return b.Action(DenyAction{Reason: reason})
}

func (b *PolicyBuilder) Challenge(challengeType string) *PolicyBuilder {
	return b.Action(ChallengeAction{ChallengeType: challengeType})
}

func (b *PolicyBuilder) Monitor(level pdp_model.MonitoringLevel) *PolicyBuilder {
	return b.Action(MonitorAction{Level: level})
}

func (b *PolicyBuilder) Log(message string) *PolicyBuilder {
	return b.Action(LogAction{Message: message})
}

func (b *PolicyBuilder) Alert(severity, message string) *PolicyBuilder {
	return b.Action(AlertAction{Severity: severity, Message: message})
}

func (b *PolicyBuilder) Action(a Action) *PolicyBuilder {
	b.policy.Actions = append(b.policy.Actions, a)
	return b
}

// Build validates and returns an independent policy.
func (b *PolicyBuilder) Build() (*SecurityPolicy, error) {
	p := b.policy.Clone()
	if err := p.Compile(); err != nil {
		return nil, err
	}
	p.LastModified = time.Now().UTC()
	return p, nil
}

// MustBuild is Build for static policy tables; it panics on invalid input.
func (b *PolicyBuilder) MustBuild() *SecurityPolicy {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}
