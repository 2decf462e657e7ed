package model

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sentinel_errors "github.com/dev-mohitbeniwal/sentinel/errors"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

const policyYAML = `
policies:
  - id: device-compliance
    name: DEVICE_COMPLIANCE
    priority: 100
    conditions:
      - type: device
        operator: not_equals
        value: COMPLIANT
    actions:
      - type: DENY
        parameters:
          reason: device is not compliant
  - id: risky-network
    name: RISKY_NETWORK
    enabled: false
    conditions:
      - type: NETWORK
        field: riskScore
        operator: GREATER_THAN
        value: 70
        weight: 0.5
    actions:
      - type: CHALLENGE
        parameters:
          challengeType: MFA
      - type: ALERT
        parameters:
          severity: HIGH
          message: risky network
`

func TestReadPolicies(t *testing.T) {
	policies, err := ReadPolicies(strings.NewReader(policyYAML))
	require.NoError(t, err)
	require.Len(t, policies, 2)

	compliance := policies[0]
	assert.Equal(t, "device-compliance", compliance.ID)
	assert.True(t, compliance.Enabled)
	assert.Equal(t, ConditionDevice, compliance.Conditions[0].Type)
	assert.Equal(t, OpNotEquals, compliance.Conditions[0].Operator)
	assert.Equal(t, 1.0, compliance.Conditions[0].Weight)
	assert.Equal(t, []Action{DenyAction{Reason: "device is not compliant"}}, compliance.Actions)

	network := policies[1]
	assert.False(t, network.Enabled)
	assert.Equal(t, "70", network.Conditions[0].Value)
	assert.Equal(t, 0.5, network.Conditions[0].Weight)
	assert.Equal(t, []Action{
		ChallengeAction{ChallengeType: "MFA"},
		AlertAction{Severity: "HIGH", Message: "risky network"},
	}, network.Actions)
}

func TestReadPolicies_Errors(t *testing.T) {
	_, err := ReadPolicies(strings.NewReader("policies:\n  - name: x\n    unknown: true\n"))
	assert.Error(t, err)

	_, err = ReadPolicies(strings.NewReader("policies:\n  - name: x\n    actions:\n      - type: TELEPORT\n"))
	var configErr *sentinel_errors.PolicyConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "actions[0]", configErr.Field)

	policies, err := ReadPolicies(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, policies)
}

func TestPolicyDocument_JSONScalarValues(t *testing.T) {
	body := `{
		"name": "scores",
		"conditions": [
			{"type": "IDENTITY", "field": "trustScore", "operator": "LESS_THAN", "value": 40},
			{"type": "BEHAVIOR", "field": "riskIndicators", "operator": "CONTAINS", "value": "tor"}
		],
		"actions": [{"type": "MONITOR", "parameters": {"level": "full"}}]
	}`
	var doc PolicyDocument
	require.NoError(t, json.Unmarshal([]byte(body), &doc))

	p, err := doc.ToPolicy()
	require.NoError(t, err)
	assert.Equal(t, "40", p.Conditions[0].Value)
	assert.Equal(t, []Action{MonitorAction{Level: pdp_model.MonitoringFull}}, p.Actions)

	var bad PolicyDocument
	assert.Error(t, json.Unmarshal([]byte(`{"name":"x","conditions":[{"type":"DEVICE","operator":"EQUALS","value":{"a":1}}]}`), &bad))
}

func TestDocumentFromPolicy_RoundTrip(t *testing.T) {
	original := NewPolicy("p1", "everything").
		Priority(3).
		When(ConditionDevice, OpEquals, "COMPLIANT").
		Challenge("MFA").
		Monitor(pdp_model.MonitoringBasic).
		Log("seen").
		Alert("LOW", "fyi").
		MustBuild()
	original.Version = 4

	rebuilt, err := DocumentFromPolicy(original).ToPolicy()
	require.NoError(t, err)
	assert.Equal(t, original.ID, rebuilt.ID)
	assert.Equal(t, original.Priority, rebuilt.Priority)
	assert.Equal(t, original.Actions, rebuilt.Actions)
	assert.Equal(t, 4, rebuilt.Version)
	assert.Equal(t, original.Conditions[0].Value, rebuilt.Conditions[0].Value)
}

func TestReadPolicies_SampleFile(t *testing.T) {
	f, err := os.Open("../config/policies.yaml")
	require.NoError(t, err)
	defer f.Close()

	policies, err := ReadPolicies(f)
	require.NoError(t, err)
	require.Len(t, policies, 4)
	assert.Equal(t, "device-compliance", policies[0].ID)
}
