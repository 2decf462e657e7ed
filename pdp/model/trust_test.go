package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tc := TrustContext{
		Identity: &IdentityContext{UserID: "user1", TrustScore: 140},
		Device:   &DeviceContext{RiskScore: -5},
		Network:  &NetworkContext{RiskScore: 101},
		Behavior: &BehaviorContext{
			AnomalyScore:   50,
			AccessPatterns: []string{"a", "b", "a"},
			RiskIndicators: []string{"tor", "tor"},
		},
	}

	out := tc.Normalize()

	assert.Equal(t, 100, out.Identity.TrustScore)
	assert.Equal(t, 0, out.Device.RiskScore)
	assert.Equal(t, 100, out.Network.RiskScore)
	assert.Equal(t, []string{"a", "b"}, out.Behavior.AccessPatterns)
	assert.Equal(t, []string{"tor"}, out.Behavior.RiskIndicators)

	assert.Equal(t, 140, tc.Identity.TrustScore)
	assert.NotSame(t, tc.Identity, out.Identity)
	assert.Len(t, tc.Behavior.AccessPatterns, 3)
}

func TestNormalize_MissingDimensions(t *testing.T) {
	out := TrustContext{}.Normalize()
	assert.Nil(t, out.Identity)
	assert.Nil(t, out.Device)
	assert.Nil(t, out.Network)
	assert.Nil(t, out.Behavior)
	assert.Empty(t, out.UserID())
	assert.Empty(t, out.DeviceID())
	assert.Empty(t, out.SessionID())
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"42", 42, true},
		{" 7 ", 7, true},
		{"250", 100, true},
		{"-3", 0, true},
		{"", 0, false},
		{"high", 0, false},
		{"4.5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseScore(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCacheEntryExpired(t *testing.T) {
	expiry := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	e := CacheEntry{TrustScore: 80, Expiry: expiry}
	assert.False(t, e.Expired(expiry.Add(-time.Second)))
	assert.False(t, e.Expired(expiry))
	assert.True(t, e.Expired(expiry.Add(time.Nanosecond)))
}

func TestMonitoringLevelRank(t *testing.T) {
	assert.Less(t, MonitoringNone.Rank(), MonitoringBasic.Rank())
	assert.Less(t, MonitoringBasic.Rank(), MonitoringEnhanced.Rank())
	assert.Less(t, MonitoringEnhanced.Rank(), MonitoringFull.Rank())
	assert.Equal(t, -1, MonitoringLevel("LOUD").Rank())
	assert.False(t, MonitoringLevel("LOUD").Valid())
}

func TestAccessDecisionAllowed(t *testing.T) {
	assert.True(t, AccessDecision{Decision: DecisionAllow}.Allowed())
	for _, d := range []Decision{DecisionDeny, DecisionChallenge, DecisionMonitor} {
		require.False(t, AccessDecision{Decision: d}.Allowed(), d)
	}
}
