package policy

import (
	"testing"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/operator"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandAt(at time.Time) Request {
	return Request{
		VenueID:    "venue-1",
		OperatorID: "op-7",
		Role:       operator.RoleOperator,
		Command:    CommandReports,
		At:         at,
	}
}

func TestRateLimitPolicyCapsPerWindow(t *testing.T) {
	origLimit, origWindow := config.CommandRateLimit, config.CommandRateWindow
	config.CommandRateLimit, config.CommandRateWindow = 3, time.Minute
	defer func() { config.CommandRateLimit, config.CommandRateWindow = origLimit, origWindow }()

	p := NewRateLimitPolicy()
	at := time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)

	for i := 0; i < 3; i++ {
		d := p.Check(commandAt(at))
		require.True(t, d.Allowed, "request %d should pass", i+1)
	}

	d := p.Check(commandAt(at))
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "budget")
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)
}

func TestRateLimitPolicyResetsOnNewWindow(t *testing.T) {
	origLimit, origWindow := config.CommandRateLimit, config.CommandRateWindow
	config.CommandRateLimit, config.CommandRateWindow = 1, time.Minute
	defer func() { config.CommandRateLimit, config.CommandRateWindow = origLimit, origWindow }()

	p := NewRateLimitPolicy()
	first := time.Date(2024, 5, 1, 12, 0, 59, 0, time.UTC)

	require.True(t, p.Check(commandAt(first)).Allowed)
	require.False(t, p.Check(commandAt(first)).Allowed)

	nextWindow := first.Add(2 * time.Second)
	assert.True(t, p.Check(commandAt(nextWindow)).Allowed)
}

func TestRateLimitPolicyAdminsGetTripleBudget(t *testing.T) {
	origLimit, origWindow := config.CommandRateLimit, config.CommandRateWindow
	config.CommandRateLimit, config.CommandRateWindow = 2, time.Minute
	defer func() { config.CommandRateLimit, config.CommandRateWindow = origLimit, origWindow }()

	p := NewRateLimitPolicy()
	at := time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)

	req := commandAt(at)
	req.Role = operator.RoleAdmin
	for i := 0; i < 6; i++ {
		require.True(t, p.Check(req).Allowed, "admin request %d should pass", i+1)
	}
	assert.False(t, p.Check(req).Allowed)
}

func TestRateLimitPolicyIsolatesOperators(t *testing.T) {
	origLimit, origWindow := config.CommandRateLimit, config.CommandRateWindow
	config.CommandRateLimit, config.CommandRateWindow = 1, time.Minute
	defer func() { config.CommandRateLimit, config.CommandRateWindow = origLimit, origWindow }()

	p := NewRateLimitPolicy()
	at := time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)

	first := commandAt(at)
	require.True(t, p.Check(first).Allowed)
	require.False(t, p.Check(first).Allowed)

	other := commandAt(at)
	other.OperatorID = "op-8"
	assert.True(t, p.Check(other).Allowed)
}

func TestAdminOnlyPolicyGatesConfiguredCommands(t *testing.T) {
	p := NewAdminOnlyPolicy(CommandChannelUpdate)

	asOperator := Request{Role: operator.RoleOperator, Command: CommandChannelUpdate}
	d := p.Check(asOperator)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "admin")

	asAdmin := Request{Role: operator.RoleAdmin, Command: CommandChannelUpdate}
	assert.True(t, p.Check(asAdmin).Allowed)

	ungated := Request{Role: operator.RoleOperator, Command: CommandReports}
	assert.True(t, p.Check(ungated).Allowed)
}

func TestPipelineFirstDenialWins(t *testing.T) {
	origLimit, origWindow := config.CommandRateLimit, config.CommandRateWindow
	config.CommandRateLimit, config.CommandRateWindow = 100, time.Minute
	defer func() { config.CommandRateLimit, config.CommandRateWindow = origLimit, origWindow }()

	pipeline := NewPipeline(NewRateLimitPolicy(), NewAdminOnlyPolicy(CommandChannelUpdate))

	d := pipeline.Evaluate(Request{
		VenueID:    "venue-1",
		OperatorID: "op-7",
		Role:       operator.RoleOperator,
		Command:    CommandChannelUpdate,
	})
	require.False(t, d.Allowed)
	assert.Equal(t, "admin_only", d.Policy)

	allowed := pipeline.Evaluate(Request{
		VenueID:    "venue-1",
		OperatorID: "op-7",
		Role:       operator.RoleOperator,
		Command:    CommandReports,
	})
	assert.True(t, allowed.Allowed)
}
