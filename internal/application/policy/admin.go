package policy

import (
	"github.com/AtRiskMedia/leadledger-go/internal/domain/operator"
)

// AdminOnlyPolicy restricts the named commands to the admin role.
type AdminOnlyPolicy struct {
	commands map[string]struct{}
}

// NewAdminOnlyPolicy creates the policy over the given command names. When
// none are given the default set covers the ledger-shaping commands.
func NewAdminOnlyPolicy(commands ...string) *AdminOnlyPolicy {
	if len(commands) == 0 {
		commands = []string{CommandChannelUpdate}
	}
	set := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		set[c] = struct{}{}
	}
	return &AdminOnlyPolicy{commands: set}
}

// Name implements Policy.
func (p *AdminOnlyPolicy) Name() string { return "admin_only" }

// Check implements Policy.
func (p *AdminOnlyPolicy) Check(req Request) Decision {
	if _, gated := p.commands[req.Command]; !gated {
		return Allow()
	}
	if req.Role == operator.RoleAdmin {
		return Allow()
	}
	return Decision{
		Allowed: false,
		Reason:  "command requires the admin role",
	}
}
