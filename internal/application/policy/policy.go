// Package policy implements the pre-dispatch checks for operator commands:
// rate limiting and role gating, expressed as explicit policy objects so the
// rules are testable without any transport in front of them.
package policy

import "time"

// Command names evaluated by the policies. Handlers pass these instead of
// HTTP routes so the rules stay transport-agnostic.
const (
	CommandMerge         = "merge"
	CommandReserveSync   = "reserve_sync"
	CommandChannelUpdate = "channel_update"
	CommandPreferences   = "preferences"
	CommandReports       = "reports"
	CommandForecast      = "forecast"
)

// Request describes one command about to be dispatched.
type Request struct {
	VenueID    string
	OperatorID string
	Role       string
	Command    string
	At         time.Time
}

// Decision is the outcome of a policy check. RetryAfter is set when the
// denial is temporary.
type Decision struct {
	Allowed    bool
	Policy     string
	Reason     string
	RetryAfter time.Duration
}

// Allow is the neutral pass decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Policy is one independently evaluable dispatch rule.
type Policy interface {
	Name() string
	Check(req Request) Decision
}

// Pipeline evaluates policies in order; the first denial wins and later
// policies are not consulted.
type Pipeline struct {
	policies []Policy
}

// NewPipeline creates a pipeline over the given policies.
func NewPipeline(policies ...Policy) *Pipeline {
	return &Pipeline{policies: policies}
}

// Evaluate runs the request through every policy until one denies it.
func (p *Pipeline) Evaluate(req Request) Decision {
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}
	for _, pol := range p.policies {
		if d := pol.Check(req); !d.Allowed {
			d.Policy = pol.Name()
			return d
		}
	}
	return Allow()
}
