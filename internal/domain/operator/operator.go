// Package operator models the authenticated staff identity attached to a
// venue session. Operators are not persisted; identity lives in the signed
// token and delivery preferences live in the preferences store.
package operator

// Operator roles, ordered by privilege.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// Operator is the claims-derived identity for one authenticated session.
type Operator struct {
	OperatorID string `json:"operatorId"`
	VenueID    string `json:"venueId"`
	Role       string `json:"role"`
}

// IsAdmin reports whether this operator may perform administrative
// operations such as channel spend updates and venue provisioning.
func (o *Operator) IsAdmin() bool {
	return o.Role == RoleAdmin
}

// CanOperate reports whether this operator may trigger merges, reserve
// syncs and report reads.
func (o *Operator) CanOperate() bool {
	return o.Role == RoleAdmin || o.Role == RoleOperator
}
