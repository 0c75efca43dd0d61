package model

// Principal is the authenticated caller of a request
type Principal struct {
	AccountID  AccountID
	Username   string
	SuperAdmin bool
}

// Owns reports whether the principal may act on data owned by owner.
// Super-admins may act on anything, including documents without an owner.
func (p Principal) Owns(owner AccountID) bool {
	if p.SuperAdmin {
		return true
	}
	return owner != "" && owner == p.AccountID
}
