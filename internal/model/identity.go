package model

import "time"

// RoleSnapshot is the copy of an account's role embedded in its token at
// issuance time.
type RoleSnapshot struct {
	ID     uint64    `json:"id"`
	Name   string    `json:"name"`
	Access AccessSet `json:"access"`
}

// Identity is the request-scoped result of a successful pass through the
// access gate. It is never persisted.
type Identity struct {
	AccountID uint64       `json:"accountId"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Role      RoleSnapshot `json:"role"`
	TokenID   string       `json:"tokenId"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// HasPermission reports whether the identity's role snapshot grants perm.
// Nothing calls it implicitly; routes opt in through
// middleware.RequirePermission.
func HasPermission(id Identity, perm string) bool {
	return id.Role.Access.Has(perm)
}
