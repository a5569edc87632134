package model

import "time"

// TokenTypeBearer is the only token type minted by login.
const TokenTypeBearer = "bearer"

// TokenRecord models an entry in the `tokens` table. Records are created at
// login and addressed by the JWT id (jti). The raw token is not stored;
// only its SHA‑256 hash. A blacklisted record is never un‑blacklisted.
//
// Fields:
//
//	ID          – JWT id, primary key.
//	AccountID   – account the token was issued to.
//	TokenHash   – SHA‑256 hex digest of the token string.
//	Type        – token type, always "bearer".
//	ExpiresAt   – expiry copied from the token's exp claim.
//	Blacklisted – revocation flag.
type TokenRecord struct {
	ID          string    // tokens.id
	AccountID   uint64    // tokens.account_id
	TokenHash   string    // tokens.token_hash
	Type        string    // tokens.type
	ExpiresAt   time.Time // tokens.expires_at
	Blacklisted bool      // tokens.blacklisted
	CreatedAt   time.Time // tokens.created_at
}
