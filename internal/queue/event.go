// Package queue defines message payloads exchanged over the message broker.
package queue

// Auth event types.
const (
	EventRegistered         = "auth.registered"
	EventLogin              = "auth.login"
	EventLogout             = "auth.logout"
	EventPasswordChanged    = "auth.password_changed"
	EventAccountDeactivated = "auth.account_deactivated"
	EventTokensRevoked      = "auth.tokens_revoked"
)

// AuthEvent is published after a session-lifecycle change. It carries
// enough for an audit trail without querying the primary database and
// never contains credentials.
type AuthEvent struct {
	Type       string   `json:"type"`
	AccountID  uint64   `json:"account_id"`
	ActorID    uint64   `json:"actor_id,omitempty"`
	Email      string   `json:"email,omitempty"`
	TokenIDs   []string `json:"token_ids,omitempty"`
	OccurredAt string   `json:"occurred_at"`
}
