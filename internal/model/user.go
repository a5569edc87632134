package model

import "time"

// AccountStatus is the lifecycle state stored in users.status.
type AccountStatus string

const (
	StatusActive   AccountStatus = "ACTIVE"
	StatusInactive AccountStatus = "INACTIVE"
)

// User represents an account record as stored in the `users` table.
// Deactivation flips Status to INACTIVE; rows are never deleted.
//
// Fields:
//
//	ID             – primary key identifier of the account.
//	Name           – display name embedded in issued tokens.
//	Email          – unique, lower-cased email address.
//	Telephone      – contact number captured at registration.
//	PasswordHash   – bcrypt hashed password.
//	Status         – ACTIVE or INACTIVE.
//	RoleID         – foreign key into the roles table.
//	CurrentTokenID – id of the token minted at the last login (nullable).
//	LastLoginAt    – timestamp of the last successful login (nullable).
type User struct {
	ID             uint64        // users.id
	Name           string        // users.name
	Email          string        // users.email
	Telephone      string        // users.telephone
	PasswordHash   string        // users.password_hash
	Status         AccountStatus // users.status
	RoleID         uint64        // users.role_id
	CurrentTokenID *string       // users.current_token_id
	LastLoginAt    *time.Time    // users.last_login_at
	CreatedAt      time.Time     // users.created_at
	UpdatedAt      time.Time     // users.updated_at
}

// IsActive reports whether the account may authenticate.
func (u User) IsActive() bool { return u.Status == StatusActive }

// PublicUser is the JSON shape of an account returned to clients. It
// never carries the password hash.
type PublicUser struct {
	ID          uint64        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Telephone   string        `json:"telephone"`
	Status      AccountStatus `json:"status"`
	RoleID      uint64        `json:"roleId"`
	LastLoginAt *time.Time    `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Public strips credentials from the account.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Telephone:   u.Telephone,
		Status:      u.Status,
		RoleID:      u.RoleID,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
