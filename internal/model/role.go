package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Permissions checked by the service itself.
const (
	PermRolesRead  = "roles:read"
	PermRolesWrite = "roles:write"
	PermUsersWrite = "users:write"
)

// AdminAccess is the set of permissions that administer other accounts and
// roles.
func AdminAccess() AccessSet {
	return NewAccessSet(PermRolesWrite, PermUsersWrite)
}

// Role represents a row in the `roles` table. Access holds the permission
// labels granted to every account referencing the role.
type Role struct {
	ID        uint64    `json:"id"`        // roles.id
	Name      string    `json:"name"`      // roles.name (unique)
	Access    AccessSet `json:"access"`    // roles.access (JSON array)
	CreatedAt time.Time `json:"createdAt"` // roles.created_at
	UpdatedAt time.Time `json:"updatedAt"` // roles.updated_at
}

// AccessSet is an unordered set of permission strings. The slice is kept
// normalized: trimmed, without empties or duplicates, sorted.
type AccessSet []string

// NewAccessSet normalizes perms into a set.
func NewAccessSet(perms ...string) AccessSet {
	seen := make(map[string]struct{}, len(perms))
	out := make(AccessSet, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Has reports whether perm is a member of the set.
func (s AccessSet) Has(perm string) bool {
	perm = strings.TrimSpace(perm)
	for _, p := range s {
		if p == perm {
			return true
		}
	}
	return false
}

// HasAny reports whether any of perms is a member of the set.
func (s AccessSet) HasAny(perms ...string) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// Equal compares two sets ignoring order and duplicates.
func (s AccessSet) Equal(other AccessSet) bool {
	a, b := NewAccessSet(s...), NewAccessSet(other...)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MarshalJSON always emits an array, never null.
func (s AccessSet) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(NewAccessSet(s...)))
}

// UnmarshalJSON normalizes incoming arrays.
func (s *AccessSet) UnmarshalJSON(b []byte) error {
	var raw []string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = NewAccessSet(raw...)
	return nil
}

// Value stores the set as a JSON array column.
func (s AccessSet) Value() (driver.Value, error) {
	b, err := json.Marshal([]string(NewAccessSet(s...)))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON array column.
func (s *AccessSet) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*s = AccessSet{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("access set: unsupported type %T", src)
	}
	if len(b) == 0 {
		*s = AccessSet{}
		return nil
	}
	return s.UnmarshalJSON(b)
}
