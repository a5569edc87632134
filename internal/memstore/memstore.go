// Package memstore provides in-memory implementations of the account, role
// and token stores. They enforce the same unique keys as the MySQL schema
// and back APP_STORAGE=memory runs as well as the service and router tests.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/inventory-admin/internal/model"
	"github.com/iliyamo/inventory-admin/internal/repository"
)

// Users is an in-memory users table with a unique email index.
type Users struct {
	mu      sync.Mutex
	nextID  uint64
	byID    map[uint64]model.User
	byEmail map[string]uint64
}

func NewUsers() *Users {
	return &Users{byID: map[uint64]model.User{}, byEmail: map[string]uint64{}}
}

func (s *Users) Create(_ context.Context, u model.User) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	s.nextID++
	now := time.Now().UTC()
	u.ID = s.nextID
	u.Email = email
	if u.Status == "" {
		u.Status = model.StatusActive
	}
	u.CreatedAt, u.UpdatedAt = now, now
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID
	return u.ID, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Users) RecordLogin(_ context.Context, id uint64, tokenID string, at time.Time) error {
	return s.update(id, func(u *model.User) {
		t := at.UTC()
		u.LastLoginAt = &t
		u.CurrentTokenID = &tokenID
	})
}

func (s *Users) ClearCurrentToken(_ context.Context, id uint64, tokenID string) error {
	err := s.update(id, func(u *model.User) {
		if u.CurrentTokenID != nil && *u.CurrentTokenID == tokenID {
			u.CurrentTokenID = nil
		}
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Users) UpdatePassword(_ context.Context, id uint64, hash string) error {
	return s.update(id, func(u *model.User) { u.PasswordHash = hash })
}

func (s *Users) SetStatus(_ context.Context, id uint64, status model.AccountStatus) error {
	return s.update(id, func(u *model.User) { u.Status = status })
}

func (s *Users) update(id uint64, fn func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	s.byID[id] = u
	return nil
}

// Roles is an in-memory roles table with a unique name index.
type Roles struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.Role
}

func NewRoles() *Roles { return &Roles{byID: map[uint64]model.Role{}} }

func (s *Roles) Create(_ context.Context, name string, access model.AccessSet) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	for _, r := range s.byID {
		if r.Name == name {
			return 0, repository.ErrRoleNameExists
		}
	}
	s.nextID++
	now := time.Now().UTC()
	s.byID[s.nextID] = model.Role{ID: s.nextID, Name: name, Access: model.NewAccessSet(access...), CreatedAt: now, UpdatedAt: now}
	return s.nextID, nil
}

func (s *Roles) GetByID(_ context.Context, id uint64) (model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return model.Role{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *Roles) List(_ context.Context) ([]model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Role, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Roles) Update(_ context.Context, id uint64, name string, access model.AccessSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	name = strings.TrimSpace(name)
	for otherID, other := range s.byID {
		if otherID != id && other.Name == name {
			return repository.ErrRoleNameExists
		}
	}
	r.Name = name
	r.Access = model.NewAccessSet(access...)
	r.UpdatedAt = time.Now().UTC()
	s.byID[id] = r
	return nil
}

// Tokens is an in-memory tokens table keyed by token id.
type Tokens struct {
	mu   sync.Mutex
	byID map[string]model.TokenRecord
}

func NewTokens() *Tokens { return &Tokens{byID: map[string]model.TokenRecord{}} }

func (s *Tokens) Persist(_ context.Context, rec model.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[rec.ID]; ok {
		return nil
	}
	if rec.Type == "" {
		rec.Type = model.TokenTypeBearer
	}
	rec.CreatedAt = time.Now().UTC()
	s.byID[rec.ID] = rec
	return nil
}

func (s *Tokens) IsRevoked(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return true, nil
	}
	return rec.Blacklisted, nil
}

func (s *Tokens) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.byID[id]; ok {
		rec.Blacklisted = true
		s.byID[id] = rec
	}
	return nil
}

func (s *Tokens) RevokeAllForAccount(_ context.Context, accountID uint64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var ids []string
	for id, rec := range s.byID {
		if rec.AccountID != accountID || rec.Blacklisted || !rec.ExpiresAt.After(now) {
			continue
		}
		rec.Blacklisted = true
		s.byID[id] = rec
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
