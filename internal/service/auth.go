// Package service holds the session-lifecycle operations: registration,
// login, logout, password change, deactivation, role management and the
// per-request access gate.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/inventory-admin/internal/model"
	"github.com/iliyamo/inventory-admin/internal/queue"
	"github.com/iliyamo/inventory-admin/internal/repository"
	"github.com/iliyamo/inventory-admin/internal/utils"
)

// UserStore is the account half of the directory.
type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	RecordLogin(ctx context.Context, id uint64, tokenID string, at time.Time) error
	ClearCurrentToken(ctx context.Context, id uint64, tokenID string) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	SetStatus(ctx context.Context, id uint64, status model.AccountStatus) error
}

// RoleStore is the role half of the directory.
type RoleStore interface {
	Create(ctx context.Context, name string, access model.AccessSet) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
	Update(ctx context.Context, id uint64, name string, access model.AccessSet) error
}

// TokenStore is the durable record of issued tokens.
type TokenStore interface {
	Persist(ctx context.Context, rec model.TokenRecord) error
	IsRevoked(ctx context.Context, id string) (bool, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForAccount(ctx context.Context, accountID uint64) ([]string, error)
}

// EventPublisher receives audit events. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// Options tunes AuthService.
type Options struct {
	BcryptCost int
	// RevokeOnPasswordChange blacklists every live token of the account
	// after a successful password change.
	RevokeOnPasswordChange bool
	// RevokeOnDeactivate blacklists every live token of the account when
	// it is deactivated. The gate rejects inactive accounts regardless.
	RevokeOnDeactivate bool
	// RestrictedAccess lists permissions a role may not carry when it is
	// picked through public registration. Provision ignores it.
	RestrictedAccess []string
	Now                func() time.Time
}

// AuthService implements the account-facing operations.
type AuthService struct {
	users  UserStore
	roles  RoleStore
	tokens TokenStore
	issuer *utils.TokenIssuer
	events EventPublisher
	opts   Options
	log    logrus.FieldLogger
}

// NewAuthService wires the service. events and log may be nil.
func NewAuthService(users UserStore, roles RoleStore, tokens TokenStore, issuer *utils.TokenIssuer, events EventPublisher, opts Options, log logrus.FieldLogger) *AuthService {
	if users == nil || roles == nil || tokens == nil || issuer == nil {
		panic("nil dependency passed to NewAuthService")
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthService{
		users:  users,
		roles:  roles,
		tokens: tokens,
		issuer: issuer,
		events: events,
		opts:   opts,
		log:    log.WithField("component", "auth_service"),
	}
}

// RegisterInput is the registration payload. Field order is the order in
// which missing fields are reported.
type RegisterInput struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	RoleID    uint64 `json:"roleId" validate:"required"`
	Telephone string `json:"telephone" validate:"required"`
}

// Register creates an ACTIVE account on behalf of an anonymous caller. Roles
// carrying any of Options.RestrictedAccess are refused.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	return s.register(ctx, in, true)
}

// Provision creates an ACTIVE account with any role. It is meant for
// operators, never for a public route.
func (s *AuthService) Provision(ctx context.Context, in RegisterInput) (model.User, error) {
	return s.register(ctx, in, false)
}

func (s *AuthService) register(ctx context.Context, in RegisterInput, public bool) (model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Telephone = strings.TrimSpace(in.Telephone)
	if err := validateStruct(in); err != nil {
		return model.User{}, err
	}
	if err := checkPolicy("password", in.Password); err != nil {
		return model.User{}, err
	}

	role, err := s.roles.GetByID(ctx, in.RoleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, notFoundErr("role not found")
		}
		return model.User{}, internalErr("load role", err)
	}
	if public && role.Access.HasAny(s.opts.RestrictedAccess...) {
		return model.User{}, validationErr("roleId", "role cannot be assigned at registration")
	}

	// Friendly early answer only; the unique index decides races.
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return model.User{}, conflictErr("email already exists", repository.ErrEmailExists)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, internalErr("lookup email", err)
	}

	hash, err := utils.HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return model.User{}, internalErr("hash password", err)
	}
	id, err := s.users.Create(ctx, model.User{
		Name:         in.Name,
		Email:        in.Email,
		Telephone:    in.Telephone,
		PasswordHash: hash,
		Status:       model.StatusActive,
		RoleID:       in.RoleID,
	})
	if err != nil {
		if repository.IsConflict(err) {
			return model.User{}, conflictErr("email already exists", err)
		}
		return model.User{}, internalErr("create user", err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, internalErr("reload user", err)
	}

	s.log.WithFields(logrus.Fields{"account_id": id, "outcome": "success"}).Info("account registered")
	s.publish(ctx, queue.AuthEvent{Type: queue.EventRegistered, AccountID: id, Email: u.Email})
	return u, nil
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User  model.User
	Token utils.IssuedToken
}

// Login verifies credentials, mints a token, persists it and points the
// account at it.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return LoginResult{}, err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, notFoundErr("user not found")
		}
		return LoginResult{}, internalErr("lookup user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		s.log.WithFields(logrus.Fields{"account_id": u.ID, "outcome": "failure"}).Info("login rejected: bad password")
		return LoginResult{}, validationErr("password", "password is incorrect")
	}
	if !u.IsActive() {
		return LoginResult{}, ErrAccountInactive
	}

	snapshot := model.RoleSnapshot{ID: u.RoleID, Access: model.AccessSet{}}
	if role, err := s.roles.GetByID(ctx, u.RoleID); err == nil {
		snapshot = model.RoleSnapshot{ID: role.ID, Name: role.Name, Access: role.Access}
	} else if errors.Is(err, repository.ErrNotFound) {
		s.log.WithFields(logrus.Fields{"account_id": u.ID, "role_id": u.RoleID}).Warn("account references missing role")
	} else {
		return LoginResult{}, internalErr("load role", err)
	}

	tok, err := s.issuer.Issue(u, snapshot)
	if err != nil {
		return LoginResult{}, internalErr("issue token", err)
	}
	rec := model.TokenRecord{
		ID:        tok.ID,
		AccountID: u.ID,
		TokenHash: utils.HashToken(tok.Token),
		Type:      model.TokenTypeBearer,
		ExpiresAt: tok.ExpiresAt,
	}
	if err := s.tokens.Persist(ctx, rec); err != nil {
		return LoginResult{}, internalErr("persist token", err)
	}
	if err := s.users.RecordLogin(ctx, u.ID, tok.ID, tok.IssuedAt); err != nil {
		return LoginResult{}, internalErr("record login", err)
	}
	at := tok.IssuedAt
	u.LastLoginAt = &at
	u.CurrentTokenID = &rec.ID

	s.log.WithFields(logrus.Fields{"account_id": u.ID, "token_id": tok.ID, "outcome": "success"}).Info("login")
	s.publish(ctx, queue.AuthEvent{Type: queue.EventLogin, AccountID: u.ID, Email: u.Email, TokenIDs: []string{tok.ID}})
	return LoginResult{User: u, Token: tok}, nil
}

// Logout revokes the token the caller authenticated with.
func (s *AuthService) Logout(ctx context.Context, id model.Identity) error {
	if err := s.tokens.Revoke(ctx, id.TokenID); err != nil {
		return internalErr("revoke token", err)
	}
	if err := s.users.ClearCurrentToken(ctx, id.AccountID, id.TokenID); err != nil {
		// the token is already blacklisted, the pointer is cosmetic
		s.log.WithError(err).WithField("account_id", id.AccountID).Warn("clear current token failed")
	}
	s.log.WithFields(logrus.Fields{"account_id": id.AccountID, "token_id": id.TokenID}).Info("logout")
	s.publish(ctx, queue.AuthEvent{Type: queue.EventLogout, AccountID: id.AccountID, TokenIDs: []string{id.TokenID}})
	return nil
}

// Account loads the live account record behind an identity.
func (s *AuthService) Account(ctx context.Context, id model.Identity) (model.User, error) {
	return s.User(ctx, id.AccountID)
}

// User loads any account by id.
func (s *AuthService) User(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, notFoundErr("user not found")
		}
		return model.User{}, internalErr("load user", err)
	}
	return u, nil
}

// ChangePasswordInput is the password-change payload.
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// ChangePassword replaces the caller's password hash. Existing tokens stay
// valid unless RevokeOnPasswordChange is set.
func (s *AuthService) ChangePassword(ctx context.Context, id model.Identity, in ChangePasswordInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	u, err := s.Account(ctx, id)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, in.OldPassword) {
		return validationErr("oldPassword", "old password is incorrect")
	}
	if err := checkPolicy("newPassword", in.NewPassword); err != nil {
		return err
	}
	hash, err := utils.HashPassword(in.NewPassword, s.opts.BcryptCost)
	if err != nil {
		return internalErr("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return internalErr("update password", err)
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventPasswordChanged, AccountID: u.ID, ActorID: id.AccountID})

	if s.opts.RevokeOnPasswordChange {
		if err := s.revokeAll(ctx, u.ID, id.AccountID); err != nil {
			return err
		}
	}
	return nil
}

// Deactivate flips the account to INACTIVE. The access gate rejects its
// tokens from the next request on.
func (s *AuthService) Deactivate(ctx context.Context, actor model.Identity, accountID uint64) error {
	if err := s.users.SetStatus(ctx, accountID, model.StatusInactive); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundErr("user not found")
		}
		return internalErr("deactivate user", err)
	}
	s.log.WithFields(logrus.Fields{"account_id": accountID, "actor_id": actor.AccountID}).Info("account deactivated")
	s.publish(ctx, queue.AuthEvent{Type: queue.EventAccountDeactivated, AccountID: accountID, ActorID: actor.AccountID})

	if s.opts.RevokeOnDeactivate {
		return s.revokeAll(ctx, accountID, actor.AccountID)
	}
	return nil
}

func (s *AuthService) revokeAll(ctx context.Context, accountID, actorID uint64) error {
	ids, err := s.tokens.RevokeAllForAccount(ctx, accountID)
	if err != nil {
		return internalErr("revoke tokens", err)
	}
	if len(ids) > 0 {
		s.publish(ctx, queue.AuthEvent{Type: queue.EventTokensRevoked, AccountID: accountID, ActorID: actorID, TokenIDs: ids})
	}
	return nil
}

func (s *AuthService) publish(ctx context.Context, ev queue.AuthEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = s.opts.Now().UTC().Format(time.RFC3339)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithField("event", ev.Type).Warn("publish auth event failed")
	}
}

func checkPolicy(field, password string) error {
	if err := utils.CheckPasswordPolicy(password); err != nil {
		return &Error{Kind: KindValidation, Field: field, Message: err.Error(), Err: err}
	}
	return nil
}
