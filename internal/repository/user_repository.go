package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/inventory-admin/internal/model"
)

const userColumns = "id,name,email,telephone,password_hash,status,role_id,current_token_id,last_login_at,created_at,updated_at"

// UserRepo reads and writes the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts an account and returns its ID. The unique index on email
// is what rejects concurrent duplicates; callers' pre-checks are advisory.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	status := u.Status
	if status == "" {
		status = model.StatusActive
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, telephone, password_hash, status, role_id) VALUES (?,?,?,?,?,?)",
		u.Name, email, u.Telephone, u.PasswordHash, string(status), u.RoleID)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// RecordLogin stamps last_login_at and points current_token_id at the
// freshly minted token.
func (r *UserRepo) RecordLogin(ctx context.Context, id uint64, tokenID string, at time.Time) error {
	return r.execOne(ctx,
		"UPDATE users SET last_login_at=?, current_token_id=? WHERE id=?",
		at.UTC(), tokenID, id)
}

// ClearCurrentToken drops the current-token pointer if it still refers to
// tokenID. A newer login is left untouched.
func (r *UserRepo) ClearCurrentToken(ctx context.Context, id uint64, tokenID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET current_token_id=NULL WHERE id=? AND current_token_id=?",
		id, tokenID)
	return err
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.execOne(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
}

// SetStatus flips the account status. Setting the current value again is
// not an error.
func (r *UserRepo) SetStatus(ctx context.Context, id uint64, status model.AccountStatus) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET status=? WHERE id=?", string(status), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return nil
}

func (r *UserRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u         model.User
		status    string
		tokenID   sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Telephone, &u.PasswordHash, &status,
		&u.RoleID, &tokenID, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.Status = model.AccountStatus(status)
	if tokenID.Valid {
		s := tokenID.String
		u.CurrentTokenID = &s
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}
