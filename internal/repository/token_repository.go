package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/inventory-admin/internal/model"
)

// TokenRepo persists issued access tokens keyed by their JWT id so that
// revocation checks are a primary-key read.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Persist inserts a token row. Repeating the insert for the same id is a
// no-op.
func (r *TokenRepo) Persist(ctx context.Context, rec model.TokenRecord) error {
	typ := rec.Type
	if typ == "" {
		typ = model.TokenTypeBearer
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO tokens (id, account_id, token_hash, type, expires_at) VALUES (?,?,?,?,?) ON DUPLICATE KEY UPDATE id=id",
		rec.ID, rec.AccountID, rec.TokenHash, typ, rec.ExpiresAt.UTC())
	return err
}

// IsRevoked reports whether the token is blacklisted. A token id with no
// row is treated as revoked.
func (r *TokenRepo) IsRevoked(ctx context.Context, id string) (bool, error) {
	var blacklisted bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT blacklisted FROM tokens WHERE id=? LIMIT 1", id).Scan(&blacklisted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, err
	}
	return blacklisted, nil
}

// Revoke blacklists a token. Revoking twice is harmless.
func (r *TokenRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE tokens SET blacklisted=TRUE WHERE id=?", id)
	return err
}

// RevokeAllForAccount blacklists every live token of an account.
func (r *TokenRepo) RevokeAllForAccount(ctx context.Context, accountID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id FROM tokens WHERE account_id=? AND blacklisted=FALSE AND expires_at > UTC_TIMESTAMP()", accountID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE tokens SET blacklisted=TRUE WHERE account_id=? AND blacklisted=FALSE", accountID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
