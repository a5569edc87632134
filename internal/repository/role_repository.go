package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/inventory-admin/internal/model"
)

const roleColumns = "id,name,access,created_at,updated_at"

// RoleRepo reads and writes the 'roles' table.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// Create inserts a role and returns its ID.
func (r *RoleRepo) Create(ctx context.Context, name string, access model.AccessSet) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name, access) VALUES (?,?)",
		strings.TrimSpace(name), model.NewAccessSet(access...))
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrRoleNameExists
		}
		return 0, fmt.Errorf("insert role: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a role by id.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE id=? LIMIT 1", id).
		Scan(&role.ID, &role.Name, &role.Access, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Role{}, ErrNotFound
	}
	return role, err
}

// List returns every role ordered by id.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+roleColumns+" FROM roles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []model.Role{}
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Access, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Update replaces name and access of an existing role.
func (r *RoleRepo) Update(ctx context.Context, id uint64, name string, access model.AccessSet) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE roles SET name=?, access=? WHERE id=?",
		strings.TrimSpace(name), model.NewAccessSet(access...), id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrRoleNameExists
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	// MySQL reports zero affected rows for a no-op update too
	_, err = r.GetByID(ctx, id)
	return err
}
