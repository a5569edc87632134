package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/inventory-admin/internal/model"
)

func TestRoleRepoCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepo(db)

	mock.ExpectExec("INSERT INTO roles (name, access) VALUES (?,?)").
		WithArgs("manager", `["products:read","products:write"]`).
		WillReturnResult(sqlmock.NewResult(3, 1))

	id, err := repo.Create(context.Background(), " manager ", model.AccessSet{"products:write", "products:read", "products:write"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepoCreateDuplicateName(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepo(db)

	mock.ExpectExec("INSERT INTO roles (name, access) VALUES (?,?)").
		WillReturnError(&mysql.MySQLError{Number: 1062})

	_, err := repo.Create(context.Background(), "manager", nil)
	assert.ErrorIs(t, err, ErrRoleNameExists)
}

func TestRoleRepoGetAndList(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepo(db)
	now := time.Now()

	cols := []string{"id", "name", "access", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT " + roleColumns + " FROM roles WHERE id=? LIMIT 1").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(3), "manager", `["products:write"]`, now, now))
	mock.ExpectQuery("SELECT " + roleColumns + " FROM roles ORDER BY id").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), "admin", `["roles:write","users:write"]`, now, now).
			AddRow(int64(3), "manager", `[]`, now, now))

	role, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "manager", role.Name)
	assert.True(t, role.Access.Has("products:write"))

	roles, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, model.AccessSet{"roles:write", "users:write"}, roles[0].Access)
	assert.Empty(t, roles[1].Access)
}

func TestRoleRepoUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepo(db)

	mock.ExpectExec("UPDATE roles SET name=?, access=? WHERE id=?").
		WithArgs("viewer", `[]`, uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT " + roleColumns + " FROM roles WHERE id=? LIMIT 1").
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "access", "created_at", "updated_at"}))

	err := repo.Update(context.Background(), 8, "viewer", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
