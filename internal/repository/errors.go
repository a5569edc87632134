// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers to distinguish
// between failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique index.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is the ErrConflict raised by users.email.
var ErrEmailExists = errors.New("email already exists")

// ErrRoleNameExists is the ErrConflict raised by roles.name.
var ErrRoleNameExists = errors.New("role name already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// IsConflict reports whether err came from a unique-index violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrEmailExists) || errors.Is(err, ErrRoleNameExists)
}
