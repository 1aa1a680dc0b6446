// Package directory looks up user accounts and their role assignments in
// Postgres and verifies passwords through an injected comparer.
//
// The comparer keeps hashing policy outside this core: production wires a
// bcrypt comparison, tests wire plain equality.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/datascope"
)

// PasswordComparer reports whether plain matches the stored hash.
type PasswordComparer func(hashed, plain string) bool

const statusActive = 1

const accountQuery = `SELECT id, username, password, dept_id, data_scope, status FROM users WHERE username = $1 AND deleted = 0`

const rolesQuery = `SELECT r.code FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = $1 AND r.status = 1`

// Store implements auth.Authenticator over a users/roles schema.
type Store struct {
	db      *sql.DB
	compare PasswordComparer
}

// New creates a directory over db.
func New(db *sql.DB, compare PasswordComparer) *Store {
	return &Store{db: db, compare: compare}
}

// Authenticate looks up the account, checks status and password, and loads
// role codes. Every failure mode returns auth.ErrBadCredentials so callers
// cannot distinguish unknown users from wrong passwords or disabled
// accounts.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*auth.Principal, error) {
	var (
		id           int64
		storedName   string
		passwordHash string
		deptID       int64
		dataScope    int
		status       int
	)

	err := s.db.QueryRowContext(ctx, accountQuery, username).
		Scan(&id, &storedName, &passwordHash, &deptID, &dataScope, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query account %q: %w", username, err)
	}

	if status != statusActive {
		return nil, auth.ErrBadCredentials
	}
	if !s.compare(passwordHash, password) {
		return nil, auth.ErrBadCredentials
	}

	roles, err := s.roleCodes(ctx, id)
	if err != nil {
		return nil, err
	}

	return &auth.Principal{
		UserID:    id,
		Username:  storedName,
		DeptID:    deptID,
		DataScope: datascope.ParseLevel(dataScope),
		RoleCodes: roles,
	}, nil
}

func (s *Store) roleCodes(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, rolesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query roles for user %d: %w", userID, err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan role code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
