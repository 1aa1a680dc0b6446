package datascope

import (
	"context"
	"database/sql"
	"fmt"
)

// DeptStore reads the department tree from Postgres. Each row carries a
// tree_path column encoding its ancestry as a comma-separated id list
// (e.g. "0,1,5"), so descendant lookups are a single path-containment scan
// instead of a recursive traversal.
type DeptStore struct {
	db *sql.DB
}

// NewDeptStore creates a department hierarchy reader over db.
func NewDeptStore(db *sql.DB) *DeptStore {
	return &DeptStore{db: db}
}

const descendantQuery = `SELECT id FROM departments WHERE ',' || tree_path || ',' LIKE '%,' || $1::text || ',%'`

// DescendantIDs returns the ids of departments whose tree path contains
// deptID. The department itself is not in its own path, so it is excluded.
func (s *DeptStore) DescendantIDs(ctx context.Context, deptID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, descendantQuery, deptID)
	if err != nil {
		return nil, fmt.Errorf("query descendants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan department id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
