// Package datascope computes row-level visibility predicates from a caller's
// data-scope level and position in the department tree.
//
// The resolver is generic over the entity being queried: each call site names
// the department and creator columns of its own table, so unrelated data
// types share one resolver with no per-entity code.
package datascope

import (
	"context"
	"fmt"
	"strings"
)

// Level is the breadth of rows a caller may see.
type Level int

const (
	// LevelAll grants unrestricted visibility.
	LevelAll Level = 1
	// LevelDeptAndSub restricts to the caller's department and its descendants.
	LevelDeptAndSub Level = 2
	// LevelDept restricts to the caller's own department.
	LevelDept Level = 3
	// LevelSelf restricts to rows the caller created.
	LevelSelf Level = 4
)

func (l Level) String() string {
	switch l {
	case LevelAll:
		return "ALL"
	case LevelDeptAndSub:
		return "DEPT_AND_SUB"
	case LevelDept:
		return "DEPT"
	case LevelSelf:
		return "SELF"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel maps a claim value to a Level. Unrecognized values fall back to
// LevelSelf, the most restrictive scope.
func ParseLevel(v int) Level {
	switch Level(v) {
	case LevelAll, LevelDeptAndSub, LevelDept, LevelSelf:
		return Level(v)
	default:
		return LevelSelf
	}
}

// PredicateKind identifies the shape of a resolved predicate.
type PredicateKind int

const (
	// PredicateNone means no restriction.
	PredicateNone PredicateKind = iota
	// PredicateDeptIn restricts the department column to a set of ids.
	PredicateDeptIn
	// PredicateDeptEq restricts the department column to one id.
	PredicateDeptEq
	// PredicateCreatorEq restricts the creator column to the caller's user id.
	PredicateCreatorEq
)

// Predicate describes a row filter for the persistence layer to apply before
// executing a query. It is a description, not a query: callers render it with
// SQL or apply it in memory.
type Predicate struct {
	Kind    PredicateKind
	Column  string
	DeptIDs []int64
	Value   int64
}

// SQL renders the predicate as a WHERE fragment using Postgres placeholders
// starting at $start. A PredicateNone renders as an empty fragment with no
// arguments.
func (p Predicate) SQL(start int) (string, []interface{}) {
	switch p.Kind {
	case PredicateDeptIn:
		placeholders := make([]string, len(p.DeptIDs))
		args := make([]interface{}, len(p.DeptIDs))
		for i, id := range p.DeptIDs {
			placeholders[i] = fmt.Sprintf("$%d", start+i)
			args[i] = id
		}
		return fmt.Sprintf("%s IN (%s)", p.Column, strings.Join(placeholders, ", ")), args
	case PredicateDeptEq, PredicateCreatorEq:
		return fmt.Sprintf("%s = $%d", p.Column, start), []interface{}{p.Value}
	default:
		return "", nil
	}
}

// Matches reports whether a row with the given department id and creator id
// is visible under the predicate. Used by persistence layers that filter in
// memory and by tests.
func (p Predicate) Matches(deptID, creatorID int64) bool {
	switch p.Kind {
	case PredicateNone:
		return true
	case PredicateDeptIn:
		for _, id := range p.DeptIDs {
			if id == deptID {
				return true
			}
		}
		return false
	case PredicateDeptEq:
		return deptID == p.Value
	case PredicateCreatorEq:
		return creatorID == p.Value
	default:
		return false
	}
}

// Hierarchy exposes department ancestry lookups. The department tree is
// owned elsewhere; this core only reads it.
type Hierarchy interface {
	// DescendantIDs returns the ids of all departments whose tree path
	// contains deptID, excluding deptID itself.
	DescendantIDs(ctx context.Context, deptID int64) ([]int64, error)
}

// Resolver computes predicates from a caller's scope level.
type Resolver struct {
	tree Hierarchy
}

// NewResolver creates a resolver over the given department hierarchy.
func NewResolver(tree Hierarchy) *Resolver {
	return &Resolver{tree: tree}
}

// Resolve produces the predicate for the caller. deptColumn and creatorColumn
// name the attributes of the entity being queried. The department hierarchy
// is consulted only for LevelDeptAndSub.
//
// Root-role callers bypass this resolver entirely; that check happens before
// scope is computed (see pkg/permission).
func (r *Resolver) Resolve(ctx context.Context, level Level, deptID, userID int64, deptColumn, creatorColumn string) (Predicate, error) {
	switch ParseLevel(int(level)) {
	case LevelAll:
		return Predicate{Kind: PredicateNone}, nil
	case LevelDeptAndSub:
		descendants, err := r.tree.DescendantIDs(ctx, deptID)
		if err != nil {
			return Predicate{}, fmt.Errorf("resolve descendants of dept %d: %w", deptID, err)
		}
		ids := make([]int64, 0, len(descendants)+1)
		ids = append(ids, deptID)
		ids = append(ids, descendants...)
		return Predicate{Kind: PredicateDeptIn, Column: deptColumn, DeptIDs: ids}, nil
	case LevelDept:
		return Predicate{Kind: PredicateDeptEq, Column: deptColumn, Value: deptID}, nil
	default:
		return Predicate{Kind: PredicateCreatorEq, Column: creatorColumn, Value: userID}, nil
	}
}
