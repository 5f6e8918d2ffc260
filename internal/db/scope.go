package db

import (
	"fmt"

	"github.com/keybrdist/makiso/internal/types"
)

// NormalizeScopeLevel honors the requested level when the scope actually has
// a value there (org needs no value beyond itself); otherwise it degrades to
// the most specific level the scope can support rather than failing.
func NormalizeScopeLevel(scope types.Scope, requested types.ScopeLevel) types.ScopeLevel {
	switch {
	case requested == types.LevelRepo && scope.RepoID != nil:
		return types.LevelRepo
	case requested == types.LevelProject && scope.ProjectID != nil:
		return types.LevelProject
	case requested == types.LevelWorkspace && scope.WorkspaceID != nil:
		return types.LevelWorkspace
	case requested == types.LevelOrg:
		return types.LevelOrg
	}

	if scope.RepoID != nil {
		return types.LevelRepo
	}
	if scope.ProjectID != nil {
		return types.LevelProject
	}
	if scope.WorkspaceID != nil {
		return types.LevelWorkspace
	}
	return types.LevelOrg
}

// scopeCondition is a SQL predicate fragment plus its bind parameters.
type scopeCondition struct {
	SQL    string
	Params []any
	Level  types.ScopeLevel
}

// buildScopeCondition produces a pure filter over the scope columns. The org
// equality is always present; a more specific level adds one more equality.
// includeUnscoped ORs in legacy rows that have no org at all.
func buildScopeCondition(scope types.Scope, requested types.ScopeLevel, includeUnscoped bool, tableAlias string) scopeCondition {
	level := NormalizeScopeLevel(scope, requested)

	qualify := func(column string) string {
		if tableAlias == "" {
			return column
		}
		return tableAlias + "." + column
	}

	sql := qualify("org_id") + " = ?"
	params := []any{scope.OrgID}

	switch level {
	case types.LevelWorkspace:
		sql += " AND " + qualify("workspace_id") + " = ?"
		params = append(params, *scope.WorkspaceID)
	case types.LevelProject:
		sql += " AND " + qualify("project_id") + " = ?"
		params = append(params, *scope.ProjectID)
	case types.LevelRepo:
		sql += " AND " + qualify("repo_id") + " = ?"
		params = append(params, *scope.RepoID)
	}

	if includeUnscoped {
		sql = fmt.Sprintf("(%s OR %s IS NULL)", sql, qualify("org_id"))
	}

	return scopeCondition{SQL: sql, Params: params, Level: level}
}
