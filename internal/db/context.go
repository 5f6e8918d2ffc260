package db

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/types"
)

const (
	contextKeyOrg       = "context.org_id"
	contextKeyWorkspace = "context.workspace_id"
	contextKeyProject   = "context.project_id"
	contextKeyRepo      = "context.repo_id"
)

// normalizeScopeValue trims the value and maps the "none"/"null" sentinels
// (and emptiness) to nil, meaning "no value at this level".
func normalizeScopeValue(value *string) *string {
	if value == nil {
		return nil
	}
	normalized := strings.TrimSpace(*value)
	if normalized == "" || normalized == "none" || normalized == "null" {
		return nil
	}
	return &normalized
}

// GetStoredContext loads the saved scope context from the metadata table.
// Missing keys come back nil.
func GetStoredContext(conn *sql.DB) (types.StoredScope, error) {
	rows, err := conn.Query(`
		SELECT key, value FROM metadata WHERE key IN (?, ?, ?, ?)
	`, contextKeyOrg, contextKeyWorkspace, contextKeyProject, contextKeyRepo)
	if err != nil {
		return types.StoredScope{}, err
	}
	defer rows.Close()

	lookup := make(map[string]string, 4)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return types.StoredScope{}, err
		}
		lookup[key] = value
	}
	if err := rows.Err(); err != nil {
		return types.StoredScope{}, err
	}

	pick := func(key string) *string {
		if value, ok := lookup[key]; ok {
			return &value
		}
		return nil
	}
	return types.StoredScope{
		OrgID:       pick(contextKeyOrg),
		WorkspaceID: pick(contextKeyWorkspace),
		ProjectID:   pick(contextKeyProject),
		RepoID:      pick(contextKeyRepo),
	}, nil
}

// SaveContext merges the patch into the saved context and persists it. A nil
// patch field keeps the current value; the "none"/"null" sentinels clear the
// level. The result must have an org or nothing is written.
func SaveContext(conn *sql.DB, patch types.ScopeOverrides) (types.StoredScope, error) {
	current, err := GetStoredContext(conn)
	if err != nil {
		return types.StoredScope{}, err
	}

	merge := func(override *string, existing *string) *string {
		if override == nil {
			return existing
		}
		return normalizeScopeValue(override)
	}
	next := types.StoredScope{
		OrgID:       merge(patch.Org, current.OrgID),
		WorkspaceID: merge(patch.Workspace, current.WorkspaceID),
		ProjectID:   merge(patch.Project, current.ProjectID),
		RepoID:      merge(patch.Repo, current.RepoID),
	}

	if next.OrgID == nil {
		return types.StoredScope{}, errors.New("org is required for saved context")
	}

	tx, err := conn.Begin()
	if err != nil {
		return types.StoredScope{}, err
	}
	entries := []struct {
		key   string
		value *string
	}{
		{contextKeyOrg, next.OrgID},
		{contextKeyWorkspace, next.WorkspaceID},
		{contextKeyProject, next.ProjectID},
		{contextKeyRepo, next.RepoID},
	}
	for _, entry := range entries {
		if entry.value == nil {
			if _, err := tx.Exec("DELETE FROM metadata WHERE key = ?", entry.key); err != nil {
				_ = tx.Rollback()
				return types.StoredScope{}, err
			}
			continue
		}
		if _, err := tx.Exec(`
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, entry.key, *entry.value); err != nil {
			_ = tx.Rollback()
			return types.StoredScope{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return types.StoredScope{}, err
	}
	return next, nil
}

// ClearSavedContext removes all saved context keys.
func ClearSavedContext(conn *sql.DB) error {
	_, err := conn.Exec(`
		DELETE FROM metadata WHERE key IN (?, ?, ?, ?)
	`, contextKeyOrg, contextKeyWorkspace, contextKeyProject, contextKeyRepo)
	return err
}

// ResolveScope computes the effective scope for an operation. Per level the
// priority is: explicit override, saved context, configured default, then
// (for repo only) the ambient probe. An override carrying the "none"/"null"
// sentinel pins the level to "no value", skipping the lower-priority
// sources. Org can never end up empty: it falls back to core.DefaultOrg.
func ResolveScope(conn *sql.DB, cfg *core.Config, overrides types.ScopeOverrides, probe core.RepoProbe, cwd string) (types.Scope, error) {
	stored, err := GetStoredContext(conn)
	if err != nil {
		return types.Scope{}, err
	}

	resolve := func(override *string, saved *string, fallback string) *string {
		if override != nil {
			return normalizeScopeValue(override)
		}
		if saved != nil {
			return saved
		}
		return normalizeScopeValue(&fallback)
	}

	org := resolve(overrides.Org, stored.OrgID, cfg.Scope.Org)
	workspace := resolve(overrides.Workspace, stored.WorkspaceID, cfg.Scope.Workspace)
	project := resolve(overrides.Project, stored.ProjectID, cfg.Scope.Project)
	repo := resolve(overrides.Repo, stored.RepoID, cfg.Scope.Repo)

	if repo == nil && overrides.Repo == nil && probe != nil {
		if detected := probe.RepoID(cwd); detected != "" {
			repo = &detected
		}
	}

	orgID := core.DefaultOrg
	if org != nil {
		orgID = *org
	}

	return types.Scope{
		OrgID:       orgID,
		WorkspaceID: workspace,
		ProjectID:   project,
		RepoID:      repo,
	}, nil
}
