package db

import (
	"testing"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/types"
)

func testConfig() *core.Config {
	cfg := &core.Config{}
	cfg.Scope.Org = core.DefaultOrg
	return cfg
}

func TestResolveScopeDefaults(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	scope, err := ResolveScope(conn, testConfig(), types.ScopeOverrides{}, core.NoProbe{}, ".")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if scope.OrgID != core.DefaultOrg {
		t.Fatalf("expected default org, got %s", scope.OrgID)
	}
	if scope.WorkspaceID != nil || scope.ProjectID != nil || scope.RepoID != nil {
		t.Fatal("expected empty levels")
	}
}

func TestResolveScopePriority(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	cfg := testConfig()
	cfg.Scope.Workspace = "ws-config"

	// Saved context beats the configured default.
	if _, err := SaveContext(conn, types.ScopeOverrides{
		Org:       strPtr("acme"),
		Workspace: strPtr("ws-saved"),
	}); err != nil {
		t.Fatalf("save context: %v", err)
	}

	scope, err := ResolveScope(conn, cfg, types.ScopeOverrides{}, core.NoProbe{}, ".")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if scope.OrgID != "acme" {
		t.Fatalf("expected saved org, got %s", scope.OrgID)
	}
	if scope.WorkspaceID == nil || *scope.WorkspaceID != "ws-saved" {
		t.Fatalf("expected saved workspace, got %v", scope.WorkspaceID)
	}

	// An explicit override beats the saved context.
	scope, err = ResolveScope(conn, cfg, types.ScopeOverrides{Workspace: strPtr("ws-flag")}, core.NoProbe{}, ".")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if scope.WorkspaceID == nil || *scope.WorkspaceID != "ws-flag" {
		t.Fatalf("expected override workspace, got %v", scope.WorkspaceID)
	}
}

func TestResolveScopeSentinelClears(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	if _, err := SaveContext(conn, types.ScopeOverrides{
		Org:  strPtr("acme"),
		Repo: strPtr("saved-repo"),
	}); err != nil {
		t.Fatalf("save context: %v", err)
	}

	// "none" pins repo to no value; the probe must not refill it.
	scope, err := ResolveScope(conn, testConfig(), types.ScopeOverrides{Repo: strPtr("none")}, core.StaticProbe{ID: "probed"}, ".")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if scope.RepoID != nil {
		t.Fatalf("expected cleared repo, got %v", *scope.RepoID)
	}

	// Clearing org falls back to the default org, never empty.
	scope, err = ResolveScope(conn, testConfig(), types.ScopeOverrides{Org: strPtr("none")}, core.NoProbe{}, ".")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if scope.OrgID != core.DefaultOrg {
		t.Fatalf("expected default org, got %s", scope.OrgID)
	}
}

func TestResolveScopeRepoProbe(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	scope, err := ResolveScope(conn, testConfig(), types.ScopeOverrides{}, core.StaticProbe{ID: "detected"}, ".")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if scope.RepoID == nil || *scope.RepoID != "detected" {
		t.Fatalf("expected probed repo, got %v", scope.RepoID)
	}

	// A saved repo takes priority over the probe.
	if _, err := SaveContext(conn, types.ScopeOverrides{
		Org:  strPtr("acme"),
		Repo: strPtr("saved-repo"),
	}); err != nil {
		t.Fatalf("save context: %v", err)
	}
	scope, err = ResolveScope(conn, testConfig(), types.ScopeOverrides{}, core.StaticProbe{ID: "detected"}, ".")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if scope.RepoID == nil || *scope.RepoID != "saved-repo" {
		t.Fatalf("expected saved repo, got %v", scope.RepoID)
	}
}

func TestSaveContextRequiresOrg(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	if _, err := SaveContext(conn, types.ScopeOverrides{Workspace: strPtr("ws")}); err == nil {
		t.Fatal("expected error without org")
	}

	stored, err := GetStoredContext(conn)
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if stored.WorkspaceID != nil {
		t.Fatal("failed save must not persist anything")
	}
}

func TestSaveContextMergeAndClear(t *testing.T) {
	conn := openTestDB(t)
	requireSchema(t, conn)

	if _, err := SaveContext(conn, types.ScopeOverrides{
		Org:       strPtr("acme"),
		Workspace: strPtr("ws"),
		Project:   strPtr("proj"),
	}); err != nil {
		t.Fatalf("save context: %v", err)
	}

	// Patch a single level; the others survive.
	next, err := SaveContext(conn, types.ScopeOverrides{Project: strPtr("none")})
	if err != nil {
		t.Fatalf("save context: %v", err)
	}
	if next.ProjectID != nil {
		t.Fatal("expected project cleared")
	}
	if next.WorkspaceID == nil || *next.WorkspaceID != "ws" {
		t.Fatal("expected workspace kept")
	}

	if err := ClearSavedContext(conn); err != nil {
		t.Fatalf("clear context: %v", err)
	}
	stored, err := GetStoredContext(conn)
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if stored.OrgID != nil || stored.WorkspaceID != nil {
		t.Fatal("expected empty context after clear")
	}
}
