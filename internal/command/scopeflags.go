package command

import (
	"fmt"
	"os"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/spf13/cobra"
)

// repoProbe detects the ambient repository. Tests swap in a static probe.
var repoProbe core.RepoProbe = core.GitProbe{}

// addScopeFlags registers the scope selection flags shared by every
// scope-aware command.
func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().String("org", "", "org scope (use 'none' to clear)")
	cmd.Flags().String("workspace", "", "workspace scope (use 'none' to clear)")
	cmd.Flags().String("project", "", "project scope (use 'none' to clear)")
	cmd.Flags().String("repo", "", "repo scope (use 'none' to clear)")
	cmd.Flags().String("scope-level", "", "match at this level: org, workspace, project, repo")
	cmd.Flags().Bool("include-unscoped", false, "also match events that have no scope")
}

// scopeOverridesFromFlags distinguishes "flag not given" from "flag given",
// including an explicitly empty value, which acts as a clear.
func scopeOverridesFromFlags(cmd *cobra.Command) types.ScopeOverrides {
	pick := func(name string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		value, _ := cmd.Flags().GetString(name)
		return &value
	}
	return types.ScopeOverrides{
		Org:       pick("org"),
		Workspace: pick("workspace"),
		Project:   pick("project"),
		Repo:      pick("repo"),
	}
}

// resolveScopeFromFlags computes the effective scope plus the requested
// match level for the command invocation.
func resolveScopeFromFlags(ctx *CommandContext, cmd *cobra.Command) (types.Scope, types.ScopeLevel, bool, error) {
	levelValue, _ := cmd.Flags().GetString("scope-level")
	level := types.ScopeLevel(levelValue)
	if level != "" && !level.IsValid() {
		return types.Scope{}, "", false, fmt.Errorf("invalid scope level: %s", levelValue)
	}
	includeUnscoped, _ := cmd.Flags().GetBool("include-unscoped")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	scope, err := db.ResolveScope(ctx.DB, ctx.Config, scopeOverridesFromFlags(cmd), repoProbe, cwd)
	if err != nil {
		return types.Scope{}, "", false, err
	}
	return scope, level, includeUnscoped, nil
}
