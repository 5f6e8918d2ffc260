package command

import (
	"encoding/json"
	"fmt"

	"github.com/keybrdist/makiso/internal/db"
	"github.com/spf13/cobra"
)

// NewContextCmd creates the context command group for the saved scope.
func NewContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Show or manage the saved scope context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			stored, err := db.GetStoredContext(ctx.DB)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(stored)
			}

			out := cmd.OutOrStdout()
			printLevel := func(name string, value *string) {
				if value == nil {
					fmt.Fprintf(out, "%s: (unset)\n", name)
					return
				}
				fmt.Fprintf(out, "%s: %s\n", name, *value)
			}
			printLevel("org", stored.OrgID)
			printLevel("workspace", stored.WorkspaceID)
			printLevel("project", stored.ProjectID)
			printLevel("repo", stored.RepoID)
			return nil
		},
	}

	cmd.AddCommand(newContextSetCmd(), newContextClearCmd())
	return cmd
}

func newContextSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save scope levels for future commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			patch := scopeOverridesFromFlags(cmd)
			if patch.Org == nil && patch.Workspace == nil && patch.Project == nil && patch.Repo == nil {
				return writeCommandError(cmd, fmt.Errorf("nothing to save. Use --org, --workspace, --project, or --repo"))
			}

			saved, err := db.SaveContext(ctx.DB, patch)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(saved)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Context saved.")
			return nil
		},
	}

	addScopeFlags(cmd)
	return cmd
}

func newContextClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved scope context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			if err := db.ClearSavedContext(ctx.DB); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]bool{"cleared": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Context cleared.")
			return nil
		},
	}
}
