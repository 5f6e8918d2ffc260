package command

import (
	"encoding/json"
	"fmt"

	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the cleanup command.
func NewCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove events past their retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			completedDays, _ := cmd.Flags().GetInt("completed-days")
			pendingDays, _ := cmd.Flags().GetInt("pending-days")
			if completedDays == 0 {
				completedDays = ctx.Config.Retention.Completed
			}
			if pendingDays == 0 {
				pendingDays = ctx.Config.Retention.Pending
			}

			opts := types.CleanupOptions{
				CompletedRetentionDays: completedDays,
				PendingRetentionDays:   pendingDays,
			}

			if everywhere, _ := cmd.Flags().GetBool("everywhere"); !everywhere {
				scope, level, includeUnscoped, scopeErr := resolveScopeFromFlags(ctx, cmd)
				if scopeErr != nil {
					return writeCommandError(cmd, scopeErr)
				}
				opts.Scope = &scope
				opts.Level = level
				opts.IncludeUnscoped = includeUnscoped
			}

			removed, err := db.CleanupEvents(ctx.DB, opts)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int64{"removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d events.\n", removed)
			return nil
		},
	}

	cmd.Flags().Int("completed-days", 0, "retention for completed/failed events (default: configured)")
	cmd.Flags().Int("pending-days", 0, "retention for pending events (default: configured)")
	cmd.Flags().Bool("everywhere", false, "clean all scopes, not just the current one")
	addScopeFlags(cmd)

	return cmd
}
