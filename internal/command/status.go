package command

import (
	"encoding/json"
	"fmt"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [topic]",
		Short: "Show queue depth by status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			scope, level, includeUnscoped, err := resolveScopeFromFlags(ctx, cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			topic := ""
			if len(args) == 1 {
				topic = args[0]
			}

			counts, err := db.CountEventsByStatus(ctx.DB, topic, &scope, level, includeUnscoped)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(counts)
			}

			out := cmd.OutOrStdout()
			total := 0
			for _, status := range []types.EventStatus{
				types.StatusPending, types.StatusProcessing, types.StatusCompleted, types.StatusFailed,
			} {
				fmt.Fprintf(out, "%s: %d\n", statusLabel(status), counts[status])
				total += counts[status]
			}
			fmt.Fprintf(out, "total: %d\n", total)
			return nil
		},
	}

	addScopeFlags(cmd)
	cmd.AddCommand(newStatusSetCmd())
	return cmd
}

// newStatusSetCmd creates the status set subcommand, a direct override with
// no transition guard. Setting completed back to pending re-queues an event.
func newStatusSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <event-id> <status>",
		Short: "Set an event's status directly",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			status := types.EventStatus(args[1])
			if !status.IsValid() {
				return writeCommandError(cmd, fmt.Errorf("invalid status: %s", args[1]))
			}

			event, err := db.UpdateEventStatus(ctx.DB, args[0], status, nil)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if event == nil {
				return writeCommandError(cmd, fmt.Errorf("event not found: %s", args[0]))
			}

			// A re-queued event is claimable again, so wake watchers.
			if status == types.StatusPending {
				core.TouchTrigger(ctx.Config.TriggerPath())
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(event)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] Marked %s\n", event.ID, event.Status)
			return nil
		},
	}
}
