package command

import (
	"encoding/json"
	"fmt"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/spf13/cobra"
)

// NewReplyCmd creates the reply command.
func NewReplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reply <event-id> <body>",
		Short: "Resolve a claimed event and publish a correlated reply",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			statusValue, _ := cmd.Flags().GetString("status")
			status := types.EventStatus(statusValue)
			if !status.IsValid() {
				return writeCommandError(cmd, fmt.Errorf("invalid status: %s", statusValue))
			}

			original, err := db.GetEvent(ctx.DB, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if original == nil {
				return writeCommandError(cmd, fmt.Errorf("event not found: %s", args[0]))
			}

			if _, err := db.UpdateEventStatus(ctx.DB, original.ID, status, nil); err != nil {
				return writeCommandError(cmd, err)
			}

			// Replies stay on the thread: they inherit the correlation id,
			// or start one rooted at the original event.
			correlationID := original.ID
			if original.CorrelationID != nil {
				correlationID = *original.CorrelationID
			}

			source, _ := cmd.Flags().GetString("source")
			reply, indexErr, err := db.PublishEvent(ctx.DB, types.NewEventInput{
				Topic:         original.Topic,
				Body:          args[1],
				CorrelationID: &correlationID,
				ParentID:      &original.ID,
				Source:        source,
				Scope: types.Scope{
					OrgID:       orDefault(original.OrgID),
					WorkspaceID: original.WorkspaceID,
					ProjectID:   original.ProjectID,
					RepoID:      original.RepoID,
				},
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if indexErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: indexing failed: %s\n", indexErr)
			}

			core.TouchTrigger(ctx.Config.TriggerPath())

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(reply)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] Marked %s, replied as [%s]\n", original.ID, status, reply.ID)
			return nil
		},
	}

	cmd.Flags().String("status", string(types.StatusCompleted), "resolution status: pending, processing, completed, or failed")
	cmd.Flags().String("source", "", "event source label (default: agent)")

	return cmd
}

func orDefault(org *string) string {
	if org != nil {
		return *org
	}
	return core.DefaultOrg
}
