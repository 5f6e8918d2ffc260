package command

import (
	"encoding/json"
	"fmt"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/spf13/cobra"
)

// NewPushCmd creates the push command.
func NewPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <topic> <body>",
		Short: "Publish an event to a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			scope, _, _, err := resolveScopeFromFlags(ctx, cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			metadata, _ := cmd.Flags().GetString("metadata")
			correlationID, _ := cmd.Flags().GetString("correlation-id")
			parentID, _ := cmd.Flags().GetString("parent-id")
			source, _ := cmd.Flags().GetString("source")

			input := types.NewEventInput{
				Topic:  args[0],
				Body:   args[1],
				Source: source,
				Scope:  scope,
			}
			if metadata != "" {
				input.Metadata = &metadata
			}
			if correlationID != "" {
				input.CorrelationID = &correlationID
			}
			if parentID != "" {
				input.ParentID = &parentID
			}

			event, indexErr, err := db.PublishEvent(ctx.DB, input)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if indexErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: indexing failed: %s\n", indexErr)
			}

			core.TouchTrigger(ctx.Config.TriggerPath())

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(event)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] Pushed to %s\n", event.ID, event.Topic)
			return nil
		},
	}

	cmd.Flags().String("metadata", "", "opaque metadata, typically JSON")
	cmd.Flags().String("correlation-id", "", "correlation id linking a reply chain")
	cmd.Flags().String("parent-id", "", "event this replies to")
	cmd.Flags().String("source", "", "event source label (default: agent)")
	addScopeFlags(cmd)

	return cmd
}
