package command

import (
	"encoding/json"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/spf13/cobra"
)

// NewPullCmd creates the pull command.
func NewPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull <topic>",
		Short: "Claim the next pending event on a topic",
		Args:  cobra.ExactArgs(1),
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

			agent, _ := cmd.Flags().GetString("agent")
			if agent == "" {
				agent = ctx.Config.Poll.Agent
			}

			opts := types.ClaimOptions{
				Topic:           args[0],
				Agent:           agent,
				Scope:           scope,
				Level:           level,
				IncludeUnscoped: includeUnscoped,
			}

			var event *types.Event
			if handoff, _ := cmd.Flags().GetBool("handoff"); handoff {
				recipient, _ := cmd.Flags().GetString("recipient")
				if recipient == "" {
					recipient = agent
				}
				event, err = db.ClaimNextHandoffEvent(ctx.DB, types.HandoffClaimOptions{
					ClaimOptions: opts,
					Recipient:    recipient,
				})
			} else {
				event, err = db.ClaimNextEvent(ctx.DB, opts)
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if event == nil {
				if ctx.JSONMode {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(nil)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No pending events.")
				return nil
			}

			claimed := types.ClaimedEvent{Event: *event}
			topic, err := db.GetTopicByName(ctx.DB, event.Topic)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if topic != nil {
				claimed.SystemPrompt = topic.SystemPrompt
			}

			if copyBody, _ := cmd.Flags().GetBool("copy"); copyBody {
				if err := clipboard.WriteAll(event.Body); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: clipboard copy failed: %s\n", err)
				}
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(claimed)
			}

			out := cmd.OutOrStdout()
			if claimed.SystemPrompt != nil {
				fmt.Fprintln(out, promptStyle.Render(*claimed.SystemPrompt))
			}
			fmt.Fprintln(out, FormatEvent(*event))
			fmt.Fprintln(out, event.Body)
			return nil
		},
	}

	cmd.Flags().String("agent", "", "claiming agent name (default: configured poll agent)")
	cmd.Flags().Bool("handoff", false, "only claim events addressed to the recipient")
	cmd.Flags().String("recipient", "", "handoff recipient (default: the agent)")
	cmd.Flags().Bool("copy", false, "copy the event body to the clipboard")
	addScopeFlags(cmd)

	return cmd
}
