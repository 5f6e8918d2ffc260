package command

import (
	"encoding/json"
	"fmt"

	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/spf13/cobra"
)

// NewQueryCmd creates the query command.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List events by topic, status, mention, or tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			mention, _ := cmd.Flags().GetString("mention")
			tool, _ := cmd.Flags().GetString("tool")
			if mention != "" && tool != "" {
				return writeCommandError(cmd, fmt.Errorf("--mention and --tool are mutually exclusive"))
			}

			var events []types.Event
			switch {
			case mention != "":
				if mention[0] != '@' {
					mention = "@" + mention
				}
				events, err = db.EventsByMention(ctx.DB, mention)
			case tool != "":
				events, err = db.EventsByTool(ctx.DB, tool)
			default:
				scope, level, includeUnscoped, scopeErr := resolveScopeFromFlags(ctx, cmd)
				if scopeErr != nil {
					return writeCommandError(cmd, scopeErr)
				}
				topic, _ := cmd.Flags().GetString("topic")
				statusValue, _ := cmd.Flags().GetString("status")
				status := types.EventStatus(statusValue)
				if statusValue != "" && !status.IsValid() {
					return writeCommandError(cmd, fmt.Errorf("invalid status: %s", statusValue))
				}
				limit, _ := cmd.Flags().GetInt("limit")
				events, err = db.ListEvents(ctx.DB, db.ListOptions{
					Topic:           topic,
					Status:          status,
					Scope:           &scope,
					Level:           level,
					IncludeUnscoped: includeUnscoped,
					Limit:           limit,
				})
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}

			return printEvents(cmd, ctx, events)
		},
	}

	cmd.Flags().String("topic", "", "filter by topic")
	cmd.Flags().String("status", "", "filter by status")
	cmd.Flags().String("mention", "", "events mentioning an agent")
	cmd.Flags().String("tool", "", "events referencing a tool")
	cmd.Flags().Int("limit", 50, "maximum events to return")
	addScopeFlags(cmd)

	return cmd
}

func printEvents(cmd *cobra.Command, ctx *CommandContext, events []types.Event) error {
	if ctx.JSONMode {
		if events == nil {
			events = []types.Event{}
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(events)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No events.")
		return nil
	}
	for _, event := range events {
		fmt.Fprintln(out, FormatEvent(event))
	}
	return nil
}
