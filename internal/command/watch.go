package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/keybrdist/makiso/internal/poller"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <topic>",
		Short: "Continuously claim events as they arrive",
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
			handoff, _ := cmd.Flags().GetBool("handoff")
			recipient, _ := cmd.Flags().GetString("recipient")
			if recipient == "" {
				recipient = agent
			}
			notify, _ := cmd.Flags().GetBool("notify")
			intervalMillis, _ := cmd.Flags().GetInt("interval")
			if intervalMillis == 0 {
				intervalMillis = ctx.Config.Poll.Interval
			}

			out := cmd.OutOrStdout()
			p := poller.New(ctx.DB, poller.Options{
				TriggerPath: ctx.Config.TriggerPath(),
				Interval:    time.Duration(intervalMillis) * time.Millisecond,
				Handoff:     handoff,
				Recipient:   recipient,
				Claim: types.ClaimOptions{
					Topic:           args[0],
					Agent:           agent,
					Scope:           scope,
					Level:           level,
					IncludeUnscoped: includeUnscoped,
				},
				OnEvent: func(event types.ClaimedEvent) {
					if ctx.JSONMode {
						_ = json.NewEncoder(out).Encode(event)
					} else {
						fmt.Fprintln(out, FormatEvent(event.Event))
					}
					if notify {
						_ = beeep.Notify(AppName, event.Body, "")
					}
				},
			}, zerolog.Nop())

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !ctx.JSONMode {
				fmt.Fprintf(out, "Watching %s as %s. Ctrl-C to stop.\n", args[0], agent)
			}
			if err := p.Run(runCtx); err != nil && err != context.Canceled {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().String("agent", "", "claiming agent name (default: configured poll agent)")
	cmd.Flags().Bool("handoff", false, "only claim events addressed to the recipient")
	cmd.Flags().String("recipient", "", "handoff recipient (default: the agent)")
	cmd.Flags().Bool("notify", false, "send a desktop notification per event")
	cmd.Flags().Int("interval", 0, "poll interval in milliseconds (default: configured)")
	addScopeFlags(cmd)

	return cmd
}
