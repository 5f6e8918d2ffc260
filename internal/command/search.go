package command

import (
	"github.com/keybrdist/makiso/internal/db"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over event bodies",
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

			everywhere, _ := cmd.Flags().GetBool("everywhere")
			scopeFilter := &scope
			if everywhere {
				scopeFilter = nil
			}

			events, err := db.SearchEvents(ctx.DB, args[0], scopeFilter, level, includeUnscoped)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printEvents(cmd, ctx, events)
		},
	}

	cmd.Flags().Bool("everywhere", false, "search across all scopes")
	addScopeFlags(cmd)

	return cmd
}
