package command

import (
	"encoding/json"
	"fmt"

	"github.com/keybrdist/makiso/internal/db"
	"github.com/spf13/cobra"
)

// NewTopicsCmd creates the topics command group.
func NewTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List and manage topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			topics, err := db.ListTopics(ctx.DB)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(topics)
			}

			out := cmd.OutOrStdout()
			if len(topics) == 0 {
				fmt.Fprintln(out, "No topics.")
				return nil
			}
			for _, topic := range topics {
				fmt.Fprintln(out, FormatTopic(topic))
			}
			return nil
		},
	}

	cmd.AddCommand(newTopicsSetCmd())
	return cmd
}

func newTopicsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Create a topic or update its prompt and description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.DB.Close()

			var systemPrompt, description *string
			if cmd.Flags().Changed("prompt") {
				value, _ := cmd.Flags().GetString("prompt")
				systemPrompt = &value
			}
			if cmd.Flags().Changed("description") {
				value, _ := cmd.Flags().GetString("description")
				description = &value
			}

			topic, err := db.UpsertTopic(ctx.DB, args[0], systemPrompt, description)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(topic)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Topic %s saved.\n", topic.Name)
			return nil
		},
	}

	cmd.Flags().String("prompt", "", "system prompt delivered with every claim")
	cmd.Flags().String("description", "", "human description of the topic")

	return cmd
}
