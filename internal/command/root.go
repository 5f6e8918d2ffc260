package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "makiso"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Makiso - durable event queue for agents",
		Long:          "Makiso is a durable, scoped, single-claim event queue for coordinating agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewPushCmd(),
		NewPullCmd(),
		NewReplyCmd(),
		NewStatusCmd(),
		NewQueryCmd(),
		NewSearchCmd(),
		NewTopicsCmd(),
		NewContextCmd(),
		NewCleanupCmd(),
		NewWatchCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
