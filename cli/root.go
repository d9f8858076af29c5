package cli

import (
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sanctiond",
		Short: "sanctiond runs community sanction votes for a wiki platform",
	}
	cmd.AddCommand(
		ProposeCommand(),
		SweepCommand(),
		SyncCommand(),
		DBCommand(),
	)
	return cmd
}
