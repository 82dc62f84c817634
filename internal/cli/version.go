package cli

import (
	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build version information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("ragline %s (commit %s)\n", version.Version, version.Commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
