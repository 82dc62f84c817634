// Package cli implements the ragline command tree: index, query, serve,
// cache, version.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/config"
)

var envFlag string

var rootCmd = &cobra.Command{
	Use:           "ragline",
	Short:         "ragline indexes CMS content into a vector database and answers questions over it",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. It is the only entry point main calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "environment name (local, dev, prod); defaults to $ENV")
}

func environment() string {
	if envFlag != "" {
		return envFlag
	}
	return config.GetEnv()
}
