package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local embedding cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached embedding under the configured prefix",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(environment())
	if err != nil {
		return err
	}
	defer app.Close()

	count, err := app.Embedder.ClearCache(context.Background())
	if err != nil {
		return err
	}

	cmd.Printf("Deleted %d cache entries\n", count)
	return nil
}
