package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection and cache status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(environment())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	exists, err := app.Qdrant.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		cmd.Printf("Collection %q does not exist; run `ragline index` first\n", app.Config.Qdrant.Collection)
		return nil
	}

	info, err := app.Qdrant.CollectionInfo(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Collection %s: %d points, %d dims, %s distance, status %s\n",
		info.Name, info.PointsCount, info.VectorSize, info.Distance, info.Status)

	if app.Store != nil {
		if err := app.Store.Ping(ctx); err != nil {
			cmd.Printf("Cache: unreachable (%v)\n", err)
		} else {
			cmd.Println("Cache: connected")
		}
	} else {
		cmd.Println("Cache: disabled")
	}
	return nil
}
