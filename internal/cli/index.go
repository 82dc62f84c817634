package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var indexRecreate bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index all registered content types into the vector store",
	Long: `Pulls every registered content type from the content source, splits it
into chunks, embeds each chunk through the two-level cache, and uploads
the points in batches. Without --recreate the collection is created only
if absent and previously stored vectors are reused by content hash.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRecreate, "recreate", false, "delete and recreate the collection before indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	app, err := buildApp(environment())
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Indexer.Run(context.Background(), indexRecreate)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Printf("Run %s finished in %s\n", result.RunID, result.Elapsed.Round(10*time.Millisecond))
	cmd.Printf("  chunks uploaded: %d\n", result.ChunkCount)
	cmd.Printf("  chunks failed:   %d\n", result.FailedChunks)
	cmd.Printf("  items skipped:   %d\n", result.SkippedItems)
	cmd.Printf("  cache hits:      %d (%.1f%%)\n", result.Stats.Cached, result.Stats.HitRate)
	cmd.Printf("  store cache:     %d\n", result.StoreCached)
	cmd.Printf("  new embeddings:  %d\n", result.Stats.New)

	for _, item := range result.Items {
		if item.Indexed {
			cmd.Printf("  [%s] %d %q: %d chars, %d chunks\n",
				item.Type, item.ItemID, item.Title, item.Chars, item.Chunks)
		} else {
			cmd.Printf("  [%s] %d %q: skipped (%s)\n",
				item.Type, item.ItemID, item.Title, item.Reason)
		}
	}
	return nil
}
