package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/rag"
)

var (
	queryLimit     int
	queryThreshold float32
	queryLanguage  string
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question over the indexed content",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 5, "maximum number of retrieved chunks")
	queryCmd.Flags().Float32Var(&queryThreshold, "threshold", 0.5, "minimum similarity score")
	queryCmd.Flags().StringVar(&queryLanguage, "language", "", "restrict retrieval to one language")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	app, err := buildApp(environment())
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Engine.Query(context.Background(), rag.QueryRequest{
		Question:       args[0],
		Limit:          queryLimit,
		ScoreThreshold: queryThreshold,
		LanguageFilter: queryLanguage,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(res.Answer)
	if len(res.Sources) > 0 {
		cmd.Println("\nSources:")
		for _, s := range res.Sources {
			cmd.Printf("  - %s (%s)\n", s.Title, s.URL)
		}
	}
	return nil
}
