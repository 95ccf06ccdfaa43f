package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fyerfyer/ko-doc-search/api/middleware"
	"github.com/fyerfyer/ko-doc-search/config"
	"github.com/fyerfyer/ko-doc-search/internal/index"
	"github.com/fyerfyer/ko-doc-search/internal/nlp"
	"github.com/fyerfyer/ko-doc-search/internal/services"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <file>...",
	Short: "Index one or more local documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApplication()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			fmt.Fprintf(out, "Indexing %s...\n", path)
			res, err := app.search.IndexFile(ctx, path)
			if err != nil {
				failed++
				fmt.Fprintf(out, "Error occurred during indexing: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "Indexing completed! %d pages, %d chunks\n", res.PageCount, res.ChunkCount)
			if len(res.Keywords) > 0 {
				fmt.Fprintf(out, "Keywords: %s\n", strings.Join(head(res.Keywords, 10), ", "))
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files failed to index", failed, len(args))
		}
		return nil
	},
}

var searchLimit int
var searchFile string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApplication()
		if err != nil {
			return err
		}
		defer app.Close()

		hits, err := app.search.Search(cmd.Context(), strings.Join(args, " "), searchLimit, searchFile)
		if err != nil {
			return err
		}
		printResults(cmd.OutOrStdout(), hits)
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Show the morphological analysis and keywords of a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		result, err := newAnalysisService(cfg).Analyze(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		printAnalysis(cmd.OutOrStdout(), result)
		return nil
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Demonstrate compound word detection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		demo := newAnalysisService(cfg).Demonstrate()
		printCompounds(cmd.OutOrStdout(), demo)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFile, "file", "", "Only search the given file name")
}

// openApplication 供一次性命令使用，不连接任务队列
func openApplication() (*application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApplication(cfg, false)
}

// newAnalysisService 不依赖数据库和索引的分析服务
func newAnalysisService(cfg *config.Config) *services.AnalysisService {
	logger := middleware.GetLogger()
	analyzer := nlp.NewAnalyzer(
		nlp.WithLogger(logger),
		nlp.WithMaxKeywords(cfg.Analyzer.MaxKeywords),
	)
	return services.NewAnalysisService(analyzer, nil, 0, logger)
}

func printResults(w io.Writer, hits []index.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No search results found.")
		return
	}

	fmt.Fprintln(w, "\n=== Search Results ===")
	for i, h := range hits {
		fmt.Fprintf(w, "%d. Score: %.2f, Page: %d, File: %s\n", i+1, h.Score, h.PageNumber, h.FileName)
		fmt.Fprintf(w, "Content: %s\n", h.Content)
		fmt.Fprintln(w, "---")
	}
}

func printAnalysis(w io.Writer, a *services.Analysis) {
	fmt.Fprintf(w, "Normalized: %s\n", a.Normalized)
	fmt.Fprintf(w, "Tokens:     %s\n", strings.Join(a.Tokens, " "))
	fmt.Fprintf(w, "Processed:  %s\n", a.Processed)
	fmt.Fprintln(w, "Keywords:")
	for i, k := range a.Keywords {
		fmt.Fprintf(w, "  %2d. %s (%.3f)\n", i+1, k.Term, k.Score)
	}
	fmt.Fprintf(w, "Variations: %s\n", strings.Join(a.Variations, ", "))
}

func printCompounds(w io.Writer, demo map[string][]string) {
	words := make([]string, 0, len(demo))
	for word := range demo {
		words = append(words, word)
	}
	sort.Strings(words)

	fmt.Fprintln(w, "=== Compound Word Detection ===")
	for _, word := range words {
		parts := demo[word]
		if len(parts) == 0 {
			fmt.Fprintf(w, "%s -> (not a compound)\n", word)
			continue
		}
		fmt.Fprintf(w, "%s -> %s\n", word, strings.Join(parts, " + "))
	}
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
