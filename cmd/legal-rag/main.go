// Package main provides the legal-rag CLI for ingesting judgements and asking questions.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/legal-rag/internal/answer"
	"github.com/bull/legal-rag/internal/app"
	"github.com/bull/legal-rag/internal/config"
	"github.com/bull/legal-rag/internal/document"
	"github.com/bull/legal-rag/internal/indexer"
	"github.com/bull/legal-rag/internal/storage"
)

// errReported marks a failure whose message was already printed.
var errReported = errors.New("reported")

var (
	configPath string
	verbose    bool
	githubSrc  string
	dataDir    string
	topK       int
)

var rootCmd = &cobra.Command{
	Use:           "legal-rag",
	Short:         "Question answering over Indian legal judgements",
	Long:          "CLI tool for indexing legal judgements into a vector store and answering questions from them with citations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the index from the document corpus",
	Long: `Drops the collection and rebuilds it from every document in the corpus.

This command:
1. Loads .txt, .md and .pdf files from DATA_DIR (or --github owner/repo/path)
2. Splits them into overlapping chunks
3. Embeds every chunk
4. Recreates the collection and stores the chunks

The existing collection is kept if loading, chunking or embedding fails.

Environment variables:
  GOOGLE_API_KEY   Model provider key (required unless both specific keys are set)
  QDRANT_URL       Qdrant endpoint, e.g. http://localhost:6334
  QDRANT_API_KEY   Qdrant API key (optional)
  DATA_DIR         Local corpus directory (default: data)
  GITHUB_TOKEN     GitHub token for --github sources (optional)`,
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed judgements",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Show the passages retrieved for a query without generating an answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRetrieve,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models visible to the generation credential",
	RunE:  runModels,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	ingestCmd.Flags().StringVar(&githubSrc, "github", "", "ingest from a GitHub directory (owner/repo/path) instead of DATA_DIR")
	ingestCmd.Flags().StringVar(&dataDir, "data-dir", "", "local corpus directory (overrides DATA_DIR)")
	retrieveCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of passages to retrieve (default: TOP_K)")

	rootCmd.AddCommand(ingestCmd, askCmd, retrieveCmd, modelsCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setup loads configuration and builds the shared resources.
func setup(ctx context.Context) (*app.Resources, *slog.Logger, error) {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if githubSrc != "" {
		cfg.Source.GitHub = githubSrc
	}
	if dataDir != "" {
		cfg.Source.DataDir = dataDir
	}

	res, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return res, logger, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	res, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer res.Close()

	if res.Config.Index.Backend == config.BackendMemory {
		fmt.Println("Warning: the memory backend does not persist; the index is lost when this command exits.")
	}

	source, err := res.Source()
	if err != nil {
		return err
	}

	fmt.Println("Starting ingestion...")
	if res.Config.Source.GitHub != "" {
		fmt.Printf("  Source: github.com/%s\n", res.Config.Source.GitHub)
	} else {
		fmt.Printf("  Source: %s\n", res.Config.Source.DataDir)
	}
	fmt.Printf("  Collection: %s\n", res.Config.Index.Collection)
	fmt.Println()

	result, err := res.Pipeline(source).Run(ctx)
	if err != nil {
		printIngestFailure(err)
		return errReported
	}

	fmt.Println("Ingestion complete!")
	fmt.Printf("  Documents: %d (%d empty)\n", result.Documents, result.EmptyDocuments)
	fmt.Printf("  Chunks: %d\n", result.Chunks)
	fmt.Printf("  Committed: %d\n", result.Committed)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func printIngestFailure(err error) {
	fmt.Fprintln(os.Stderr, "Ingestion failed!")

	var ingestErr *indexer.IngestError
	if errors.As(err, &ingestErr) {
		fmt.Fprintf(os.Stderr, "  Stage: %s\n", ingestErr.Stage)
		fmt.Fprintf(os.Stderr, "  Committed: %d\n", ingestErr.Committed)
	}
	fmt.Fprintf(os.Stderr, "  Error: %v\n", err)

	switch {
	case errors.Is(err, document.ErrEmptyCorpus):
		fmt.Fprintln(os.Stderr, "  Hint: add .txt, .md or .pdf files to the corpus directory.")
	case errors.Is(err, document.ErrPDFToolNotFound):
		fmt.Fprintf(os.Stderr, "  Hint: %s\n", document.InstallInstructions())
	case errors.Is(err, storage.ErrIndexUnavailable):
		fmt.Fprintln(os.Stderr, "  Hint: check QDRANT_URL and QDRANT_API_KEY.")
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	res, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer res.Close()

	if _, err := res.Bootstrap(ctx); err != nil {
		return err
	}

	ans, err := res.Answerer.Answer(ctx, question)
	if err != nil {
		printQueryFailure(err)
		return errReported
	}

	fmt.Println(ans.Text)
	if len(ans.Passages) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println("Sources:")
	for _, c := range ans.Citations {
		fmt.Printf("  - %s\n", c)
	}
	fmt.Println()
	for _, p := range ans.Passages {
		printPassage(p)
	}
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	res, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer res.Close()

	if _, err := res.Bootstrap(ctx); err != nil {
		return err
	}

	passages, err := res.Answerer.Retrieve(ctx, query, topK)
	if err != nil {
		printQueryFailure(err)
		return errReported
	}
	if len(passages) == 0 {
		fmt.Println("No passages found. Has the corpus been ingested?")
		return nil
	}

	fmt.Printf("Top %d passages for %q:\n\n", len(passages), query)
	for _, p := range passages {
		printPassage(p)
	}
	return nil
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	res, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer res.Close()

	models, err := res.Models(ctx)
	if err != nil {
		printQueryFailure(err)
		return errReported
	}

	fmt.Printf("Models available to the generation credential (%d):\n", len(models))
	for _, m := range models {
		marker := " "
		if strings.TrimPrefix(m, "models/") == res.Config.Generation.Model {
			marker = "*"
		}
		fmt.Printf(" %s %s\n", marker, m)
	}
	return nil
}

func printPassage(p storage.RetrievedChunk) {
	fmt.Printf("[%d] %s, page %s (score %.4f)\n", p.Rank+1, p.Metadata.SourceID, document.PageLabel(p.Metadata.Page), p.Score)
	fmt.Println(indent(truncate(p.Text, 400)))
	fmt.Println()
}

func printQueryFailure(err error) {
	message, suggestion := answer.Describe(err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
	slog.Debug("query failed", "error", err)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}
