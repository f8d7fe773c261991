package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/korpora-labs/korpus-cli/internal/connectors/filesystem"
	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driving"
	"github.com/korpora-labs/korpus-cli/internal/logger"
)

var (
	ingestBatchSize int
	ingestPrune     bool
	ingestWatch     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Ingest documents from a directory",
	Long: `Walks a directory tree and ingests every supported document into the
vector index. Unchanged files are skipped; modified files replace their
previously indexed version.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 16, "documents per ingestion batch")
	ingestCmd.Flags().BoolVar(&ingestPrune, "prune", false, "remove index entries for files no longer present")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the directory for changes")
	rootCmd.AddCommand(ingestCmd)
}

//nolint:gocyclo // Orchestration function with necessary sequential steps
func runIngest(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := ingestService
	if svc == nil {
		built, orchestrator, buildErr := buildIngestServices(appConfig, "filesystem")
		if buildErr != nil {
			return buildErr
		}
		defer built.Close()
		if ensureErr := built.index.EnsureCollection(ctx, appConfig.Qdrant.Collection,
			built.embedder.Dimensions(), "Cosine"); ensureErr != nil {
			return fmt.Errorf("ensure collection: %w", ensureErr)
		}
		svc = orchestrator
	}

	conn := filesystem.New(root, appConfig.User, appConfig.Ingest.Excludes)
	defer conn.Close()
	if err := conn.Validate(ctx); err != nil {
		return err
	}

	cmd.Printf("Ingesting %s\n", root)
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)

	docs, errs := conn.Fetch(ctx)
	total := domain.BatchResult{}
	present := make(map[string]struct{})
	batch := make([]domain.SourceDocument, 0, ingestBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		result, batchErr := svc.IngestBatch(ctx, batch)
		if result != nil {
			total.Processed += result.Processed
			total.Skipped += result.Skipped
			total.Failed += result.Failed
			_ = bar.Add(result.Total())
		}
		batch = batch[:0]
		return batchErr
	}

	var fetchErr error
loop:
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case doc, ok := <-docs:
			if !ok {
				break loop
			}
			present[doc.SourcePath] = struct{}{}
			batch = append(batch, doc)
			if len(batch) >= ingestBatchSize {
				if err := flush(); err != nil {
					logger.Warn("Batch failed: %v", err)
				}
			}
		case err, ok := <-errs:
			if ok && err != nil {
				fetchErr = err
			}
		}
	}
	if err := flush(); err != nil {
		logger.Warn("Batch failed: %v", err)
	}
	_ = bar.Finish()
	cmd.Println()

	if fetchErr != nil {
		return fmt.Errorf("fetch documents: %w", fetchErr)
	}

	cmd.Printf("Done: %d processed, %d skipped, %d failed\n",
		total.Processed, total.Skipped, total.Failed)

	if ingestPrune {
		removed, pruneErr := svc.Reconcile(ctx, present)
		if pruneErr != nil {
			return fmt.Errorf("prune: %w", pruneErr)
		}
		cmd.Printf("Pruned %d vanished files\n", removed)
	}

	if ingestWatch {
		return watchAndIngest(ctx, cmd, conn, svc)
	}
	return nil
}

// watchAndIngest ingests documents as the connector reports changes,
// until the context is cancelled.
func watchAndIngest(ctx context.Context, cmd *cobra.Command, conn *filesystem.Connector, svc driving.IngestionService) error {
	changes, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	cmd.Println("Watching for changes (Ctrl-C to stop)...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case doc, ok := <-changes:
			if !ok {
				return nil
			}
			if err := svc.IngestOne(ctx, doc); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Warn("Ingest of %s failed: %v", doc.SourcePath, err)
				continue
			}
			cmd.Printf("Ingested %s\n", doc.SourcePath)
		}
	}
}
