package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/korpora-labs/korpus-cli/internal/adapters/driven/ai"
	"github.com/korpora-labs/korpus-cli/internal/adapters/driven/registry/jsonfile"
	"github.com/korpora-labs/korpus-cli/internal/adapters/driven/storage/sqlite"
	"github.com/korpora-labs/korpus-cli/internal/adapters/driven/vector/qdrant"
)

var statusCheckProviders bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheckProviders, "check", false, "also verify LLM and embedding provider connectivity")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := appConfig

	registry, err := jsonfile.Open(cfg.RegistryDir(), cfg.User, "filesystem")
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer registry.Close()

	paths := registry.AllPaths()
	embedded, errored := 0, 0
	for _, path := range paths {
		entry, getErr := registry.Get(path)
		if getErr != nil {
			continue
		}
		if entry.Embedded {
			embedded++
		} else {
			errored++
		}
	}

	cmd.Printf("User:             %s\n", cfg.User)
	cmd.Printf("Registered files: %d\n", len(paths))
	cmd.Printf("  embedded:       %d\n", embedded)
	cmd.Printf("  not embedded:   %d\n", errored)

	store, err := sqlite.NewStore(cfg.MetadataDir())
	if err == nil {
		defer store.Close()
		if n, countErr := store.CountDocuments(ctx); countErr == nil {
			cmd.Printf("Citation records: %d\n", n)
		}
	}

	if cfg.Qdrant.URL != "" {
		index := qdrant.New(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
		})
		defer index.Close()
		if n, countErr := index.Count(ctx); countErr == nil {
			cmd.Printf("Vector points:    %d\n", n)
		} else {
			cmd.Printf("Vector index:     unreachable (%v)\n", countErr)
		}
	}

	if statusCheckProviders {
		if llm, llmErr := ai.CreateAndValidateLLMService(cfg); llmErr != nil {
			cmd.Printf("LLM (%s):         %v\n", cfg.LLMProvider, llmErr)
		} else {
			cmd.Printf("LLM (%s):         ok, model %s\n", cfg.LLMProvider, llm.ModelName())
			_ = llm.Close()
		}
		if embedder, embErr := ai.CreateAndValidateEmbeddingService(cfg); embErr != nil {
			cmd.Printf("Embeddings (%s):  %v\n", cfg.EmbeddingProvider, embErr)
		} else {
			cmd.Printf("Embeddings (%s):  ok, model %s\n", cfg.EmbeddingProvider, embedder.ModelName())
			_ = embedder.Close()
		}
	}
	return nil
}
