// Package cli implements the command-line interface.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/korpora-labs/korpus-cli/internal/adapters/driven/ai"
	configfile "github.com/korpora-labs/korpus-cli/internal/adapters/driven/config/file"
	"github.com/korpora-labs/korpus-cli/internal/adapters/driven/registry/jsonfile"
	"github.com/korpora-labs/korpus-cli/internal/adapters/driven/storage/sqlite"
	vectormemory "github.com/korpora-labs/korpus-cli/internal/adapters/driven/vector/memory"
	"github.com/korpora-labs/korpus-cli/internal/adapters/driven/vector/qdrant"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driving"
	"github.com/korpora-labs/korpus-cli/internal/core/services"
	"github.com/korpora-labs/korpus-cli/internal/extractors"
	"github.com/korpora-labs/korpus-cli/internal/extractors/pdf"
	"github.com/korpora-labs/korpus-cli/internal/logger"
	"github.com/korpora-labs/korpus-cli/internal/postprocessors/chunker"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgPath string
	verbose bool
)

// Services used by the commands. They are wired lazily from the
// configuration; tests inject mocks and a pre-loaded config directly.
var (
	appConfig     configfile.Config
	configLoaded  bool
	ingestService driving.IngestionService
	queryService  driving.QueryService
)

var rootCmd = &cobra.Command{
	Use:   "korpus",
	Short: "Ingest and query personal documents",
	Long: `korpus indexes local documents and mail into a vector store and
answers natural-language questions over them with cited sources.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		if configLoaded {
			return nil
		}

		// Optional: API keys may live in a .env next to the binary.
		_ = godotenv.Load()

		cfg, err := configfile.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		appConfig = cfg
		configLoaded = true
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default ~/.korpus/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// appServices bundles everything the commands wire up, so resources
// can be released when a command finishes.
type appServices struct {
	registry driven.FileRegistry
	docStore driven.DocumentStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	llm      driven.LLMService
}

func (s *appServices) Close() {
	if s.registry != nil {
		if err := s.registry.Close(); err != nil {
			logger.Warn("Registry close: %v", err)
		}
	}
	if s.docStore != nil {
		if err := s.docStore.Close(); err != nil {
			logger.Warn("Document store close: %v", err)
		}
	}
	if s.index != nil {
		_ = s.index.Close()
	}
	if s.embedder != nil {
		_ = s.embedder.Close()
	}
	if s.llm != nil {
		_ = s.llm.Close()
	}
}

// buildProviders wires the LLM, embedding and vector index adapters
// from the configuration.
func buildProviders(cfg configfile.Config) (*appServices, error) {
	llm, err := ai.CreateLLMService(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm service: %w", err)
	}

	embedder, err := ai.CreateEmbeddingService(cfg)
	if err != nil {
		_ = llm.Close()
		return nil, fmt.Errorf("embedding service: %w", err)
	}

	var index driven.VectorIndex
	if cfg.Qdrant.URL != "" {
		index = qdrant.New(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
		})
	} else {
		logger.Warn("No Qdrant URL configured, using the in-memory index")
		index = vectormemory.NewIndex()
	}

	return &appServices{llm: llm, embedder: embedder, index: index}, nil
}

// buildIngestServices wires the full ingestion stack for one source.
func buildIngestServices(cfg configfile.Config, source string) (*appServices, driving.IngestionService, error) {
	svcs, err := buildProviders(cfg)
	if err != nil {
		return nil, nil, err
	}

	registry, err := jsonfile.Open(cfg.RegistryDir(), cfg.User, source)
	if err != nil {
		svcs.Close()
		return nil, nil, fmt.Errorf("open registry: %w", err)
	}
	svcs.registry = registry

	docStore, err := sqlite.NewStore(cfg.MetadataDir())
	if err != nil {
		svcs.Close()
		return nil, nil, fmt.Errorf("open document store: %w", err)
	}
	svcs.docStore = docStore

	extractorRegistry := extractors.NewDefaultRegistry(pdf.Config{
		OCRLanguage:     cfg.PDF.OCRLanguage,
		OCRDPI:          cfg.PDF.OCRDPI,
		OCRWorkers:      cfg.PDF.OCRWorkers,
		VisionPageLimit: cfg.PDF.VisionPageLimit,
	}, svcs.llm)

	chunk := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	orchestrator := services.NewIngestionOrchestrator(
		registry, extractorRegistry, chunk, svcs.embedder, svcs.index, docStore)
	return svcs, orchestrator, nil
}

// buildQueryServices wires the retrieval and answering stack.
func buildQueryServices(cfg configfile.Config) (*appServices, driving.QueryService, error) {
	svcs, err := buildProviders(cfg)
	if err != nil {
		return nil, nil, err
	}

	docStore, err := sqlite.NewStore(cfg.MetadataDir())
	if err != nil {
		svcs.Close()
		return nil, nil, fmt.Errorf("open document store: %w", err)
	}
	svcs.docStore = docStore

	planner := services.NewQueryPlanner(svcs.llm)
	reranker := services.NewReranker(svcs.llm)
	retriever := services.NewRetriever(planner, svcs.embedder, svcs.index, reranker)
	return svcs, services.NewAnswerService(retriever, svcs.llm, docStore), nil
}
