package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
)

var (
	askTopK     int
	askMinScore float64
	askSplit    bool
	askRerank   bool
	askHyde     bool
	askNoStream bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question over the indexed documents",
	Long: `Retrieves the most relevant chunks for the question and synthesises
an answer with cited sources. The answer is streamed as it is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of context chunks (default from config)")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", 0, "drop chunks below this similarity")
	askCmd.Flags().BoolVar(&askSplit, "split", false, "decompose the question into sub-questions")
	askCmd.Flags().BoolVar(&askRerank, "rerank", false, "re-score candidates with the LLM")
	askCmd.Flags().BoolVar(&askHyde, "hyde", false, "add a hypothetical answer as an extra query")
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "print the full answer at once")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := queryService
	if svc == nil {
		built, queries, buildErr := buildQueryServices(appConfig)
		if buildErr != nil {
			return buildErr
		}
		defer built.Close()
		svc = queries
	}

	opts := askOptions(cmd)

	if askNoStream {
		answer, err := svc.Answer(ctx, question, nil, opts)
		if err != nil {
			return fmt.Errorf("answer: %w", err)
		}
		cmd.Println(answer.Text)
		printSources(cmd, answer.Sources)
		return nil
	}

	events, err := svc.AnswerStream(ctx, question, nil, opts)
	if err != nil {
		return fmt.Errorf("answer: %w", err)
	}
	for ev := range events {
		switch ev.Kind {
		case domain.EventDelta:
			cmd.Print(ev.Delta)
		case domain.EventSources:
			cmd.Println()
			printSources(cmd, ev.Sources)
		case domain.EventError:
			cmd.Println()
			return fmt.Errorf("answer: %w", ev.Err)
		}
	}
	return nil
}

// askOptions merges configured query defaults with explicit flags.
func askOptions(cmd *cobra.Command) domain.QueryOptions {
	opts := domain.QueryOptions{
		TopK:        appConfig.Query.TopK,
		MinScore:    appConfig.Query.MinScore,
		SplitPrompt: appConfig.Query.SplitPrompt,
		Rerank:      appConfig.Query.Rerank,
		UseHyDE:     appConfig.Query.UseHyde,
	}
	flags := cmd.Flags()
	if flags.Changed("top-k") {
		opts.TopK = askTopK
	}
	if flags.Changed("min-score") {
		opts.MinScore = askMinScore
	}
	if flags.Changed("split") {
		opts.SplitPrompt = askSplit
	}
	if flags.Changed("rerank") {
		opts.Rerank = askRerank
	}
	if flags.Changed("hyde") {
		opts.UseHyDE = askHyde
	}
	return opts
}

func printSources(cmd *cobra.Command, sources []domain.SourceRef) {
	if len(sources) == 0 {
		return
	}
	cmd.Println("\nSources:")
	for i, src := range sources {
		name := src.Filename
		if name == "" {
			name = src.DocID
		}
		if src.SourcePath != "" && src.SourcePath != name {
			cmd.Printf("  %d. %s (%s)\n", i+1, name, src.SourcePath)
		} else {
			cmd.Printf("  %d. %s\n", i+1, name)
		}
	}
}
