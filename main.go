package main

import (
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"self-evolving-ai/application"
	"self-evolving-ai/domain"
	"self-evolving-ai/infrastructure"
	"self-evolving-ai/infrastructure/embedding"
	"self-evolving-ai/infrastructure/vectorstore"
)

var (
	cfgPath string
	verbose bool
	logger  *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self-evolving-ai",
		Short: "An AI that learns facts, benchmarks itself, and mutates its own target code",
		Long: `self-evolving-ai runs three loops around a pool of LLM providers:
a learning loop that stores question/answer knowledge in vector memory,
an intelligence benchmark that scores the pool on fixed questions, and
an evolution loop that applies model-proposed Go code mutations and
keeps only the ones that improve the benchmark score.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zapCfg := zap.NewProductionConfig()
			zapCfg.Encoding = "console"
			zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			if verbose {
				zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zapCfg.Build()
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newLearnCmd(), newAskCmd(), newBenchmarkCmd(), newEvolveCmd(), newStatusCmd())
	return cmd
}

func newLearnCmd() *cobra.Command {
	var questions int
	var cycles int

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Run one learning cycle and store the answers in vector memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infrastructure.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			pool, err := buildPool(cfg)
			if err != nil {
				return err
			}
			memory, err := buildMemory(cfg)
			if err != nil {
				return err
			}

			svc, err := application.NewLearningService(pool, memory, domain.GenerationParams{
				Temperature: cfg.Learning.Temperature,
				MaxTokens:   cfg.Learning.MaxTokens,
			}, logger)
			if err != nil {
				return err
			}

			n := questions
			if n <= 0 {
				n = cfg.Learning.QuestionsPerCycle
			}
			if cycles <= 0 {
				cycles = 1
			}

			total := 0
			for i := 0; i < cycles; i++ {
				stored, err := svc.RunCycle(cmd.Context(), n)
				total += stored
				if err != nil {
					return err
				}
			}
			fmt.Printf("Stored %d of %d answers in memory.\n", total, n*cycles)
			return nil
		},
	}

	cmd.Flags().IntVarP(&questions, "questions", "n", 0, "questions per cycle (default from config)")
	cmd.Flags().IntVar(&cycles, "cycles", 1, "number of learning cycles to run")
	return cmd
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question using stored knowledge as context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infrastructure.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			pool, err := buildPool(cfg)
			if err != nil {
				return err
			}
			memory, err := buildMemory(cfg)
			if err != nil {
				return err
			}

			svc, err := application.NewLearningService(pool, memory, domain.GenerationParams{
				Temperature: cfg.Learning.Temperature,
				MaxTokens:   cfg.Learning.MaxTokens,
			}, logger)
			if err != nil {
				return err
			}

			answer, retrieved, err := svc.EvaluateKnowledge(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("(%d stored items used as context)\n\n%s\n", retrieved, answer)
			return nil
		},
	}
}

func newBenchmarkCmd() *cobra.Command {
	var quick int
	var runs int

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Score the provider pool on the intelligence benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infrastructure.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			pool, err := buildPool(cfg)
			if err != nil {
				return err
			}

			if runs <= 0 {
				runs = cfg.Benchmark.Runs
			}
			bench := domain.NewBenchmark(domain.BenchmarkQuestions(), runs, logger)
			answer := pool.Answerer(domain.GenerationParams{
				Temperature: cfg.Benchmark.Temperature,
				MaxTokens:   cfg.Benchmark.MaxTokens,
			})

			var result *domain.BenchmarkResult
			if quick > 0 {
				result, err = bench.QuickRun(cmd.Context(), answer, quick)
			} else {
				result, err = bench.Run(cmd.Context(), answer)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Score: %.3f (%d/%d correct)\n", result.Score, result.CorrectCount, result.Total)
			for category, cs := range result.CategoryScores {
				fmt.Printf("  %-10s %d/%d\n", category, cs.Correct, cs.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&quick, "quick", 0, "run only the first n questions")
	cmd.Flags().IntVar(&runs, "runs", 0, "answer passes per question, majority vote (default from config)")
	return cmd
}

func newEvolveCmd() *cobra.Command {
	var attempts int
	var target string

	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Run the tested-evolution loop against the target file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infrastructure.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if target != "" {
				cfg.Evolution.TargetFile = target
			}
			svc, err := buildEvolutionService(cfg)
			if err != nil {
				return err
			}

			budget := attempts
			if budget <= 0 {
				budget = cfg.Evolution.AttemptBudget
			}

			summary, err := svc.Evolve(cmd.Context(), budget)
			if summary != nil {
				fmt.Printf("Attempts: %d  kept: %d  rolled back: %d  abandoned: %d\n",
					summary.Attempts, summary.Kept, summary.RolledBack, summary.Abandoned)
				fmt.Printf("Score: %.3f -> %.3f\n", summary.BaselineScore, summary.FinalScore)
			}
			return err
		},
	}

	cmd.Flags().IntVar(&attempts, "attempts", 0, "attempt budget (default from config)")
	cmd.Flags().StringVar(&target, "target", "", "Go file to evolve (default from config)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored knowledge and evolution attempt history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infrastructure.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			svc, err := buildEvolutionService(cfg)
			if err != nil {
				return err
			}

			status, err := svc.CurrentStatus(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Stored knowledge items: %d\n", status.MemoryItems)
			fmt.Printf("Attempts: %d  kept: %d  rolled back: %d  abandoned: %d\n",
				status.Counters.Attempts, status.Counters.Kept,
				status.Counters.RolledBack, status.Counters.Abandoned)
			if last := status.LastAttempt; last != nil {
				fmt.Printf("Last attempt: %s  outcome: %s  score %.3f -> %.3f\n",
					last.Timestamp.Format("2006-01-02 15:04:05"),
					last.Outcome, last.ScoreBefore, last.ScoreAfter)
			}
			return nil
		},
	}
}

// buildPool constructs every enabled provider that has credentials, in
// preference order: Groq, OpenAI, Anthropic, HuggingFace.
func buildPool(cfg infrastructure.Config) (*infrastructure.ProviderPool, error) {
	var providers []domain.Provider

	if p := cfg.Providers.Groq; p.Enabled && p.APIKey != "" {
		client, err := infrastructure.NewGroqClient(p.APIKey, p.Model)
		if err != nil {
			return nil, err
		}
		providers = append(providers, client)
	}
	if p := cfg.Providers.OpenAI; p.Enabled && p.APIKey != "" {
		client, err := infrastructure.NewOpenAIClient(p.APIKey, p.Model)
		if err != nil {
			return nil, err
		}
		providers = append(providers, client)
	}
	if p := cfg.Providers.Anthropic; p.Enabled && p.APIKey != "" {
		client, err := infrastructure.NewAnthropicClient(p.APIKey, p.Model)
		if err != nil {
			return nil, err
		}
		providers = append(providers, client)
	}
	if p := cfg.Providers.HuggingFace; p.Enabled && p.APIKey != "" {
		client, err := infrastructure.NewHuggingFaceClient(p.APIKey, p.Model)
		if err != nil {
			return nil, err
		}
		providers = append(providers, client)
	}

	return infrastructure.NewProviderPool(logger, providers...)
}

// buildMemory wires the OpenAI embedder into Qdrant-backed vector
// memory. Embeddings always go through OpenAI, so OPENAI_API_KEY is
// required even when the chat pool runs on other providers.
func buildMemory(cfg infrastructure.Config) (domain.VectorMemory, error) {
	embedder, err := embedding.NewOpenAIEmbeddingClient(
		cfg.Providers.OpenAI.APIKey,
		openai.EmbeddingModel(cfg.Memory.EmbeddingModel))
	if err != nil {
		return nil, fmt.Errorf("vector memory needs OPENAI_API_KEY for embeddings: %w", err)
	}
	return vectorstore.NewQdrantMemory(cfg.Memory.QdrantAddr, cfg.Memory.Collection, embedder, logger)
}

func buildEvolutionService(cfg infrastructure.Config) (*application.EvolutionService, error) {
	pool, err := buildPool(cfg)
	if err != nil {
		return nil, err
	}

	parser, err := domain.NewMutationParser(append(domain.DefaultDenylist(), cfg.Evolution.DenylistPatterns...))
	if err != nil {
		return nil, err
	}

	generator, err := application.NewMutationService(pool, domain.GenerationParams{
		Temperature: cfg.Learning.Temperature,
		MaxTokens:   cfg.Learning.MaxTokens,
	}, logger)
	if err != nil {
		return nil, err
	}

	applicator := infrastructure.NewFileCodeApplicator(cfg.Evolution.BackupDir, logger)
	log, err := infrastructure.NewEvolutionLog(cfg.Evolution.LogPath, logger)
	if err != nil {
		return nil, err
	}

	bench := domain.NewBenchmark(domain.BenchmarkQuestions(), cfg.Benchmark.Runs, logger)
	answer := pool.Answerer(domain.GenerationParams{
		Temperature: cfg.Benchmark.Temperature,
		MaxTokens:   cfg.Benchmark.MaxTokens,
	})

	evolver := domain.NewEvolver(generator, parser, applicator, bench, answer, log, domain.EvolverConfig{
		QuickQuestions:      cfg.Evolution.QuickQuestions,
		AttemptDelay:        time.Duration(cfg.Evolution.AttemptDelay),
		MaxProviderFailures: cfg.Evolution.MaxProviderFailures,
	}, logger)

	// Memory is optional here; status degrades to zero items without it.
	memory, err := buildMemory(cfg)
	if err != nil {
		logger.Warn("vector memory unavailable", zap.Error(err))
		memory = nil
	}

	return application.NewEvolutionService(evolver, applicator, log, memory, cfg.Evolution.TargetFile, logger)
}
