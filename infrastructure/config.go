package infrastructure

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "500ms" or "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full runtime configuration. Values come from an
// optional YAML file layered over defaults; API keys come from the
// environment only and are never written to YAML.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	Memory    MemoryConfig    `yaml:"memory"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Benchmark BenchmarkConfig `yaml:"benchmark"`
	Learning  LearningConfig  `yaml:"learning"`
}

type ProvidersConfig struct {
	Groq        ProviderConfig `yaml:"groq"`
	OpenAI      ProviderConfig `yaml:"openai"`
	Anthropic   ProviderConfig `yaml:"anthropic"`
	HuggingFace ProviderConfig `yaml:"huggingface"`
}

type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`

	// APIKey is populated from the environment in Load.
	APIKey string `yaml:"-"`
}

type MemoryConfig struct {
	QdrantAddr     string `yaml:"qdrant_addr"`
	Collection     string `yaml:"collection"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type EvolutionConfig struct {
	TargetFile          string        `yaml:"target_file"`
	BackupDir           string        `yaml:"backup_dir"`
	LogPath             string        `yaml:"log_path"`
	AttemptBudget       int           `yaml:"attempt_budget"`
	AttemptDelay        Duration      `yaml:"attempt_delay"`
	QuickQuestions      int           `yaml:"quick_questions"`
	MaxProviderFailures int           `yaml:"max_provider_failures"`
	DenylistPatterns    []string      `yaml:"denylist_patterns"`
}

type BenchmarkConfig struct {
	Runs        int           `yaml:"runs"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     Duration      `yaml:"timeout"`
}

type LearningConfig struct {
	QuestionsPerCycle int     `yaml:"questions_per_cycle"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
}

// DefaultConfig returns the configuration used when no YAML file is
// present.
func DefaultConfig() Config {
	return Config{
		Providers: ProvidersConfig{
			Groq:        ProviderConfig{Enabled: true},
			OpenAI:      ProviderConfig{Enabled: true},
			Anthropic:   ProviderConfig{Enabled: true},
			HuggingFace: ProviderConfig{Enabled: true},
		},
		Memory: MemoryConfig{
			QdrantAddr:     "localhost:6334",
			Collection:     "knowledge",
			EmbeddingModel: "text-embedding-3-small",
		},
		Evolution: EvolutionConfig{
			TargetFile:          "evolve_target.go",
			BackupDir:           "backups",
			LogPath:             "evolution_log.jsonl",
			AttemptBudget:       5,
			AttemptDelay:        Duration(2 * time.Second),
			QuickQuestions:      10,
			MaxProviderFailures: 5,
		},
		Benchmark: BenchmarkConfig{
			Runs:        1,
			Temperature: 0.2,
			MaxTokens:   64,
			Timeout:     Duration(30 * time.Second),
		},
		Learning: LearningConfig{
			QuestionsPerCycle: 5,
			Temperature:       0.7,
			MaxTokens:         512,
		},
	}
}

// LoadConfig reads path (when it exists) over DefaultConfig, loads a
// .env file when present, and fills provider API keys from the
// environment.
func LoadConfig(path string) (Config, error) {
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Providers.Groq.APIKey = os.Getenv("GROQ_API_KEY")
	cfg.Providers.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Providers.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Providers.HuggingFace.APIKey = os.Getenv("HUGGINGFACE_TOKEN")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run at all.
func (c Config) Validate() error {
	if !c.hasProviderKey() {
		return fmt.Errorf("no provider API key set (GROQ_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY or HUGGINGFACE_TOKEN)")
	}
	if c.Evolution.AttemptBudget < 1 {
		return fmt.Errorf("evolution attempt_budget must be at least 1")
	}
	if c.Evolution.TargetFile == "" {
		return fmt.Errorf("evolution target_file must be set")
	}
	if c.Benchmark.Runs < 1 {
		return fmt.Errorf("benchmark runs must be at least 1")
	}
	return nil
}

func (c Config) hasProviderKey() bool {
	return (c.Providers.Groq.Enabled && c.Providers.Groq.APIKey != "") ||
		(c.Providers.OpenAI.Enabled && c.Providers.OpenAI.APIKey != "") ||
		(c.Providers.Anthropic.Enabled && c.Providers.Anthropic.APIKey != "") ||
		(c.Providers.HuggingFace.Enabled && c.Providers.HuggingFace.APIKey != "")
}
