package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "LEDGERLINE_CONFIG"
	apiKeyEnv      = "DASHSCOPE_API_KEY"
	baseURLEnv     = "LLM_BASE_URL"
	chatModelEnv   = "LLM_CHAT_MODEL"
	visionModelEnv = "LLM_VISION_MODEL"
	providerEnv    = "LLM_PROVIDER"
	geminiKeyEnv   = "GOOGLE_API_KEY"
	inputDirEnv    = "LEDGERLINE_INPUT_DIR"
	projectIDEnv   = "LEDGERLINE_BQ_PROJECT"
)

// Config carries every process-wide setting. It is built once in cmd/ and
// injected into component constructors; nothing reads ambient state later.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Paths    PathsConfig    `yaml:"paths"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Linker   LinkerConfig   `yaml:"linker"`
	Splitter SplitterConfig `yaml:"splitter"`
}

// LLMConfig selects the model provider and identifiers.
// Provider is "openai" (any OpenAI-compatible endpoint, e.g. DashScope) or
// "gemini".
type LLMConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"apiKey"`
	BaseURL     string `yaml:"baseUrl"`
	ChatModel   string `yaml:"chatModel"`
	VisionModel string `yaml:"visionModel"`
}

// PathsConfig locates the document source and archive directories.
type PathsConfig struct {
	InputDir     string `yaml:"inputDir"`
	ProcessedDir string `yaml:"processedDir"`
}

// LedgerConfig selects the ledger backend: "memory" for local runs and
// tests, "bigquery" for the durable store.
type LedgerConfig struct {
	Backend   string `yaml:"backend"`
	ProjectID string `yaml:"projectId"`
	DatasetID string `yaml:"datasetId"`
	TableID   string `yaml:"tableId"`
}

// ArchiveConfig selects where processed files go: "local" moves them under
// ProcessedDir, "gcs" uploads them to a bucket and removes the local copy.
type ArchiveConfig struct {
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

// LinkerConfig holds the candidate windows. The 5% tolerance and 3-day
// window match the historical defaults; neither has a derivation beyond
// "worked in practice", so both stay configurable.
type LinkerConfig struct {
	AmountTolerance float64 `yaml:"amountTolerance"`
	DateWindowDays  int     `yaml:"dateWindowDays"`
}

// SplitterConfig holds splitter heuristics. FallbackYear is the year assumed
// when a statement line carries only MM/DD.
type SplitterConfig struct {
	FallbackYear int `yaml:"fallbackYear"`
}

// Default returns the baseline configuration before file and env overrides.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://dashscope-intl.aliyuncs.com/compatible-mode/v1",
			ChatModel:   "qwen-max",
			VisionModel: "qwen-vl-plus",
		},
		Paths: PathsConfig{
			InputDir:     "input",
			ProcessedDir: "processed",
		},
		Ledger: LedgerConfig{
			Backend:   "memory",
			DatasetID: "ledger",
			TableID:   "entries",
		},
		Archive: ArchiveConfig{
			Backend: "local",
		},
		Linker: LinkerConfig{
			AmountTolerance: 0.05,
			DateWindowDays:  3,
		},
		Splitter: SplitterConfig{
			FallbackYear: 2023,
		},
	}
}

// Load reads the YAML config named by LEDGERLINE_CONFIG (if set) on top of
// the defaults, then applies environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config.Load: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config.Load: parsing %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	// Provider first: the key fallback below depends on it.
	if v := os.Getenv(providerEnv); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if c.LLM.Provider == "gemini" && c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(geminiKeyEnv)
	}
	if v := os.Getenv(baseURLEnv); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(chatModelEnv); v != "" {
		c.LLM.ChatModel = v
	}
	if v := os.Getenv(visionModelEnv); v != "" {
		c.LLM.VisionModel = v
	}
	if v := os.Getenv(inputDirEnv); v != "" {
		c.Paths.InputDir = v
	}
	if v := os.Getenv(projectIDEnv); v != "" {
		c.Ledger.ProjectID = v
	}
}

// Validate rejects combinations that cannot run.
func (c Config) Validate() error {
	if c.LLM.Provider != "openai" && c.LLM.Provider != "gemini" {
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	if c.Ledger.Backend != "memory" && c.Ledger.Backend != "bigquery" {
		return fmt.Errorf("config: unknown ledger backend %q", c.Ledger.Backend)
	}
	if c.Ledger.Backend == "bigquery" && c.Ledger.ProjectID == "" {
		return fmt.Errorf("config: bigquery ledger requires a project id")
	}
	if c.Archive.Backend != "local" && c.Archive.Backend != "gcs" {
		return fmt.Errorf("config: unknown archive backend %q", c.Archive.Backend)
	}
	if c.Archive.Backend == "gcs" && c.Archive.Bucket == "" {
		return fmt.Errorf("config: gcs archive requires a bucket")
	}
	if c.Linker.AmountTolerance <= 0 {
		return fmt.Errorf("config: amount tolerance must be positive, got %s",
			strconv.FormatFloat(c.Linker.AmountTolerance, 'f', -1, 64))
	}
	if c.Linker.DateWindowDays < 0 {
		return fmt.Errorf("config: date window must not be negative")
	}
	return nil
}
