package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr          string          `yaml:"addr"`
	JWTSecret     string          `yaml:"jwt_secret"`
	APITimeout    time.Duration   `yaml:"timeout"`
	DatabasePath  string          `yaml:"database_path"`
	TokenDuration time.Duration   `yaml:"token_duration"`
	HN            HNConfig        `yaml:"hn"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
	Engine        EngineConfig    `yaml:"engine"`
	Ollama        OllamaConfig    `yaml:"ollama"`
	Workers       int             `yaml:"workers"`
}

type HNConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	Timeout                 time.Duration `yaml:"timeout"`
	RequestDelay            time.Duration `yaml:"request_delay"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

type SchedulerConfig struct {
	Interval  time.Duration `yaml:"interval"`
	ThreadIDs []int64       `yaml:"thread_ids"`
}

type EngineConfig struct {
	Model        string         `yaml:"model"`
	Template     PromptTemplate `yaml:"template"`
	Timeout      time.Duration  `yaml:"timeout"`
	PendingBatch int            `yaml:"pending_batch"`
}

type PromptTemplate struct {
	Version       string  `yaml:"version"`
	Template      string  `yaml:"template"`
	SchemaVersion *string `yaml:"schema_version,omitempty"`
}

type OllamaConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	DefaultModelNames       []string      `yaml:"models"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 1 * time.Hour

	cfg := &Config{
		Addr:          getEnv("HNJOBS_ADDR", ":8080"),
		JWTSecret:     getEnv("HNJOBS_JWT_SECRET", "supersecretkey"),
		APITimeout:    apiTimeout,
		DatabasePath:  getEnv("HNJOBS_DATABASE_PATH", "hnjobs.db"),
		TokenDuration: tokenDuration,
		Workers:       4,
		HN: HNConfig{
			BaseURL:                 getEnv("HNJOBS_HN_BASE_URL", "https://hacker-news.firebaseio.com/v0"),
			Timeout:                 10 * time.Second,
			RequestDelay:            100 * time.Millisecond,
			Retries:                 3,
			Backoff:                 500 * time.Millisecond,
			CircuitFailureThreshold: 5,
			CircuitReset:            30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Interval: 24 * time.Hour,
		},
		Engine: EngineConfig{
			Model:        getEnv("HNJOBS_ENGINE_MODEL", "llama3"),
			Timeout:      20 * time.Second,
			PendingBatch: 100,
		},
		Ollama: OllamaConfig{
			BaseURL:                 getEnv("HNJOBS_OLLAMA_BASE_URL", "http://localhost:11434"),
			Timeout:                 30 * time.Second,
			Retries:                 3,
			Backoff:                 500 * time.Millisecond,
			CircuitFailureThreshold: 5,
			CircuitReset:            30 * time.Second,
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
