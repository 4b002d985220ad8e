package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/rosewood-labs/payeeclean/internal/config"
	"github.com/rosewood-labs/payeeclean/internal/engine"
	"github.com/rosewood-labs/payeeclean/internal/llm"
	"github.com/rosewood-labs/payeeclean/internal/service"
	"github.com/rosewood-labs/payeeclean/internal/storage"
)

// defaultDBPath is used when no database path is configured.
const defaultDBPath = "$HOME/.local/share/payeeclean/payeeclean.db"

// initStorage opens the rule store with proper path expansion and runs
// migrations.
func initStorage(ctx context.Context) (service.RuleStore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// createCleaner creates the LLM fallback cleaner based on configuration.
func createCleaner() (*llm.Cleaner, error) {
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = "anthropic"
	}

	cfg := llm.Config{
		Provider:    provider,
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		CacheTTL:    viper.GetDuration("llm.cache_ttl"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 60 // requests per minute
	}

	switch provider {
	case "anthropic":
		cfg.APIKey = viper.GetString("llm.anthropic_api_key")
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key not found in config or ANTHROPIC_API_KEY environment variable")
		}
	case "openai":
		cfg.APIKey = viper.GetString("llm.openai_api_key")
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not found in config or OPENAI_API_KEY environment variable")
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}

	return llm.NewCleaner(cfg, slog.Default())
}

// initEngine wires the store and cleaner into a cleanup engine. The returned
// cleanup function closes both.
func initEngine(ctx context.Context) (*engine.CleanupEngine, func(), error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	cleaner, err := createCleaner()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	eng := engine.New(store, cleaner, slog.Default())
	cleanup := func() {
		cleaner.Close()
		if err := store.Close(); err != nil {
			slog.Error("failed to close storage", "error", err)
		}
	}

	return eng, cleanup, nil
}
