package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/finleyhq/finley/internal/engine"
	"github.com/finleyhq/finley/internal/llm"
	"github.com/finleyhq/finley/internal/plaid"
	"github.com/finleyhq/finley/internal/service"
	"github.com/finleyhq/finley/internal/storage"
	"github.com/finleyhq/finley/internal/tokenstore"
)

// expandPath expands ~ and environment variables in a path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

func profileName() string {
	if profile := viper.GetString("profile"); profile != "" {
		return profile
	}
	return "default"
}

// initStorage opens the migrated ledger database for the active profile.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/finley/finley.db"
	}
	dbPath = expandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath, profileName())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newTokenStore returns the per-profile access token store.
func newTokenStore() tokenstore.Store {
	path := viper.GetString("token.path")
	if path == "" {
		path = fmt.Sprintf("$HOME/.local/share/finley/connection-%s.json", profileName())
	}
	return tokenstore.NewFileStore(expandPath(path))
}

// newPlaidClient builds the aggregator client from config. The environment
// is always configured explicitly, never guessed from credentials.
func newPlaidClient() (*plaid.Client, error) {
	cfg := plaid.Config{
		ClientID:    viper.GetString("plaid.client_id"),
		Secret:      viper.GetString("plaid.secret"),
		Environment: viper.GetString("plaid.environment"),
	}
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("PLAID_CLIENT_ID")
	}
	if cfg.Secret == "" {
		cfg.Secret = os.Getenv("PLAID_SECRET")
	}
	if cfg.Environment == "" {
		cfg.Environment = os.Getenv("PLAID_ENV")
	}
	if cfg.Environment == "" {
		cfg.Environment = "sandbox"
	}
	return plaid.NewClient(cfg)
}

// newCategorizer builds the LLM categorizer. Without an API key it still
// works, using the rule classifier only.
func newCategorizer() (*llm.Categorizer, error) {
	cfg := llm.Config{
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		CacheTTL:    viper.GetDuration("llm.cache_ttl"),
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return llm.NewCategorizer(cfg, slog.Default())
}

// newSyncer wires the full ingestion pipeline. The caller owns the returned
// storage and categorizer and must close both.
func newSyncer(ctx context.Context) (*engine.Syncer, service.Storage, *llm.Categorizer, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := newPlaidClient()
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}

	categorizer, err := newCategorizer()
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}

	syncer := engine.NewSyncer(store, client, categorizer, newTokenStore(), slog.Default())
	return syncer, store, categorizer, nil
}
