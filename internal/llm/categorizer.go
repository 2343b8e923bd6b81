package llm

import (
	"context"
	"log/slog"

	"github.com/finleyhq/finley/internal/common"
)

// Categorizer batches transactions into one chat-completion call and falls
// back to the deterministic rule classifier when the remote side fails. It is
// read-only with respect to local state: persisting results is the caller's
// responsibility.
type Categorizer struct {
	client      Client
	cache       *suggestionCache
	rateLimiter *rateLimiter
	logger      *slog.Logger
}

// NewCategorizer creates a categorizer. An empty API key is allowed: the
// remote call is skipped entirely and every batch is classified by the
// fallback rules.
func NewCategorizer(cfg Config, logger *slog.Logger) (*Categorizer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var client Client
	if cfg.APIKey != "" {
		var err error
		client, err = newOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("no categorization API key configured, using rule classifier only")
	}

	return &Categorizer{
		client:      client,
		cache:       newSuggestionCache(cfg.CacheTTL),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      logger,
	}, nil
}

// Close releases the cache and rate limiter goroutines.
func (c *Categorizer) Close() {
	c.cache.stop()
	c.rateLimiter.Close()
}

// Categorize classifies a batch of transactions. The remote call is one
// batched request; any HTTP or parse failure downgrades the whole batch to
// the rule classifier and never propagates an error to the caller.
func (c *Categorizer) Categorize(ctx context.Context, txs []TxSummary) ([]CategorizedTransaction, error) {
	if len(txs) == 0 {
		return nil, common.ErrNoTransactions
	}

	results := make([]CategorizedTransaction, 0, len(txs))
	var uncached []TxSummary

	for _, tx := range txs {
		if category, ok := c.cache.get(cacheKey(tx)); ok {
			results = append(results, CategorizedTransaction{
				TransactionID: tx.ID,
				Description:   tx.Description,
				Category:      category,
			})
			continue
		}
		uncached = append(uncached, tx)
	}

	if len(uncached) == 0 {
		c.logger.Debug("categorization served entirely from cache", "count", len(results))
		return results, nil
	}

	matched := c.remoteCategorize(ctx, uncached)

	claimed := make(map[string]bool, len(matched))
	for _, m := range matched {
		claimed[m.TransactionID] = true
	}

	// Anything the model missed or mismatched gets the rule classifier.
	for _, tx := range uncached {
		if claimed[tx.ID] {
			continue
		}
		matched = append(matched, CategorizedTransaction{
			TransactionID: tx.ID,
			Description:   tx.Description,
			Category:      fallbackCategory(tx),
			FromFallback:  true,
		})
	}

	byID := make(map[string]TxSummary, len(uncached))
	for _, tx := range uncached {
		byID[tx.ID] = tx
	}
	for _, m := range matched {
		if tx, ok := byID[m.TransactionID]; ok {
			c.cache.set(cacheKey(tx), m.Category)
		}
	}

	return append(results, matched...), nil
}

// remoteCategorize performs the batched remote call, returning only the
// suggestions that could be resolved back to transactions. A nil client or
// any failure yields an empty slice.
func (c *Categorizer) remoteCategorize(ctx context.Context, txs []TxSummary) []CategorizedTransaction {
	if c.client == nil {
		return nil
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		c.logger.Warn("rate limiter wait aborted", "error", err)
		return nil
	}

	content, err := c.client.Complete(ctx, systemPrompt, buildPrompt(txs))
	if err != nil {
		c.logger.Warn("remote categorization failed, falling back to rules",
			"count", len(txs),
			"error", err)
		return nil
	}

	suggestions, err := parseSuggestions(content)
	if err != nil {
		c.logger.Warn("could not parse categorization response, falling back to rules",
			"error", err)
		return nil
	}

	resolved := matchSuggestions(txs, suggestions)
	c.logger.Debug("remote categorization resolved",
		"suggestions", len(suggestions),
		"matched", len(resolved),
		"batch", len(txs))

	return resolved
}
