// Package engine orchestrates a full ingestion pass: fetch from the
// aggregator, persist accounts and transactions, then categorize what is new.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/finleyhq/finley/internal/common"
	"github.com/finleyhq/finley/internal/llm"
	"github.com/finleyhq/finley/internal/model"
	"github.com/finleyhq/finley/internal/plaid"
	"github.com/finleyhq/finley/internal/service"
	"github.com/finleyhq/finley/internal/tokenstore"
)

// Syncer drives one ingestion pass at a time. A second Sync while one is
// running fails with common.ErrSyncInFlight.
type Syncer struct {
	storage     service.Storage
	fetcher     plaid.TransactionFetcher
	categorizer Categorizer
	tokens      tokenstore.Store
	logger      *slog.Logger
	opts        plaid.FetchOptions
	inFlight    atomic.Bool
}

// SyncSummary reports what one ingestion pass did.
type SyncSummary struct {
	Accounts        int
	FailedAccounts  int
	Transactions    int
	NewTransactions int
	Skipped         int
	TotalAvailable  int
	Pages           int
	StartDate       string
	EndDate         string
	Note            string
	// Categorization is non-nil when new transactions were handed to the
	// categorizer in the background.
	Categorization *CategorizationTask
}

// NewSyncer creates a Syncer with default fetch options.
func NewSyncer(storage service.Storage, fetcher plaid.TransactionFetcher, categorizer Categorizer, tokens tokenstore.Store, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		storage:     storage,
		fetcher:     fetcher,
		categorizer: categorizer,
		tokens:      tokens,
		logger:      logger.With("component", "engine"),
		opts:        plaid.DefaultFetchOptions(),
	}
}

// SetFetchOptions overrides the window and cap used for aggregator fetches.
func (s *Syncer) SetFetchOptions(opts plaid.FetchOptions) {
	s.opts = opts
}

// Sync fetches accounts and transactions from the aggregator and persists
// them. With an empty accessToken the stored connection is used.
func (s *Syncer) Sync(ctx context.Context, accessToken string) (*SyncSummary, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInFlight
	}
	defer s.inFlight.Store(false)

	if accessToken == "" {
		conn, err := s.tokens.Load()
		if err != nil {
			if errors.Is(err, tokenstore.ErrNoToken) {
				return nil, common.NewUserError("No linked bank connection found. Run 'finley link' first.", err)
			}
			return nil, fmt.Errorf("loading access token: %w", err)
		}
		accessToken = conn.AccessToken
	}

	result, err := s.fetcher.FetchAccountsAndTransactions(ctx, accessToken, s.opts)
	if err != nil {
		return nil, fmt.Errorf("fetching from aggregator: %w", err)
	}
	if result.ErrorNote != "" {
		s.logger.Warn("transaction fetch degraded, syncing accounts only",
			"note", result.ErrorNote)
	}

	summary, err := s.Ingest(ctx, result.Accounts, result.Transactions, "plaid")
	if err != nil {
		return nil, err
	}
	summary.TotalAvailable = result.Total
	summary.Pages = result.Pages
	summary.StartDate = result.StartDate
	summary.EndDate = result.EndDate
	summary.Note = result.ErrorNote
	return summary, nil
}

// Ingest persists externally sourced accounts and transactions. Accounts are
// upserted concurrently and every transaction is mapped only after its
// account row exists; transactions referencing an unknown or failed account
// are skipped. New, not manually categorized rows are handed to the
// categorizer in the background.
func (s *Syncer) Ingest(ctx context.Context, accounts []model.ExternalAccount, transactions []model.ExternalTransaction, provider string) (*SyncSummary, error) {
	summary := &SyncSummary{}

	idByExternal := make(map[string]string, len(accounts))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, ext := range accounts {
		wg.Add(1)
		go func(ext model.ExternalAccount) {
			defer wg.Done()
			persisted, err := s.storage.UpsertAccount(ctx, mapExternalAccount(ext, provider))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.FailedAccounts++
				common.LogError(err, "upserting account",
					common.Fields{"external_id": ext.ExternalID})
				return
			}
			idByExternal[ext.ExternalID] = persisted.ID
		}(ext)
	}
	wg.Wait()

	if len(accounts) > 0 && len(idByExternal) == 0 {
		return nil, fmt.Errorf("%w: persisting accounts: all %d accounts failed",
			common.ErrPersistence, len(accounts))
	}
	summary.Accounts = len(idByExternal)

	mapped := make([]model.Transaction, 0, len(transactions))
	for _, ext := range transactions {
		accountID, ok := idByExternal[ext.AccountExternalID]
		if !ok {
			summary.Skipped++
			s.logger.Warn("skipping transaction for unknown account",
				"external_id", ext.ExternalID,
				"account_external_id", ext.AccountExternalID)
			continue
		}
		mapped = append(mapped, mapExternalTransaction(ext, accountID))
	}

	upserted, err := s.storage.UpsertTransactions(ctx, mapped)
	if err != nil {
		return nil, fmt.Errorf("persisting transactions: %w", err)
	}
	summary.Transactions = len(upserted)

	var fresh []model.Transaction
	for _, tx := range upserted {
		if tx.NewlyInserted && !tx.IsManualCategory {
			fresh = append(fresh, tx.Transaction)
		}
	}
	summary.NewTransactions = len(fresh)

	if len(fresh) > 0 && s.categorizer != nil {
		summary.Categorization = s.startCategorization(ctx, fresh)
	}
	return summary, nil
}

// CategorizeUncategorized runs the categorizer synchronously over every
// transaction that has no category yet and was never categorized by hand.
// It returns how many transactions received a category.
func (s *Syncer) CategorizeUncategorized(ctx context.Context) (int, error) {
	if s.categorizer == nil {
		return 0, common.NewUserError("No categorizer configured.", nil)
	}
	all, err := s.storage.ListTransactions(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("listing transactions: %w", err)
	}

	var pending []model.Transaction
	for _, tx := range all {
		if tx.CategoryName == "" && !tx.IsManualCategory {
			pending = append(pending, tx)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	results, err := s.categorizer.Categorize(ctx, toSummaries(pending))
	if err != nil {
		if errors.Is(err, common.ErrNoTransactions) {
			return 0, nil
		}
		return 0, fmt.Errorf("categorizing transactions: %w", err)
	}

	applied := 0
	for _, result := range results {
		if err := s.storage.SetCategoryAuto(ctx, result.TransactionID, result.Category); err != nil {
			common.LogError(err, "applying category",
				common.Fields{"transaction_id": result.TransactionID})
			continue
		}
		applied++
	}
	return applied, nil
}

// startCategorization kicks off categorization of fresh transactions in the
// background, detached from the caller's context so a returning Sync does not
// cancel it. Failures are logged and swallowed; the sync already succeeded.
func (s *Syncer) startCategorization(ctx context.Context, fresh []model.Transaction) *CategorizationTask {
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	task := newCategorizationTask(cancel)

	go func() {
		defer cancel()

		results, err := s.categorizer.Categorize(taskCtx, toSummaries(fresh))
		if err != nil {
			common.LogError(err, "background categorization",
				common.Fields{"transactions": len(fresh)})
			task.finish(err)
			return
		}
		for _, result := range results {
			if taskCtx.Err() != nil {
				task.finish(taskCtx.Err())
				return
			}
			if err := s.storage.SetCategoryAuto(taskCtx, result.TransactionID, result.Category); err != nil {
				common.LogError(err, "applying category",
					common.Fields{"transaction_id": result.TransactionID})
				continue
			}
			task.recordApplied()
		}
		task.finish(nil)
	}()
	return task
}

func toSummaries(txs []model.Transaction) []llm.TxSummary {
	summaries := make([]llm.TxSummary, len(txs))
	for i, tx := range txs {
		summaries[i] = llm.TxSummary{
			ID:           tx.ID,
			Description:  tx.Description,
			MerchantName: tx.MerchantName,
			Amount:       tx.Amount,
		}
	}
	return summaries
}

func mapExternalAccount(ext model.ExternalAccount, provider string) model.Account {
	name := ext.Name
	if name == "" {
		name = ext.OfficialName
	}
	if name == "" {
		name = "Bank account"
	}
	mask := ext.Mask
	if mask == "" {
		mask = "0000"
	}
	currency := ext.Currency
	if currency == "" {
		currency = "CAD"
	}
	return model.Account{
		ExternalID: ext.ExternalID,
		BankName:   name,
		Type:       ext.Type,
		Subtype:    ext.Subtype,
		Mask:       mask,
		Currency:   currency,
		Provider:   provider,
		Balance:    ext.Balance,
		IsActive:   true,
	}
}

func mapExternalTransaction(ext model.ExternalTransaction, accountID string) model.Transaction {
	var category string
	if len(ext.CategoryPath) > 0 {
		category = ext.CategoryPath[0]
	}
	return model.Transaction{
		AccountID:    accountID,
		ExternalID:   ext.ExternalID,
		Description:  ext.Description,
		MerchantName: ext.MerchantName,
		CategoryName: category,
		Date:         ext.Date,
		// Aggregator amounts are positive for debits; locally positive
		// means money in.
		Amount: -ext.Amount,
	}
}
