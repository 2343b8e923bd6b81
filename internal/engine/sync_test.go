package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finleyhq/finley/internal/common"
	"github.com/finleyhq/finley/internal/llm"
	"github.com/finleyhq/finley/internal/model"
	"github.com/finleyhq/finley/internal/plaid"
	"github.com/finleyhq/finley/internal/service"
	"github.com/finleyhq/finley/internal/testutil"
	"github.com/finleyhq/finley/internal/tokenstore"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

// sandboxResult mirrors what the aggregator sandbox returns for a freshly
// linked TD profile: two accounts and eight transactions across them.
// Transaction amounts follow the aggregator convention (positive = debit).
func sandboxResult(t *testing.T) *plaid.FetchResult {
	t.Helper()
	return &plaid.FetchResult{
		Accounts: []model.ExternalAccount{
			{
				ExternalID: "plaid_checking_001",
				Name:       "TD Every Day Chequing",
				Type:       "depository",
				Subtype:    "checking",
				Mask:       "4821",
				Currency:   "CAD",
				Balance:    2843.67,
			},
			{
				ExternalID: "plaid_savings_002",
				Name:       "TD High Interest Savings",
				Type:       "depository",
				Subtype:    "savings",
				Mask:       "7710",
				Currency:   "CAD",
				Balance:    15200.00,
			},
		},
		Transactions: []model.ExternalTransaction{
			{ExternalID: "tx_loblaws", AccountExternalID: "plaid_checking_001", Description: "Loblaws", MerchantName: "Loblaws", Amount: 67.43, Date: day(t, "2024-01-23"), CategoryPath: []string{"Shops", "Supermarkets"}},
			{ExternalID: "tx_tims", AccountExternalID: "plaid_checking_001", Description: "Tim Hortons Coffee", MerchantName: "Tim Hortons", Amount: 4.50, Date: day(t, "2024-01-22")},
			{ExternalID: "tx_ubereats", AccountExternalID: "plaid_checking_001", Description: "UBER EATS TORONTO", MerchantName: "Uber Eats", Amount: 31.20, Date: day(t, "2024-01-21")},
			{ExternalID: "tx_shell", AccountExternalID: "plaid_checking_001", Description: "SHELL C04821", MerchantName: "Shell", Amount: 58.00, Date: day(t, "2024-01-20")},
			{ExternalID: "tx_netflix", AccountExternalID: "plaid_checking_001", Description: "NETFLIX.COM", MerchantName: "Netflix", Amount: 16.49, Date: day(t, "2024-01-19")},
			{ExternalID: "tx_payroll", AccountExternalID: "plaid_checking_001", Description: "PAYROLL DEPOSIT ACME", Amount: -2150.00, Date: day(t, "2024-01-18")},
			{ExternalID: "tx_interest", AccountExternalID: "plaid_savings_002", Description: "Interest earned", Amount: -3.12, Date: day(t, "2024-01-17")},
			{ExternalID: "tx_transfer", AccountExternalID: "plaid_savings_002", Description: "TFR-TO C/C", Amount: 500.00, Date: day(t, "2024-01-16")},
		},
		StartDate: "2023-10-25",
		EndDate:   "2024-01-23",
		Total:     8,
		Pages:     1,
	}
}

func linkedTokens(t *testing.T) tokenstore.Store {
	t.Helper()
	tokens := tokenstore.NewMemStore()
	require.NoError(t, tokens.Save(tokenstore.Connection{
		AccessToken: "access-sandbox-123",
		ItemID:      "item-123",
	}))
	return tokens
}

func newTestSyncer(t *testing.T, storage service.Storage, fetcher plaid.TransactionFetcher, categorizer Categorizer) *Syncer {
	t.Helper()
	return NewSyncer(storage, fetcher, categorizer, linkedTokens(t), nil)
}

func echoCategorizer() *MockCategorizer {
	return &MockCategorizer{
		CategorizeFn: func(_ context.Context, txs []llm.TxSummary) ([]llm.CategorizedTransaction, error) {
			results := make([]llm.CategorizedTransaction, len(txs))
			for i, tx := range txs {
				results[i] = llm.CategorizedTransaction{
					TransactionID: tx.ID,
					Description:   tx.Description,
					Category:      "Food & Dining",
				}
			}
			return results, nil
		},
	}
}

func TestSyncEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	fetcher := plaid.NewMockFetcher()
	fetcher.FetchFn = func(context.Context, string, plaid.FetchOptions) (*plaid.FetchResult, error) {
		return sandboxResult(t), nil
	}

	syncer := newTestSyncer(t, store, fetcher, echoCategorizer())
	summary, err := syncer.Sync(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Accounts)
	assert.Equal(t, 8, summary.Transactions)
	assert.Equal(t, 8, summary.NewTransactions)
	assert.Equal(t, 8, summary.TotalAvailable)
	require.NotNil(t, summary.Categorization)
	require.NoError(t, summary.Categorization.Wait())
	assert.Equal(t, 8, summary.Categorization.Applied())

	// The stored token was used.
	require.Len(t, fetcher.FetchCalls, 1)
	assert.Equal(t, "access-sandbox-123", fetcher.FetchCalls[0].AccessToken)

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	var checking *model.Account
	for i := range accounts {
		if accounts[i].ExternalID == "plaid_checking_001" {
			checking = &accounts[i]
		}
	}
	require.NotNil(t, checking)
	assert.Equal(t, "TD Every Day Chequing", checking.BankName)
	assert.InDelta(t, 2843.67, checking.Balance, 0.001)
	assert.True(t, checking.IsActive)

	transactions, err := store.ListTransactions(ctx, "")
	require.NoError(t, err)
	require.Len(t, transactions, 8)

	var loblaws *model.Transaction
	for i := range transactions {
		if transactions[i].ExternalID == "tx_loblaws" {
			loblaws = &transactions[i]
		}
	}
	require.NotNil(t, loblaws)
	assert.InDelta(t, -67.43, loblaws.Amount, 0.001)
	assert.True(t, loblaws.Date.Equal(day(t, "2024-01-23")))
	assert.Equal(t, "Food & Dining", loblaws.CategoryName)
	assert.False(t, loblaws.IsManualCategory)
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	fetcher := plaid.NewMockFetcher()
	fetcher.FetchFn = func(context.Context, string, plaid.FetchOptions) (*plaid.FetchResult, error) {
		return sandboxResult(t), nil
	}

	syncer := newTestSyncer(t, store, fetcher, echoCategorizer())

	first, err := syncer.Sync(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, first.Categorization)
	require.NoError(t, first.Categorization.Wait())

	second, err := syncer.Sync(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 8, second.Transactions)
	assert.Equal(t, 0, second.NewTransactions)
	assert.Nil(t, second.Categorization)

	transactions, err := store.ListTransactions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, transactions, 8)
}

func TestSyncPreservesManualCategory(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	fetcher := plaid.NewMockFetcher()
	fetcher.FetchFn = func(context.Context, string, plaid.FetchOptions) (*plaid.FetchResult, error) {
		return sandboxResult(t), nil
	}

	syncer := newTestSyncer(t, store, fetcher, echoCategorizer())
	first, err := syncer.Sync(ctx, "")
	require.NoError(t, err)
	require.NoError(t, first.Categorization.Wait())

	transactions, err := store.ListTransactions(ctx, "")
	require.NoError(t, err)
	var loblawsID string
	for _, tx := range transactions {
		if tx.ExternalID == "tx_loblaws" {
			loblawsID = tx.ID
		}
	}
	require.NotEmpty(t, loblawsID)
	require.NoError(t, store.SetCategory(ctx, loblawsID, "Groceries"))

	second, err := syncer.Sync(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, second.Categorization)

	transactions, err = store.ListTransactions(ctx, "")
	require.NoError(t, err)
	for _, tx := range transactions {
		if tx.ID == loblawsID {
			assert.Equal(t, "Groceries", tx.CategoryName)
			assert.True(t, tx.IsManualCategory)
		}
	}
}

func TestSyncRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fetcher := plaid.NewMockFetcher()
	fetcher.FetchFn = func(context.Context, string, plaid.FetchOptions) (*plaid.FetchResult, error) {
		// Only the first call blocks; later syncs complete immediately.
		once.Do(func() {
			close(started)
			<-release
		})
		return &plaid.FetchResult{}, nil
	}

	syncer := newTestSyncer(t, store, fetcher, nil)

	done := make(chan error, 1)
	go func() {
		_, err := syncer.Sync(ctx, "")
		done <- err
	}()

	<-started
	_, err := syncer.Sync(ctx, "")
	assert.ErrorIs(t, err, common.ErrSyncInFlight)

	close(release)
	require.NoError(t, <-done)

	// Once the first run finished, syncing works again.
	_, err = syncer.Sync(ctx, "")
	require.NoError(t, err)
}

func TestSyncWithoutLinkedConnection(t *testing.T) {
	store := testutil.SetupTestDB(t)
	syncer := NewSyncer(store, plaid.NewMockFetcher(), nil, tokenstore.NewMemStore(), nil)

	_, err := syncer.Sync(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)

	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.UserMessage, "finley link")
}

func TestSyncDegradedFetchKeepsAccounts(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	fetcher := plaid.NewMockFetcher()
	fetcher.FetchFn = func(context.Context, string, plaid.FetchOptions) (*plaid.FetchResult, error) {
		result := sandboxResult(t)
		result.Transactions = nil
		result.Total = 0
		result.Pages = 0
		result.ErrorNote = "transactions unavailable: PRODUCT_NOT_READY"
		return result, nil
	}

	syncer := newTestSyncer(t, store, fetcher, echoCategorizer())
	summary, err := syncer.Sync(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Accounts)
	assert.Equal(t, 0, summary.Transactions)
	assert.Nil(t, summary.Categorization)
	assert.Contains(t, summary.Note, "PRODUCT_NOT_READY")

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

// failingAccountStorage makes upserts for one external account id fail, to
// exercise the rule that a transaction is only written once its account is.
type failingAccountStorage struct {
	service.Storage
	failExternalID string
}

func (f *failingAccountStorage) UpsertAccount(ctx context.Context, account model.Account) (*model.Account, error) {
	if account.ExternalID == f.failExternalID {
		return nil, fmt.Errorf("%w: upserting account: disk I/O error", common.ErrPersistence)
	}
	return f.Storage.UpsertAccount(ctx, account)
}

func TestSyncSkipsTransactionsOfFailedAccount(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)
	flaky := &failingAccountStorage{Storage: store, failExternalID: "plaid_savings_002"}

	fetcher := plaid.NewMockFetcher()
	fetcher.FetchFn = func(context.Context, string, plaid.FetchOptions) (*plaid.FetchResult, error) {
		return sandboxResult(t), nil
	}

	syncer := newTestSyncer(t, flaky, fetcher, echoCategorizer())
	summary, err := syncer.Sync(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Accounts)
	assert.Equal(t, 1, summary.FailedAccounts)
	assert.Equal(t, 6, summary.Transactions)
	assert.Equal(t, 2, summary.Skipped)
	require.NotNil(t, summary.Categorization)
	require.NoError(t, summary.Categorization.Wait())

	transactions, err := store.ListTransactions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, transactions, 6)
	for _, tx := range transactions {
		assert.NotEqual(t, "tx_interest", tx.ExternalID)
		assert.NotEqual(t, "tx_transfer", tx.ExternalID)
	}
}

type brokenStorage struct {
	service.Storage
}

func (b *brokenStorage) UpsertAccount(context.Context, model.Account) (*model.Account, error) {
	return nil, fmt.Errorf("%w: upserting account: database is locked", common.ErrPersistence)
}

func TestSyncFailsWhenAllAccountsFail(t *testing.T) {
	store := testutil.SetupTestDB(t)
	fetcher := plaid.NewMockFetcher()
	fetcher.FetchFn = func(context.Context, string, plaid.FetchOptions) (*plaid.FetchResult, error) {
		return sandboxResult(t), nil
	}

	syncer := newTestSyncer(t, &brokenStorage{Storage: store}, fetcher, nil)
	_, err := syncer.Sync(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrPersistence)
}

func TestSyncSwallowsCategorizerFailure(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	fetcher := plaid.NewMockFetcher()
	fetcher.FetchFn = func(context.Context, string, plaid.FetchOptions) (*plaid.FetchResult, error) {
		return sandboxResult(t), nil
	}

	categorizer := &MockCategorizer{
		CategorizeFn: func(context.Context, []llm.TxSummary) ([]llm.CategorizedTransaction, error) {
			return nil, errors.New("model endpoint unreachable")
		},
	}

	syncer := newTestSyncer(t, store, fetcher, categorizer)
	summary, err := syncer.Sync(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, summary.Categorization)

	// The task reports the failure, the sync itself already succeeded.
	require.Error(t, summary.Categorization.Wait())
	assert.Equal(t, 0, summary.Categorization.Applied())

	transactions, err := store.ListTransactions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, transactions, 8)
}

func TestCategorizeUncategorized(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestDB(t)

	account, err := store.UpsertAccount(ctx, model.Account{
		ExternalID: "plaid_checking_001",
		BankName:   "TD Every Day Chequing",
		Type:       "depository",
		Mask:       "4821",
		Currency:   "CAD",
		IsActive:   true,
	})
	require.NoError(t, err)

	upserted, err := store.UpsertTransactions(ctx, []model.Transaction{
		{AccountID: account.ID, ExternalID: "tx_tims", Description: "Tim Hortons Coffee", Amount: -4.50, Date: day(t, "2024-01-22")},
		{AccountID: account.ID, ExternalID: "tx_payroll", Description: "PAYROLL DEPOSIT ACME", Amount: 2150.00, Date: day(t, "2024-01-18")},
	})
	require.NoError(t, err)
	require.Len(t, upserted, 2)

	// One of them was categorized by hand already.
	require.NoError(t, store.SetCategory(ctx, upserted[1].ID, "Income"))

	categorizer := echoCategorizer()
	syncer := NewSyncer(store, plaid.NewMockFetcher(), categorizer, tokenstore.NewMemStore(), nil)

	applied, err := syncer.CategorizeUncategorized(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	require.Len(t, categorizer.Calls, 1)
	assert.Len(t, categorizer.Calls[0], 1)
	assert.Equal(t, "Tim Hortons Coffee", categorizer.Calls[0][0].Description)
}
