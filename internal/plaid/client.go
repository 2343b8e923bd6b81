// Package plaid provides a client for interacting with the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finleyhq/finley/internal/common"
	"github.com/finleyhq/finley/internal/model"
	"github.com/plaid/plaid-go/v20/plaid"
)

const (
	// pageSize is Plaid's maximum transactions page size.
	pageSize = 500
	// maxPages bounds a single fetch against a server that keeps reporting an
	// ever-growing total.
	maxPages = 10
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production, decided at configuration time
}

// Validate ensures all required fields are present. Missing credentials are a
// terminal condition for the session; no mock fallback exists.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: client ID is empty", common.ErrCredentialsMissing)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: secret is empty", common.ErrCredentialsMissing)
	}
	switch c.Environment {
	case "sandbox", "production":
	case "":
		return fmt.Errorf("%w: environment is required", common.ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: environment must be sandbox or production", common.ErrInvalidConfig)
	}
	return nil
}

// FetchOptions controls the combined accounts and transactions fetch.
type FetchOptions struct {
	DaysBack        int
	MaxTransactions int
}

// DefaultFetchOptions returns the standard 90-day, 2000-transaction window.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{DaysBack: 90, MaxTransactions: 2000}
}

// FetchResult accumulates everything one fetch produced, plus metadata about
// the pagination pass.
type FetchResult struct {
	Accounts     []model.ExternalAccount
	Transactions []model.ExternalTransaction
	StartDate    string
	EndDate      string
	// ErrorNote is set when transactions could not be fetched but the account
	// list was; partial progress is preferred over total failure here.
	ErrorNote string
	Total     int
	Pages     int
}

// Client wraps the Plaid SDK for link creation, token exchange, and the
// combined accounts and transactions fetch.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	environment string

	// Seams for tests; set to the SDK-backed implementations by NewClient.
	fetchAccounts func(ctx context.Context, accessToken string) ([]model.ExternalAccount, error)
	fetchPage     func(ctx context.Context, accessToken, startDate, endDate string, count, offset int32) ([]model.ExternalTransaction, int, error)
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	c := &Client{
		client:      plaid.NewAPIClient(configuration),
		environment: cfg.Environment,
		logger:      slog.Default().With("component", "plaid"),
	}
	c.fetchAccounts = c.accountsFromAPI
	c.fetchPage = c.transactionsPageFromAPI

	slog.Debug("Plaid client configured",
		"environment", cfg.Environment,
		"client_id", common.RedactSecret(cfg.ClientID),
		"secret_len", len(cfg.Secret))

	return c, nil
}

// CreateLinkToken creates a Link token for Plaid Link initialization.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{ClientUserId: userID}

	request := plaid.NewLinkTokenCreateRequest(
		"Finley",
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_CA, plaid.COUNTRYCODE_US},
		user,
	)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	resp, _, err := c.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", wrapAPIError("link token create", err)
	}

	return resp.GetLinkToken(), nil
}

// ExchangePublicToken exchanges a public token from Link for a durable access
// token and the item ID it belongs to.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	request := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := c.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*request).Execute()
	if err != nil {
		return "", "", wrapAPIError("public token exchange", err)
	}

	return resp.GetAccessToken(), resp.GetItemId(), nil
}

// FetchAccountsAndTransactions fetches the account list in one call and then
// pages through transactions for the date window [now-DaysBack, now]. The pass
// is single-shot: no automatic retry on failure.
func (c *Client) FetchAccountsAndTransactions(ctx context.Context, accessToken string, opts FetchOptions) (*FetchResult, error) {
	if accessToken == "" {
		return nil, &AggregatorError{Operation: "fetch", Message: "access token is empty"}
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = DefaultFetchOptions().DaysBack
	}
	if opts.MaxTransactions <= 0 {
		opts.MaxTransactions = DefaultFetchOptions().MaxTransactions
	}

	now := time.Now()
	startDate := now.AddDate(0, 0, -opts.DaysBack).Format("2006-01-02")
	endDate := now.Format("2006-01-02")

	accounts, err := c.fetchAccounts(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{
		Accounts:  accounts,
		StartDate: startDate,
		EndDate:   endDate,
	}

	c.logger.Info("Fetched accounts, paging transactions",
		"accounts", len(accounts),
		"start_date", startDate,
		"end_date", endDate)

	offset := 0
	for {
		if result.Pages >= maxPages {
			c.logger.Warn("Transaction pagination hit hard page cap",
				"pages", result.Pages,
				"fetched", len(result.Transactions),
				"reported_total", result.Total)
			break
		}

		remaining := opts.MaxTransactions - len(result.Transactions)
		if remaining <= 0 {
			break
		}
		count := pageSize
		if remaining < count {
			count = remaining
		}

		page, total, pageErr := c.fetchPage(ctx, accessToken, startDate, endDate, int32(count), int32(offset))
		result.Pages++
		if pageErr != nil {
			// Keep the account list; the caller gets a degraded result
			// instead of losing everything already fetched.
			c.logger.Error("Transaction page fetch failed",
				"page", result.Pages,
				"offset", offset,
				"error", pageErr)
			result.Transactions = nil
			result.ErrorNote = fmt.Sprintf("transactions unavailable: %v", pageErr)
			return result, nil
		}

		result.Transactions = append(result.Transactions, page...)
		result.Total = total

		c.logger.Debug("Fetched transaction page",
			"count", len(page),
			"offset", offset,
			"total", total)

		if len(page) == 0 {
			break
		}
		if total > 0 && len(result.Transactions) >= total {
			break
		}
		offset += len(page)
	}

	c.logger.Info("Fetch complete",
		"accounts", len(result.Accounts),
		"transactions", len(result.Transactions),
		"pages", result.Pages,
		"reported_total", result.Total)

	return result, nil
}

// accountsFromAPI fetches the account list through the SDK.
func (c *Client) accountsFromAPI(ctx context.Context, accessToken string) ([]model.ExternalAccount, error) {
	request := plaid.NewAccountsGetRequest(accessToken)
	resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
	if err != nil {
		return nil, wrapAPIError("accounts get", err)
	}

	raw := resp.GetAccounts()
	accounts := make([]model.ExternalAccount, 0, len(raw))
	for _, a := range raw {
		accounts = append(accounts, mapAccount(a))
	}
	return accounts, nil
}

// transactionsPageFromAPI fetches one transactions page through the SDK.
func (c *Client) transactionsPageFromAPI(ctx context.Context, accessToken, startDate, endDate string, count, offset int32) ([]model.ExternalTransaction, int, error) {
	request := plaid.NewTransactionsGetRequest(accessToken, startDate, endDate)
	options := plaid.TransactionsGetRequestOptions{
		Count:  plaid.PtrInt32(count),
		Offset: plaid.PtrInt32(offset),
	}
	request.SetOptions(options)

	resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
	if err != nil {
		return nil, 0, wrapAPIError("transactions get", err)
	}

	raw := resp.GetTransactions()
	transactions := make([]model.ExternalTransaction, 0, len(raw))
	for _, t := range raw {
		transactions = append(transactions, c.mapTransaction(t))
	}
	return transactions, int(resp.GetTotalTransactions()), nil
}

func mapAccount(a plaid.AccountBase) model.ExternalAccount {
	balances := a.GetBalances()
	return model.ExternalAccount{
		ExternalID:   a.GetAccountId(),
		Name:         a.GetName(),
		OfficialName: a.GetOfficialName(),
		Type:         string(a.GetType()),
		Subtype:      string(a.GetSubtype()),
		Mask:         a.GetMask(),
		Currency:     balances.GetIsoCurrencyCode(),
		Balance:      balances.GetCurrent(),
	}
}

func (c *Client) mapTransaction(t plaid.Transaction) model.ExternalTransaction {
	date, err := time.Parse("2006-01-02", t.GetDate())
	if err != nil {
		c.logger.Error("Failed to parse transaction date", "date", t.GetDate(), "error", err)
		date = time.Now()
	}

	return model.ExternalTransaction{
		ExternalID:        t.GetTransactionId(),
		AccountExternalID: t.GetAccountId(),
		Description:       t.GetName(),
		MerchantName:      t.GetMerchantName(),
		Amount:            t.GetAmount(),
		Date:              date,
		CategoryPath:      t.GetCategory(),
	}
}

// Ensure Client implements TransactionFetcher interface.
var _ TransactionFetcher = (*Client)(nil)
