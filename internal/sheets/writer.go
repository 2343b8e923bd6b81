package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/finleyhq/finley/internal/model"
)

// Writer pushes accounts and transactions into a Google Sheets spreadsheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a Google Sheets writer authenticated with token.
func NewWriter(ctx context.Context, config Config, token *oauth2.Token, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := oauth2.NewClient(ctx, oauthConfig(config).TokenSource(ctx, token))
	service, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger.With("component", "sheets"),
	}, nil
}

// Export replaces the spreadsheet contents with the given ledger and returns
// the spreadsheet URL.
func (w *Writer) Export(ctx context.Context, accounts []model.Account, transactions []model.Transaction) (string, error) {
	spreadsheetID, url, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if _, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := prepareValues(accounts, transactions)
	_, err = w.service.Spreadsheets.Values.Update(spreadsheetID, "A1", &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		if err := w.applyFormatting(ctx, spreadsheetID); err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return url, nil
}

func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, string, error) {
	if w.config.SpreadsheetID != "" {
		existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return existing.SpreadsheetId, existing.SpreadsheetUrl, nil
	}

	created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, created.SpreadsheetUrl, nil
}

// prepareValues lays out the export: a transactions table followed by a
// per-category summary. Positive amounts are money in.
func prepareValues(accounts []model.Account, transactions []model.Transaction) [][]any {
	bankByID := make(map[string]string, len(accounts))
	for _, account := range accounts {
		bankByID[account.ID] = fmt.Sprintf("%s (%s)", account.BankName, account.Mask)
	}

	values := make([][]any, 0, len(transactions)+16)
	values = append(values,
		[]any{"Transactions"},
		[]any{"Date", "Description", "Merchant", "Account", "Category", "Amount"},
	)

	totals := make(map[string]float64)
	for _, tx := range transactions {
		category := tx.CategoryName
		if category == "" {
			category = "Uncategorized"
		}
		totals[category] += tx.Amount
		values = append(values, []any{
			tx.Date.Format("2006-01-02"),
			tx.Description,
			tx.MerchantName,
			bankByID[tx.AccountID],
			category,
			tx.Amount,
		})
	}

	categories := make([]string, 0, len(totals))
	for category := range totals {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	values = append(values,
		[]any{},
		[]any{"Summary by Category"},
		[]any{"Category", "Net Amount"},
	)
	for _, category := range categories {
		values = append(values, []any{category, totals[category]})
	}

	return values
}

// applyFormatting bolds the header rows and freezes the column header.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:       0,
					StartRowIndex: 0,
					EndRowIndex:   2,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat.bold",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: 0,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 2,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}
