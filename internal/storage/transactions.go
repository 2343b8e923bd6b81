package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finleyhq/finley/internal/common"
	"github.com/finleyhq/finley/internal/model"
	"github.com/google/uuid"
)

const transactionColumns = `t.id, t.account_id, t.external_id, t.description, t.amount,
	t.date, t.merchant_name, t.category_name, t.is_manual_category, t.user_id, t.created_at`

// ListTransactions returns the profile's transactions, newest date first.
// Only transactions belonging to active accounts are included. Passing an
// accountID narrows the result to one account.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.user_id = ? AND a.is_active = 1`, transactionColumns)
	args := []any{s.userID}

	if accountID != "" {
		query += ` AND t.account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY t.date DESC, t.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list transactions", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, persistErr("scan transaction", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate transactions", err)
	}

	return transactions, nil
}

// UpsertTransactions bulk inserts or updates transactions keyed on
// (external_id, account). Safe to call repeatedly with overlapping input: an
// existing row keeps its internal identifier and its category fields; only
// description, amount, date, and merchant are refreshed from the new fetch.
func (s *SQLiteStorage) UpsertTransactions(ctx context.Context, transactions []model.Transaction) ([]model.UpsertedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	selectStmt, err := tx.PrepareContext(ctx, `
		SELECT id, category_name, is_manual_category
		FROM transactions WHERE external_id = ? AND account_id = ?`)
	if err != nil {
		return nil, persistErr("prepare select", err)
	}
	defer func() { _ = selectStmt.Close() }()

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, account_id, external_id, description, amount, date,
			merchant_name, category_name, is_manual_category, user_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, persistErr("prepare insert", err)
	}
	defer func() { _ = insertStmt.Close() }()

	updateStmt, err := tx.PrepareContext(ctx, `
		UPDATE transactions
		SET description = ?, amount = ?, date = ?, merchant_name = ?
		WHERE id = ?`)
	if err != nil {
		return nil, persistErr("prepare update", err)
	}
	defer func() { _ = updateStmt.Close() }()

	results := make([]model.UpsertedTransaction, 0, len(transactions))
	for _, txn := range transactions {
		if txn.ExternalID == "" || txn.AccountID == "" {
			return nil, fmt.Errorf("transaction requires external ID and account ID")
		}

		var existingID, existingCategory sql.NullString
		var existingManual bool
		err := selectStmt.QueryRowContext(ctx, txn.ExternalID, txn.AccountID).
			Scan(&existingID, &existingCategory, &existingManual)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			if txn.ID == "" {
				txn.ID = uuid.NewString()
			}
			txn.UserID = s.userID
			var category any
			if txn.CategoryName != "" {
				category = txn.CategoryName
			}
			if _, err := insertStmt.ExecContext(ctx,
				txn.ID, txn.AccountID, txn.ExternalID, txn.Description,
				txn.Amount, txn.Date, txn.MerchantName, category,
				txn.IsManualCategory,
				s.userID,
			); err != nil {
				return nil, persistErr(fmt.Sprintf("insert transaction %s", txn.ExternalID), err)
			}
			results = append(results, model.UpsertedTransaction{Transaction: txn, NewlyInserted: true})

		case err != nil:
			return nil, persistErr("look up transaction", err)

		default:
			txn.ID = existingID.String
			txn.UserID = s.userID
			txn.CategoryName = existingCategory.String
			txn.IsManualCategory = existingManual
			if _, err := updateStmt.ExecContext(ctx,
				txn.Description, txn.Amount, txn.Date, txn.MerchantName, txn.ID,
			); err != nil {
				return nil, persistErr(fmt.Sprintf("update transaction %s", txn.ExternalID), err)
			}
			results = append(results, model.UpsertedTransaction{Transaction: txn, NewlyInserted: false})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("commit transactions", err)
	}

	slog.Debug("Upserted transactions", "count", len(results))
	return results, nil
}

// SetCategory records a user-chosen category. The manual flag is irreversible
// by automated categorization.
func (s *SQLiteStorage) SetCategory(ctx context.Context, transactionID, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET category_name = ?, is_manual_category = 1
		WHERE id = ? AND user_id = ?`,
		category, transactionID, s.userID)
	if err != nil {
		return persistErr("set category", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistErr("set category", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, transactionID)
	}
	return nil
}

// SetCategoryAuto records a pipeline-chosen category. Transactions whose
// category was manually set are left untouched.
func (s *SQLiteStorage) SetCategoryAuto(ctx context.Context, transactionID, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET category_name = ?
		WHERE id = ? AND user_id = ? AND is_manual_category = 0`,
		category, transactionID, s.userID)
	if err != nil {
		return persistErr("set category auto", err)
	}
	return nil
}

func scanTransaction(row scanner) (model.Transaction, error) {
	var txn model.Transaction
	var merchant, category sql.NullString

	err := row.Scan(
		&txn.ID, &txn.AccountID, &txn.ExternalID, &txn.Description,
		&txn.Amount, &txn.Date, &merchant, &category,
		&txn.IsManualCategory, &txn.UserID, &txn.CreatedAt,
	)
	if err != nil {
		return model.Transaction{}, err
	}

	txn.MerchantName = merchant.String
	txn.CategoryName = category.String
	return txn, nil
}
