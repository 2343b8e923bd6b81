package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finleyhq/finley/internal/common"
	"github.com/finleyhq/finley/internal/model"
	"github.com/google/uuid"
)

const accountColumns = `id, user_id, external_id, bank_name, account_type, account_subtype,
	mask, balance, currency, provider, connected_at, last_synced_at, is_active`

// ListAccounts returns the profile's active accounts, newest connected first.
func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM accounts
		WHERE user_id = ? AND is_active = 1
		ORDER BY connected_at DESC`, accountColumns)

	rows, err := s.db.QueryContext(ctx, query, s.userID)
	if err != nil {
		return nil, persistErr("list accounts", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, persistErr("scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate accounts", err)
	}

	return accounts, nil
}

// GetAccountByID returns one account of this profile, active or not.
func (s *SQLiteStorage) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id = ? AND user_id = ?`, accountColumns)

	row := s.db.QueryRowContext(ctx, query, id, s.userID)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, persistErr("get account", err)
	}
	return &account, nil
}

// UpsertAccount inserts or updates an account keyed on (external_id, user).
// Mutable fields are overwritten; the internal identifier is preserved on
// conflict. The resulting row is returned. Calling this repeatedly with the
// same external account is idempotent.
func (s *SQLiteStorage) UpsertAccount(ctx context.Context, account model.Account) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if account.ExternalID == "" {
		return nil, fmt.Errorf("account external ID cannot be empty")
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.ConnectedAt.IsZero() {
		account.ConnectedAt = time.Now()
	}
	if account.LastSyncedAt.IsZero() {
		account.LastSyncedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, user_id, external_id, bank_name, account_type, account_subtype,
			mask, balance, currency, provider, connected_at, last_synced_at, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(external_id, user_id) DO UPDATE SET
			bank_name = excluded.bank_name,
			account_type = excluded.account_type,
			account_subtype = excluded.account_subtype,
			mask = excluded.mask,
			balance = excluded.balance,
			currency = excluded.currency,
			last_synced_at = excluded.last_synced_at,
			is_active = 1
	`,
		account.ID, s.userID, account.ExternalID, account.BankName, account.Type,
		account.Subtype, account.Mask, account.Balance, account.Currency,
		account.Provider, account.ConnectedAt, account.LastSyncedAt,
	)
	if err != nil {
		return nil, persistErr("upsert account", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE external_id = ? AND user_id = ?`, accountColumns)
	row := s.db.QueryRowContext(ctx, query, account.ExternalID, s.userID)
	persisted, err := scanAccount(row)
	if err != nil {
		return nil, persistErr("read back upserted account", err)
	}

	return &persisted, nil
}

// DeactivateAccount soft-deletes an account. Its transactions stay on disk
// but disappear from all queries through the active-accounts join.
func (s *SQLiteStorage) DeactivateAccount(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET is_active = 0 WHERE id = ? AND user_id = ?`, id, s.userID)
	if err != nil {
		return persistErr("deactivate account", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistErr("deactivate account", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: account %s", common.ErrNotFound, id)
	}

	slog.Info("Account deactivated", "account_id", id)
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (model.Account, error) {
	var account model.Account
	var lastSynced sql.NullTime
	var accountType, subtype sql.NullString

	err := row.Scan(
		&account.ID, &account.UserID, &account.ExternalID, &account.BankName,
		&accountType, &subtype, &account.Mask, &account.Balance,
		&account.Currency, &account.Provider, &account.ConnectedAt,
		&lastSynced, &account.IsActive,
	)
	if err != nil {
		return model.Account{}, err
	}

	account.Type = accountType.String
	account.Subtype = subtype.String
	if lastSynced.Valid {
		account.LastSyncedAt = lastSynced.Time
	}
	return account, nil
}
