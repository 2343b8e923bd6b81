package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/finleyhq/finley/internal/model"
	"github.com/google/uuid"
)

// ListCategories returns the profile's categories, defaults first, then by name.
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, is_default, created_at
		FROM categories
		WHERE user_id = ?
		ORDER BY is_default DESC, name`, s.userID)
	if err != nil {
		return nil, persistErr("list categories", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.Color, &cat.IsDefault, &cat.CreatedAt); err != nil {
			return nil, persistErr("scan category", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate categories", err)
	}

	return categories, nil
}

// CreateCategory creates a user-defined category. Names are unique per
// profile; creating an existing name returns the existing row.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, color string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("category name cannot be empty")
	}
	if color == "" {
		color = "#999999"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO categories (id, user_id, name, color, is_default)
		VALUES (?, ?, ?, ?, 0)`,
		uuid.NewString(), s.userID, name, color)
	if err != nil {
		return nil, persistErr("create category", err)
	}

	var cat model.Category
	err = s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, color, is_default, created_at
		FROM categories WHERE name = ? AND user_id = ?`, name, s.userID).
		Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.Color, &cat.IsDefault, &cat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistErr("read back category", err)
	}
	if err != nil {
		return nil, persistErr("read back category", err)
	}

	return &cat, nil
}
