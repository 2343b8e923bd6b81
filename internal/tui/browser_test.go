package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/finleyhq/finley/internal/model"
)

func sampleTransactions() []model.Transaction {
	return []model.Transaction{
		{ID: "t1", Description: "Loblaws", MerchantName: "Loblaws", CategoryName: "Groceries", Amount: -67.43, Date: time.Date(2024, 1, 23, 0, 0, 0, 0, time.UTC)},
		{ID: "t2", Description: "Tim Hortons Coffee", MerchantName: "Tim Hortons", CategoryName: "Food & Dining", Amount: -4.50, Date: time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC)},
		{ID: "t3", Description: "PAYROLL DEPOSIT ACME", CategoryName: "Income", Amount: 2150.00, Date: time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC), IsManualCategory: true},
	}
}

func TestApplyFilter(t *testing.T) {
	m := New(nil)
	m.transactions = sampleTransactions()

	m.applyFilter("")
	assert.Len(t, m.filtered, 3)
	assert.Len(t, m.table.Rows(), 3)

	m.applyFilter("tim")
	assert.Len(t, m.filtered, 1)
	assert.Equal(t, "t2", m.filtered[0].ID)

	// Matches merchant too, case-insensitively.
	m.applyFilter("LOBLAWS")
	assert.Len(t, m.filtered, 1)
	assert.Equal(t, "t1", m.filtered[0].ID)

	m.applyFilter("no such thing")
	assert.Empty(t, m.filtered)
}

func TestManualCategoriesAreMarked(t *testing.T) {
	m := New(nil)
	m.transactions = sampleTransactions()
	m.applyFilter("payroll")

	rows := m.table.Rows()
	assert.Len(t, rows, 1)
	assert.Contains(t, rows[0][3], "Income *")
}

func TestAssignCategoryOutOfRange(t *testing.T) {
	m := New(nil)
	m.transactions = sampleTransactions()
	m.applyFilter("")

	assert.Nil(t, m.assignCategory(5))
}
