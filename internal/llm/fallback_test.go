package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackCategory(t *testing.T) {
	tests := []struct {
		name string
		tx   TxSummary
		want string
	}{
		{
			name: "tim hortons is food and dining",
			tx:   TxSummary{Description: "Tim Hortons Coffee", MerchantName: "Tim Hortons", Amount: -4.50},
			want: "Food & Dining",
		},
		{
			name: "grocery chain",
			tx:   TxSummary{Description: "LOBLAWS #1042", MerchantName: "Loblaws", Amount: -67.43},
			want: "Groceries",
		},
		{
			name: "uber eats beats uber",
			tx:   TxSummary{Description: "UBER EATS TORONTO", Amount: -24.99},
			want: "Food & Dining",
		},
		{
			name: "uber ride is transportation",
			tx:   TxSummary{Description: "UBER TRIP 8842", Amount: -18.20},
			want: "Transportation",
		},
		{
			name: "streaming is entertainment",
			tx:   TxSummary{Description: "NETFLIX.COM", MerchantName: "Netflix", Amount: -16.99},
			want: "Entertainment",
		},
		{
			name: "unmatched outflow defaults to other",
			tx:   TxSummary{Description: "MISC PURCHASE 99", Amount: -10.00},
			want: "Other",
		},
		{
			name: "unmatched inflow defaults to income",
			tx:   TxSummary{Description: "ACME CORP DEP", Amount: 2500.00},
			want: "Income",
		},
		{
			name: "payroll keyword wins over inflow default",
			tx:   TxSummary{Description: "EMPLOYER PAYROLL", Amount: 1800.00},
			want: "Income",
		},
		{
			name: "matching is case insensitive",
			tx:   TxSummary{Description: "shoppers drug mart #210", Amount: -12.87},
			want: "Health & Fitness",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fallbackCategory(tt.tx))
		})
	}
}

func TestFallbackCategory_Deterministic(t *testing.T) {
	tx := TxSummary{Description: "Tim Hortons Coffee", MerchantName: "Tim Hortons", Amount: -2.10}
	first := fallbackCategory(tx)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, fallbackCategory(tx))
	}
	assert.Equal(t, "Food & Dining", first)
}
