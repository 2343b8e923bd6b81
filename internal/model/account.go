// Package model defines the core domain types shared across the application.
package model

import "time"

// Account represents one external bank account linked by a user.
type Account struct {
	ConnectedAt  time.Time
	LastSyncedAt time.Time
	ID           string
	UserID       string
	ExternalID   string
	BankName     string
	Type         string
	Subtype      string
	Mask         string
	Currency     string
	Provider     string
	Balance      float64
	IsActive     bool
}

// ExternalAccount is an account as reported by the aggregator, before it has
// been assigned a local identifier.
type ExternalAccount struct {
	ExternalID   string
	Name         string
	OfficialName string
	Type         string
	Subtype      string
	Mask         string
	Currency     string
	Balance      float64
}
