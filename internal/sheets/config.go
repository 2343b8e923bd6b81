// Package sheets exports the local ledger to a Google Sheets spreadsheet.
package sheets

import "fmt"

// Config holds the configuration for the Google Sheets exporter.
type Config struct {
	ClientID         string
	ClientSecret     string
	TokenFile        string
	SpreadsheetID    string
	SpreadsheetName  string
	TimeZone         string
	EnableFormatting bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName:  "Finley Export",
		TimeZone:         "America/Toronto",
		EnableFormatting: true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("missing Google OAuth2 credentials: set sheets.client_id and sheets.client_secret")
	}
	if c.SpreadsheetName == "" && c.SpreadsheetID == "" {
		return fmt.Errorf("either a spreadsheet id or a spreadsheet name is required")
	}
	return nil
}
