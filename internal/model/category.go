package model

import "time"

// Category is a named label used to group transactions in reports and views.
type Category struct {
	CreatedAt time.Time
	ID        string
	UserID    string
	Name      string
	Color     string
	IsDefault bool
}
