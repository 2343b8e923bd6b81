// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color (mint green).
	PrimaryColor = lipgloss.Color("#2BB673")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#4ECDC4")
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#95E1D3")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666")

	// InflowColor marks money coming in.
	InflowColor = lipgloss.Color("#2BB673")
	// OutflowColor marks money going out.
	OutflowColor = lipgloss.Color("#E05252")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("#333"))

	// InflowStyle formats positive amounts.
	InflowStyle = lipgloss.NewStyle().
			Foreground(InflowColor)

	// OutflowStyle formats negative amounts.
	OutflowStyle = lipgloss.NewStyle().
			Foreground(OutflowColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠"
	BankIcon    = "🏦"
	CardIcon    = "💳"
	ChartIcon   = "📊"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatTitle formats a title with the bank icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(BankIcon + " " + title)
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	boxContent := lipgloss.JoinVertical(
		lipgloss.Left,
		boxTitle,
		content,
	)

	return BoxStyle.Render(boxContent)
}

// FormatAmount renders a signed amount with its currency, colored by
// direction. Positive means money in.
func FormatAmount(amount float64, currency string) string {
	if currency == "" {
		currency = "CAD"
	}
	text := fmt.Sprintf("%.2f %s", amount, currency)
	if amount >= 0 {
		return InflowStyle.Render("+" + text)
	}
	return OutflowStyle.Render(text)
}

// FormatDate renders a transaction date for table output.
func FormatDate(date time.Time) string {
	if date.IsZero() {
		return SubtleStyle.Render("-")
	}
	return date.Format("2006-01-02")
}

// FormatMask renders an account mask the way banks print it.
func FormatMask(mask string) string {
	return SubtleStyle.Render("•••• " + mask)
}

// Truncate shortens s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max || max < 1 {
		return s
	}
	return string(runes[:max-1]) + "…"
}
