// Package tui implements the interactive transaction browser.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/finleyhq/finley/internal/cli"
	"github.com/finleyhq/finley/internal/model"
	"github.com/finleyhq/finley/internal/service"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(cli.SubtleColor).Padding(0, 1)
	helpStyle   = lipgloss.NewStyle().Foreground(cli.SubtleColor).Padding(0, 1)
)

type loadedMsg struct {
	transactions []model.Transaction
	categories   []model.Category
	err          error
}

// Model is the bubbletea model for the transaction browser.
type Model struct {
	storage      service.Storage
	transactions []model.Transaction
	filtered     []model.Transaction
	categories   []model.Category
	table        table.Model
	searchInput  textinput.Model
	status       string
	searching    bool
	width        int
	height       int
}

// New creates a browser backed by storage.
func New(storage service.Storage) Model {
	columns := []table.Column{
		{Title: "Date", Width: 10},
		{Title: "Description", Width: 32},
		{Title: "Merchant", Width: 20},
		{Title: "Category", Width: 18},
		{Title: "Amount", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(cli.PrimaryColor)
	t.SetStyles(styles)

	search := textinput.New()
	search.Placeholder = "search description or merchant"
	search.CharLimit = 64

	return Model{
		storage:     storage,
		table:       t,
		searchInput: search,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.load
}

func (m Model) load() tea.Msg {
	ctx := context.Background()
	transactions, err := m.storage.ListTransactions(ctx, "")
	if err != nil {
		return loadedMsg{err: err}
	}
	categories, err := m.storage.ListCategories(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{transactions: transactions, categories: categories}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err != nil {
			m.status = cli.FormatError(msg.err.Error())
			return m, nil
		}
		m.transactions = msg.transactions
		m.categories = msg.categories
		m.applyFilter(m.searchInput.Value())
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(5, msg.Height-6))
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			switch msg.String() {
			case "enter", "esc":
				m.searching = false
				m.searchInput.Blur()
				return m, nil
			default:
				var cmd tea.Cmd
				m.searchInput, cmd = m.searchInput.Update(msg)
				m.applyFilter(m.searchInput.Value())
				return m, cmd
			}
		}

		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "/":
			m.searching = true
			m.searchInput.Focus()
			return m, textinput.Blink
		case "r":
			return m, m.load
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			return m, m.assignCategory(int(msg.String()[0] - '1'))
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// assignCategory marks the selected transaction with the nth category, as a
// manual categorization.
func (m *Model) assignCategory(index int) tea.Cmd {
	if index >= len(m.categories) {
		return nil
	}
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.filtered) {
		return nil
	}
	tx := m.filtered[cursor]
	category := m.categories[index]

	return func() tea.Msg {
		if err := m.storage.SetCategory(context.Background(), tx.ID, category.Name); err != nil {
			return loadedMsg{err: err}
		}
		return m.load()
	}
}

func (m *Model) applyFilter(query string) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		m.filtered = m.transactions
	} else {
		m.filtered = nil
		for _, tx := range m.transactions {
			haystack := strings.ToLower(tx.Description + " " + tx.MerchantName)
			if strings.Contains(haystack, query) {
				m.filtered = append(m.filtered, tx)
			}
		}
	}

	rows := make([]table.Row, len(m.filtered))
	for i, tx := range m.filtered {
		category := tx.CategoryName
		if tx.IsManualCategory {
			category += " *"
		}
		rows[i] = table.Row{
			cli.FormatDate(tx.Date),
			cli.Truncate(tx.Description, 32),
			cli.Truncate(tx.MerchantName, 20),
			cli.Truncate(category, 18),
			fmt.Sprintf("%.2f", tx.Amount),
		}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(0)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Finley · Transactions"))
	b.WriteString("\n")
	if m.searching {
		b.WriteString(statusStyle.Render("/" + m.searchInput.View()))
	} else {
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d of %d transactions", len(m.filtered), len(m.transactions))))
	}
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ move · / search · 1-9 set category · r reload · q quit"))
	return b.String()
}

// Run launches the browser and blocks until the user quits.
func Run(ctx context.Context, storage service.Storage) error {
	program := tea.NewProgram(New(storage), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
