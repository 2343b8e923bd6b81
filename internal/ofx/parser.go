// Package ofx parses OFX/QFX statement exports into the external shapes the
// ingestion engine understands, so bank downloads can be imported without an
// aggregator connection.
package ofx

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/finleyhq/finley/internal/model"
)

// Statement is everything extracted from one OFX/QFX file. Transaction
// amounts follow the aggregator convention (positive = debit) so the result
// can be handed straight to the ingestion engine.
type Statement struct {
	Accounts     []model.ExternalAccount
	Transactions []model.ExternalTransaction
}

// Parser parses OFX/QFX files.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocess fixes formatting quirks seen in real bank exports: leading
// whitespace before the header, mixed-case SEVERITY values, and SGML-style
// tags missing their closing bracket.
func (p *Parser) preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	content = tagFixRegex.ReplaceAllString(content, "$1>")
	return content
}

// Parse reads an OFX/QFX file and returns its accounts and transactions.
func (p *Parser) Parse(reader io.Reader) (*Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	stmt := &Statement{}

	for _, msg := range resp.Bank {
		bank, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		account := model.ExternalAccount{
			ExternalID: string(bank.BankAcctFrom.AcctID),
			Name:       "Imported bank account",
			Type:       "depository",
			Subtype:    strings.ToLower(bank.BankAcctFrom.AcctType.String()),
			Mask:       maskFrom(string(bank.BankAcctFrom.AcctID)),
			Currency:   bank.CurDef.String(),
		}
		balance, _ := bank.BalAmt.Float64()
		account.Balance = balance
		stmt.Accounts = append(stmt.Accounts, account)
		if bank.BankTranList != nil {
			for _, tx := range bank.BankTranList.Transactions {
				stmt.Transactions = append(stmt.Transactions, convertTransaction(tx, account.ExternalID))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		card, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		account := model.ExternalAccount{
			ExternalID: string(card.CCAcctFrom.AcctID),
			Name:       "Imported credit card",
			Type:       "credit",
			Subtype:    "credit card",
			Mask:       maskFrom(string(card.CCAcctFrom.AcctID)),
			Currency:   card.CurDef.String(),
		}
		balance, _ := card.BalAmt.Float64()
		account.Balance = balance
		stmt.Accounts = append(stmt.Accounts, account)
		if card.BankTranList != nil {
			for _, tx := range card.BankTranList.Transactions {
				stmt.Transactions = append(stmt.Transactions, convertTransaction(tx, account.ExternalID))
			}
		}
	}

	return stmt, nil
}

// convertTransaction maps one OFX transaction. OFX amounts are negative for
// debits; the aggregator convention is the opposite, so the sign flips.
func convertTransaction(tx ofxgo.Transaction, accountExternalID string) model.ExternalTransaction {
	amount, _ := tx.TrnAmt.Float64()

	external := model.ExternalTransaction{
		ExternalID:        string(tx.FiTID),
		AccountExternalID: accountExternalID,
		Description:       string(tx.Name),
		MerchantName:      extractMerchantName(tx),
		Date:              tx.DtPosted.Time,
		Amount:            -amount,
	}

	switch tx.TrnType.String() {
	case "INT", "DIV":
		external.CategoryPath = []string{"Income"}
	case "FEE", "SRVCHG":
		external.CategoryPath = []string{"Bills & Utilities"}
	}

	return external
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Strip leading "MM/DD " date stamps some banks prepend.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// maskFrom derives a display mask from an account id.
func maskFrom(acctID string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, acctID)
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}
