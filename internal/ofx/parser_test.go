package ofx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample chequing statement. SEVERITY casing is deliberately mixed and one
// tag is missing its closing bracket, matching quirks seen in real exports.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>Info
</STATUS>
<DTSERVER>20240201120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>CAD
<BANKACCTFROM>
<BANKID>004
<ACCTID>6301234821
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240123120000[0:GMT]
<TRNAMT>-67.43
<FITID>2024012301
<NAME>LOBLAWS #1055
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240122120000[0:GMT]
<TRNAMT>-4.50
<FITID>2024012201
<NAME>POS PURCHASE TIM HORTONS #2241
</STMTTRN>
<STMTTRN>
<TRNTYPE>INT
<DTPOSTED>20240131120000[0:GMT]
<TRNAMT>3.12
<FITID>2024013101
<NAME>INTEREST EARNED
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>2843.67
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240201120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>CAD
<CCACCTFROM>
<ACCTID>4520123412347710
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240119120000[0:GMT]
<TRNAMT>-16.49
<FITID>cc2024011901
<NAME>NETFLIX.COM
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240128120000[0:GMT]
<TRNAMT>500.00
<FITID>cc2024012801
<NAME>PAYMENT - THANK YOU
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-483.51
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseBankStatement(t *testing.T) {
	parser := NewParser()
	stmt, err := parser.Parse(strings.NewReader(sampleBankOFX))
	require.NoError(t, err)

	require.Len(t, stmt.Accounts, 1)
	account := stmt.Accounts[0]
	assert.Equal(t, "6301234821", account.ExternalID)
	assert.Equal(t, "depository", account.Type)
	assert.Equal(t, "checking", account.Subtype)
	assert.Equal(t, "4821", account.Mask)
	assert.Equal(t, "CAD", account.Currency)
	assert.InDelta(t, 2843.67, account.Balance, 0.001)

	require.Len(t, stmt.Transactions, 3)

	// OFX debits are negative; the external convention is positive.
	loblaws := stmt.Transactions[0]
	assert.Equal(t, "2024012301", loblaws.ExternalID)
	assert.Equal(t, "6301234821", loblaws.AccountExternalID)
	assert.Equal(t, "LOBLAWS #1055", loblaws.Description)
	assert.InDelta(t, 67.43, loblaws.Amount, 0.001)
	assert.Equal(t, 2024, loblaws.Date.Year())

	interest := stmt.Transactions[2]
	assert.InDelta(t, -3.12, interest.Amount, 0.001)
	assert.Equal(t, []string{"Income"}, interest.CategoryPath)
}

func TestParseCreditCardStatement(t *testing.T) {
	parser := NewParser()
	stmt, err := parser.Parse(strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)

	require.Len(t, stmt.Accounts, 1)
	account := stmt.Accounts[0]
	assert.Equal(t, "credit", account.Type)
	assert.Equal(t, "7710", account.Mask)

	require.Len(t, stmt.Transactions, 2)
	assert.InDelta(t, 16.49, stmt.Transactions[0].Amount, 0.001)
	assert.InDelta(t, -500.00, stmt.Transactions[1].Amount, 0.001)
}

func TestParseStripsNoisyPrefixes(t *testing.T) {
	parser := NewParser()
	stmt, err := parser.Parse(strings.NewReader(sampleBankOFX))
	require.NoError(t, err)

	tims := stmt.Transactions[1]
	assert.Equal(t, "POS PURCHASE TIM HORTONS #2241", tims.Description)
	assert.Equal(t, "TIM HORTONS #2241", tims.MerchantName)
}

func TestParseRejectsGarbage(t *testing.T) {
	parser := NewParser()
	_, err := parser.Parse(strings.NewReader("this is not an OFX file"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse OFX file")
}

func TestPreprocessFixesUnclosedTags(t *testing.T) {
	parser := NewParser()
	fixed := parser.preprocess("\n\n<OFX>\n<SEVERITY>Info</SEVERITY>\n<BALAMT\n")
	assert.True(t, strings.HasPrefix(fixed, "<OFX>"))
	assert.Contains(t, fixed, "<SEVERITY>INFO</SEVERITY>")
	assert.Contains(t, fixed, "<BALAMT>")
}
