package ofx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data with two debits and one credit.
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
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
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
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>POS PURCHASE STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>500.00
<FITID>2024012501
<NAME>PAYROLL DEPOSIT
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseConvertsDebitsToReceipts(t *testing.T) {
	importer := NewImporter()

	receipts, err := importer.Parse(strings.NewReader(sampleBankOFX), "alice")
	require.NoError(t, err)
	require.Len(t, receipts, 2, "credits must be skipped")

	first := receipts[0]
	assert.Equal(t, "alice", first.UserID)
	assert.Equal(t, "STARBUCKS STORE #1234", first.Merchant, "statement boilerplate should be stripped")
	assert.Equal(t, 25.50, first.Total, "debits are stored as positive totals")
	assert.Equal(t, 2024, first.PurchaseDate.Year())
	assert.NotEmpty(t, first.ID)

	second := receipts[1]
	assert.Equal(t, "Whole Foods Market", second.Merchant)
	assert.Equal(t, 125.00, second.Total)

	// Receipt ids are scoped by user so two users importing the same
	// statement never collide.
	other, err := importer.Parse(strings.NewReader(sampleBankOFX), "bob")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other[0].ID)
}

func TestParseRejectsGarbage(t *testing.T) {
	importer := NewImporter()

	_, err := importer.Parse(strings.NewReader("not an ofx file"), "alice")
	assert.Error(t, err)
}
