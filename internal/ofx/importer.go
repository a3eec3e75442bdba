// Package ofx converts OFX/QFX bank statements into receipt records.
package ofx

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Importer parses OFX/QFX statement files into receipts for a user.
type Importer struct{}

// NewImporter creates a new OFX importer.
func NewImporter() *Importer {
	return &Importer{}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocess fixes common formatting issues in real-world OFX files:
// leading whitespace, mixed-case SEVERITY values, and SGML-style tags
// missing their closing bracket.
func (i *Importer) preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	content = tagFixRegex.ReplaceAllString(content, "$1>")
	return content
}

// Parse reads an OFX statement and returns the debit transactions as
// receipts owned by the given user. Credits (deposits, refunds) are
// skipped; a receipt tracker only cares about spending.
func (i *Importer) Parse(reader io.Reader, userID string) ([]model.Receipt, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(i.preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var receipts []model.Receipt

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			for _, tx := range stmt.BankTranList.Transactions {
				if r, ok := i.convert(tx, userID); ok {
					receipts = append(receipts, r)
				}
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			for _, tx := range stmt.BankTranList.Transactions {
				if r, ok := i.convert(tx, userID); ok {
					receipts = append(receipts, r)
				}
			}
		}
	}

	return receipts, nil
}

// convert maps one OFX transaction to a receipt. OFX uses negative
// amounts for debits; receipts store spending as positive totals.
func (i *Importer) convert(tx ofxgo.Transaction, userID string) (model.Receipt, bool) {
	amount, _ := tx.TrnAmt.Float64()
	if amount >= 0 {
		return model.Receipt{}, false
	}

	return model.Receipt{
		ID:           fmt.Sprintf("%s:%s", userID, string(tx.FiTID)),
		UserID:       userID,
		Merchant:     extractMerchant(tx),
		Total:        -amount,
		PurchaseDate: tx.DtPosted.Time,
		CreatedAt:    time.Now(),
	}, true
}

// statementPrefixes are boilerplate lead-ins banks prepend to merchant
// names.
var statementPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// extractMerchant gets the cleanest merchant name available from an
// OFX transaction: PAYEE when present, otherwise NAME with statement
// boilerplate stripped.
func extractMerchant(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := strings.TrimSpace(string(tx.Name))
	for _, prefix := range statementPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop leading "MM/DD " date fragments.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}
