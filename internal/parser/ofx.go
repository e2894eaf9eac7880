package parser

import (
	"bytes"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/findash/bank-import-service/internal/domain"
	"github.com/shopspring/decimal"
)

// OFXParser decodes OFX/QFX banking responses. Stateless, safe for
// concurrent use.
type OFXParser struct{}

func NewOFXParser() *OFXParser {
	return &OFXParser{}
}

func (p *OFXParser) Parse(data []byte, filename string) (*Statement, error) {
	resp, err := ofxgo.ParseResponse(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewBusinessRuleError(
			"could not read the OFX file: it may be corrupted or use an unsupported dialect")
	}

	if len(resp.Bank) == 0 {
		return nil, domain.NewBusinessRuleError("the OFX file contains no bank transactions")
	}

	var transactions []Transaction
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		if stmt.BankTranList == nil {
			continue
		}

		for _, txn := range stmt.BankTranList.Transactions {
			// FloatString(2) keeps the two decimal places banks actually use,
			// so the round trip through decimal stays exact.
			amount, err := decimal.NewFromString(txn.TrnAmt.FloatString(2))
			if err != nil {
				continue
			}

			movement := domain.MovementTypeCredit
			if txn.TrnAmt.Sign() < 0 {
				movement = domain.MovementTypeDebit
			}

			description := strings.TrimSpace(txn.Memo.String())
			if description == "" {
				description = strings.TrimSpace(txn.Name.String())
			}

			transactions = append(transactions, Transaction{
				Date:        dateOnly(txn.DtPosted.Time),
				Description: description,
				Amount:      amount.Abs(),
				Type:        movement,
				Raw: map[string]string{
					"fitid": txn.FiTID.String(),
					"memo":  description,
				},
			})
		}
	}

	return &Statement{Transactions: transactions}, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
