package parser

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Transaction is the canonical, format-independent view of one bank movement.
// Amount is always the unsigned absolute value; Type carries the direction.
// Raw holds format-specific diagnostic fields and is never interpreted
// downstream.
type Transaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        domain.MovementType
	Raw         map[string]string
}

// Statement is the output of one successful parse. BankName is best-effort
// and only ever set by the PDF parser.
type Statement struct {
	Transactions []Transaction
	BankName     string
}

// Parser extracts transactions from a raw statement file. Implementations
// fail with a *domain.BusinessRuleError carrying a remediation message when
// the content cannot be recognized; raw format errors never leak out.
type Parser interface {
	Parse(data []byte, filename string) (*Statement, error)
}

// ForFilename selects the parser for a file by its extension. The selection
// is a pure function of the filename; content sniffing never happens here.
func ForFilename(filename string) (Parser, domain.FileType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ofx", ".qfx":
		return NewOFXParser(), domain.FileTypeOFX, nil
	case ".csv":
		return NewCSVParser(), domain.FileTypeCSV, nil
	case ".pdf":
		return NewPDFParser(), domain.FileTypePDF, nil
	default:
		return nil, "", domain.NewBusinessRuleError(
			"unsupported file format %q: export your statement as OFX, CSV or PDF", filepath.Ext(filename))
	}
}
