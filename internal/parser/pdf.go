package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"
)

// Standard layout: "dd/MM/yyyy  description  1.234,56 C"
var (
	stdDatePattern   = regexp.MustCompile(`^\s*(\d{2}/\d{2}/(?:\d{4}|\d{2}))\s+`)
	stdAmountPattern = regexp.MustCompile(`(-?)\s*(?:R\$\s*)?(-?)(\d{1,3}(?:\.\d{3})*,\d{2})\s*([CDcd])?\s*$`)
)

// Narrative layout (Banco Inter): a running date header followed by
// transaction lines carrying the amount and the day's running balance.
var (
	narrativeDateHeader = regexp.MustCompile(`^(\d{1,2})\s+de\s+(\S+)\s+de\s+(\d{4})\s+[Ss]aldo do dia:`)
	narrativeTxPattern  = regexp.MustCompile(`^(.+?)\s+(-?)R\$\s*(\d{1,3}(?:\.\d{3})*,\d{2})\s+R\$\s*\d{1,3}(?:\.\d{3})*,\d{2}\s*$`)
	institutionPattern  = regexp.MustCompile(`(?:Institui[çc][ãa]o|Institution):\s*(.+?)\s*,?\s*$`)
)

var monthsPT = map[string]time.Month{
	"janeiro": time.January, "jan": time.January,
	"fevereiro": time.February, "fev": time.February,
	"março": time.March, "marco": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April,
	"maio": time.May, "mai": time.May,
	"junho": time.June, "jun": time.June,
	"julho": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August,
	"setembro": time.September, "set": time.September,
	"outubro": time.October, "out": time.October,
	"novembro": time.November, "nov": time.November,
	"dezembro": time.December, "dez": time.December,
}

// lineHeuristic tries one statement layout against the extracted lines and
// returns nil when the layout does not apply. Heuristics run in order and
// the first non-empty result wins, so adding a layout stays additive.
type lineHeuristic func(lines []string) []Transaction

// PDFParser extracts linear text from the document and runs the layout
// heuristics over it. Bank name detection is best-effort and independent of
// which heuristic matched.
type PDFParser struct {
	heuristics []lineHeuristic
}

func NewPDFParser() *PDFParser {
	return &PDFParser{
		heuristics: []lineHeuristic{parseStandardLayout, parseNarrativeLayout},
	}
}

func (p *PDFParser) Parse(data []byte, filename string) (*Statement, error) {
	lines, err := extractLines(data)
	if err != nil {
		return nil, domain.NewBusinessRuleError(
			"could not read this PDF: try exporting your bank statement as OFX or CSV instead")
	}

	var transactions []Transaction
	for _, heuristic := range p.heuristics {
		if transactions = heuristic(lines); len(transactions) > 0 {
			break
		}
	}

	if len(transactions) == 0 {
		return nil, domain.NewBusinessRuleError(
			"could not extract transactions from this PDF: try exporting your bank statement as OFX or CSV instead")
	}

	return &Statement{
		Transactions: transactions,
		BankName:     detectBankName(lines),
	}, nil
}

// extractLines pulls row-ordered text out of the PDF. The library is known
// to panic on malformed documents, hence the recover.
func extractLines(data []byte) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf extraction panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("no text extracted")
	}
	return lines, nil
}

func parseStandardLayout(lines []string) []Transaction {
	var transactions []Transaction
	for _, line := range lines {
		if tx, ok := parseStandardLine(line); ok {
			transactions = append(transactions, tx)
		}
	}
	return transactions
}

func parseStandardLine(line string) (Transaction, bool) {
	if strings.TrimSpace(line) == "" {
		return Transaction{}, false
	}

	dateLoc := stdDatePattern.FindStringSubmatchIndex(line)
	if dateLoc == nil {
		return Transaction{}, false
	}
	amountLoc := stdAmountPattern.FindStringSubmatchIndex(line)
	if amountLoc == nil {
		return Transaction{}, false
	}

	date, ok := parseBrazilianDate(line[dateLoc[2]:dateLoc[3]])
	if !ok {
		return Transaction{}, false
	}

	description := strings.TrimSpace(line[dateLoc[1]:amountLoc[0]])
	if description == "" {
		return Transaction{}, false
	}

	amount, ok := parseBrazilianAmount(line[amountLoc[6]:amountLoc[7]])
	if !ok {
		return Transaction{}, false
	}

	indicator := ""
	if amountLoc[8] >= 0 {
		indicator = strings.ToUpper(line[amountLoc[8]:amountLoc[9]])
	}

	// Explicit C wins; explicit D, a bare minus sign, or no marker at all
	// all land on debit.
	movement := domain.MovementTypeDebit
	if indicator == "C" {
		movement = domain.MovementTypeCredit
	}

	return Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Type:        movement,
		Raw:         map[string]string{"line": strings.TrimSpace(line)},
	}, true
}

func parseNarrativeLayout(lines []string) []Transaction {
	var transactions []Transaction
	var currentDate time.Time

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if headerDate, ok := parseNarrativeDateHeader(trimmed); ok {
			currentDate = headerDate
			continue
		}
		if currentDate.IsZero() {
			continue
		}

		if tx, ok := parseNarrativeTransaction(trimmed, currentDate); ok {
			transactions = append(transactions, tx)
		}
	}
	return transactions
}

func parseNarrativeDateHeader(line string) (time.Time, bool) {
	m := narrativeDateHeader.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	month, ok := monthsPT[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

func parseNarrativeTransaction(line string, date time.Time) (Transaction, bool) {
	m := narrativeTxPattern.FindStringSubmatch(line)
	if m == nil {
		return Transaction{}, false
	}

	description := strings.TrimSpace(m[1])
	// "Saldo ..." lines are balance markers, not transactions.
	if strings.HasPrefix(strings.ToLower(description), "saldo") {
		return Transaction{}, false
	}

	amount, ok := parseBrazilianAmount(m[3])
	if !ok {
		return Transaction{}, false
	}

	movement := domain.MovementTypeCredit
	if m[2] == "-" {
		movement = domain.MovementTypeDebit
	}

	return Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Type:        movement,
		Raw:         map[string]string{"line": line},
	}, true
}

func detectBankName(lines []string) string {
	for _, line := range lines {
		if m := institutionPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func parseBrazilianDate(s string) (time.Time, bool) {
	for _, layout := range []string{"02/01/2006", "02/01/06"} {
		if date, err := time.Parse(layout, s); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

// parseBrazilianAmount converts "1.234,56" to a decimal value.
func parseBrazilianAmount(s string) (decimal.Decimal, bool) {
	normalized := strings.ReplaceAll(s, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}
