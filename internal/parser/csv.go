package parser

import (
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

const csvDateLayout = "2006-01-02"

var errCSVStructure = errors.New("csv structure not recognized")

// CSVParser reads the standard import template: required columns date,
// description and amount (case-insensitive), optional type column. It
// tolerates UTF-8 and ISO-8859-1 encodings and semicolon or comma
// delimiters; each encoding gets one delimiter guess taken from the header
// line, never a cross product of retries.
type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Parse(data []byte, filename string) (*Statement, error) {
	for _, decode := range []func([]byte) (string, error){decodeUTF8, decodeLatin1} {
		text, err := decode(data)
		if err != nil {
			continue
		}
		transactions, err := p.tryParse(text)
		if err != nil {
			continue
		}
		return &Statement{Transactions: transactions}, nil
	}

	return nil, domain.NewBusinessRuleError(
		"could not recognize the CSV layout: please use the standard import template")
}

func (p *CSVParser) tryParse(text string) ([]Transaction, error) {
	headerLine, _, _ := strings.Cut(text, "\n")

	comma := ','
	if strings.Contains(headerLine, ";") {
		comma = ';'
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = comma
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errCSVStructure
	}
	if len(records) == 0 {
		return nil, errCSVStructure
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	dateCol, okDate := columns["date"]
	descCol, okDesc := columns["description"]
	amountCol, okAmount := columns["amount"]
	if !okDate || !okDesc || !okAmount {
		return nil, errCSVStructure
	}
	typeCol, hasType := columns["type"]

	var transactions []Transaction
	for line, record := range records[1:] {
		date, err := time.Parse(csvDateLayout, strings.TrimSpace(record[dateCol]))
		if err != nil {
			return nil, errCSVStructure
		}

		// Template amounts use comma as the decimal separator.
		rawAmount := strings.ReplaceAll(strings.TrimSpace(record[amountCol]), ",", ".")
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return nil, errCSVStructure
		}

		movement := domain.MovementTypeDebit
		if hasType && strings.EqualFold(strings.TrimSpace(record[typeCol]), "CREDIT") {
			movement = domain.MovementTypeCredit
		}

		transactions = append(transactions, Transaction{
			Date:        date,
			Description: strings.TrimSpace(record[descCol]),
			Amount:      amount.Abs(),
			Type:        movement,
			Raw: map[string]string{
				"row":  strings.Join(record, string(comma)),
				"line": strconv.Itoa(line + 2),
			},
		})
	}

	if len(transactions) == 0 {
		return nil, errCSVStructure
	}

	return transactions, nil
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("not valid utf-8")
	}
	return string(data), nil
}

func decodeLatin1(data []byte) (string, error) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
