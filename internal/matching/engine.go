package matching

import (
	"context"
	"strings"
	"time"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/findash/bank-import-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Suggestion is a best-effort pre-fill for a candidate item. Every field
// stays editable until the session is confirmed.
type Suggestion struct {
	CounterpartyID *uuid.UUID
	CategoryID     *uuid.UUID
}

// Engine proposes counterparties and categories for parsed transactions and
// flags probable duplicates. It never mutates persisted rules.
type Engine struct {
	rules  domain.RuleRepository
	ledger domain.LedgerRepository
	party  domain.PartyRepository
	logger *logger.Logger
}

func NewEngine(rules domain.RuleRepository, ledger domain.LedgerRepository, party domain.PartyRepository, log *logger.Logger) *Engine {
	return &Engine{
		rules:  rules,
		ledger: ledger,
		party:  party,
		logger: log,
	}
}

// Suggest resolves a counterparty and category for the description. Persisted
// rules are tried first in stored order, first match wins; only when none
// matches does the name-based fallback scan suppliers (payable) or clients
// (receivable).
func (e *Engine) Suggest(ctx context.Context, companyID uuid.UUID, entryType domain.EntryType, description string) (Suggestion, error) {
	rules, err := e.rules.ListRules(ctx, companyID)
	if err != nil {
		return Suggestion{}, err
	}

	descLower := strings.ToLower(description)
	for _, rule := range rules {
		if strings.Contains(descLower, strings.ToLower(rule.Pattern)) {
			counterparty := rule.CounterpartyID
			suggestion := Suggestion{CounterpartyID: &counterparty}
			if rule.CategoryID != nil {
				category := *rule.CategoryID
				suggestion.CategoryID = &category
			}
			return suggestion, nil
		}
	}

	return e.suggestByName(ctx, companyID, entryType, descLower)
}

// suggestByName assigns at most a counterparty; the category stays open.
func (e *Engine) suggestByName(ctx context.Context, companyID uuid.UUID, entryType domain.EntryType, descLower string) (Suggestion, error) {
	if entryType == domain.EntryTypePayable {
		suppliers, err := e.party.ListActiveSuppliers(ctx, companyID)
		if err != nil {
			return Suggestion{}, err
		}
		for _, supplier := range suppliers {
			if strings.Contains(descLower, strings.ToLower(supplier.Name)) {
				id := supplier.ID
				return Suggestion{CounterpartyID: &id}, nil
			}
		}
		return Suggestion{}, nil
	}

	clients, err := e.party.ListActiveClients(ctx, companyID)
	if err != nil {
		return Suggestion{}, err
	}
	for _, client := range clients {
		if strings.Contains(descLower, strings.ToLower(client.Name)) {
			id := client.ID
			return Suggestion{CounterpartyID: &id}, nil
		}
	}
	return Suggestion{}, nil
}

// IsDuplicate probes the ledger for an entry with the identical date, amount
// and description. Exact match only: false negatives are acceptable, false
// positives go to the human reviewer instead of being rejected.
func (e *Engine) IsDuplicate(ctx context.Context, companyID uuid.UUID, date time.Time, amount decimal.Decimal, description string) (bool, error) {
	duplicate, err := e.ledger.EntryExists(ctx, companyID, date, amount, description)
	if err != nil {
		e.logger.Warn(ctx, "Duplicate probe failed",
			"error", err,
		)
		return false, err
	}
	return duplicate, nil
}
