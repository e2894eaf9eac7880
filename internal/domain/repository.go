package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ImportRepository persists sessions and their candidate items. All lookups
// are company-scoped; a session owned by another company reads as not found.
type ImportRepository interface {
	CreateImport(ctx context.Context, session *ImportSession) error
	GetImport(ctx context.Context, companyID, importID uuid.UUID) (*ImportSession, error)
	ListImports(ctx context.Context, companyID uuid.UUID) ([]ImportSession, error)
	SetImportTotal(ctx context.Context, importID uuid.UUID, total int) error

	CreateItem(ctx context.Context, item *ImportItem) error
	GetItem(ctx context.Context, importID, itemID uuid.UUID) (*ImportItem, error)
	ListItems(ctx context.Context, importID uuid.UUID) ([]ImportItem, error)
	UpdateItem(ctx context.Context, item *ImportItem) error

	// CompleteImport atomically re-checks the PENDING_REVIEW guard, persists
	// every ledger entry, upserts the match rules in order (last write wins
	// per pattern) and flips the session to COMPLETED. A failure leaves no
	// partial state behind.
	CompleteImport(ctx context.Context, companyID, importID uuid.UUID, entries []LedgerEntry, rules []MatchRule) error

	// CancelImport atomically re-checks the PENDING_REVIEW guard, flips the
	// session to CANCELLED and deletes all of its items.
	CancelImport(ctx context.Context, companyID, importID uuid.UUID) error
}

// RuleRepository exposes the persisted match rules in stored order.
type RuleRepository interface {
	ListRules(ctx context.Context, companyID uuid.UUID) ([]MatchRule, error)
}

// LedgerRepository is the boundary to the materialized ledger.
type LedgerRepository interface {
	// EntryExists probes for an entry with the identical due date, amount and
	// description. Exact match only; near-duplicates are deliberately missed.
	EntryExists(ctx context.Context, companyID uuid.UUID, date time.Time, amount decimal.Decimal, description string) (bool, error)

	// MarkOverdue flips PENDING entries due strictly before the given date to
	// OVERDUE and reports how many changed.
	MarkOverdue(ctx context.Context, before time.Time) (int, error)
}

// PartyRepository looks up the company's counterparties and categories.
type PartyRepository interface {
	ListActiveSuppliers(ctx context.Context, companyID uuid.UUID) ([]Supplier, error)
	ListActiveClients(ctx context.Context, companyID uuid.UUID) ([]Client, error)
	SupplierExists(ctx context.Context, supplierID uuid.UUID) (bool, error)
	CategoryExists(ctx context.Context, companyID, categoryID uuid.UUID) (bool, error)
}

// AuditRepository records the import audit trail.
type AuditRepository interface {
	AddAuditRecord(ctx context.Context, record *AuditRecord) error
	ListAuditRecords(ctx context.Context, companyID uuid.UUID) ([]AuditRecord, error)

	// Idempotency tracking for event bus delivery
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID string) error
}

// Repository is the full persistence surface backed by a single store.
type Repository interface {
	ImportRepository
	RuleRepository
	LedgerRepository
	PartyRepository
	AuditRepository
}
