package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type FileType string

const (
	FileTypeOFX FileType = "OFX"
	FileTypeCSV FileType = "CSV"
	FileTypePDF FileType = "PDF"
)

type ImportStatus string

const (
	ImportStatusPendingReview ImportStatus = "PENDING_REVIEW"
	ImportStatusCompleted     ImportStatus = "COMPLETED"
	ImportStatusCancelled     ImportStatus = "CANCELLED"
)

type MovementType string

const (
	MovementTypeCredit MovementType = "CREDIT"
	MovementTypeDebit  MovementType = "DEBIT"
)

type EntryType string

const (
	EntryTypePayable    EntryType = "PAYABLE"
	EntryTypeReceivable EntryType = "RECEIVABLE"
)

type EntryStatus string

const (
	EntryStatusPending  EntryStatus = "PENDING"
	EntryStatusPaid     EntryStatus = "PAID"
	EntryStatusReceived EntryStatus = "RECEIVED"
	EntryStatusOverdue  EntryStatus = "OVERDUE"
)

// ImportSession is one uploaded statement file under review. Its status is
// the only mutable part of the lifecycle besides the post-parse total count.
type ImportSession struct {
	ID           uuid.UUID    `json:"id"`
	CompanyID    uuid.UUID    `json:"company_id"`
	FileName     string       `json:"file_name"`
	FileType     FileType     `json:"file_type"`
	Status       ImportStatus `json:"status"`
	TotalRecords int          `json:"total_records"`
	ImportedBy   uuid.UUID    `json:"imported_by"`
	BankName     string       `json:"bank_name,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ImportItem is one candidate transaction inside a session. CounterpartyID
// holds either a supplier or a client id; which one it is gets decided at
// confirmation time by the supplier existence probe.
type ImportItem struct {
	ID                uuid.UUID         `json:"id"`
	ImportID          uuid.UUID         `json:"import_id"`
	Date              time.Time         `json:"date"`
	Description       string            `json:"description"`
	Amount            decimal.Decimal   `json:"amount"`
	Type              MovementType      `json:"type"`
	EntryType         EntryType         `json:"entry_type"`
	CounterpartyID    *uuid.UUID        `json:"counterparty_id,omitempty"`
	CategoryID        *uuid.UUID        `json:"category_id,omitempty"`
	PossibleDuplicate bool              `json:"possible_duplicate"`
	OriginalData      map[string]string `json:"original_data,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// MatchRule pre-fills counterparty and category for future imports whose
// description contains Pattern. One rule per pattern per company.
type MatchRule struct {
	ID             uuid.UUID  `json:"id"`
	CompanyID      uuid.UUID  `json:"company_id"`
	Pattern        string     `json:"pattern"`
	CounterpartyID uuid.UUID  `json:"counterparty_id"`
	CategoryID     *uuid.UUID `json:"category_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// LedgerEntry is a materialized payable or receivable. The import engine only
// ever creates these; paying and listing them belongs to the ledger service.
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id"`
	CompanyID   uuid.UUID       `json:"company_id"`
	Type        EntryType       `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`
	Status      EntryStatus     `json:"status"`
	CategoryID  uuid.UUID       `json:"category_id"`
	SupplierID  *uuid.UUID      `json:"supplier_id,omitempty"`
	ClientID    *uuid.UUID      `json:"client_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Supplier struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
}

type Client struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
}

type Category struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
}

// AuditRecord is one entry in the import audit trail, written asynchronously
// by the event bus consumer.
type AuditRecord struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	ImportID  uuid.UUID `json:"import_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
