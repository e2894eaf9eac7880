package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore backs every repository interface with in-process maps. A single
// RWMutex serializes state-transition checks, which is what gives
// CompleteImport and CancelImport their read-validate-write atomicity.
type MemoryStore struct {
	imports         map[uuid.UUID]*domain.ImportSession
	items           map[uuid.UUID][]domain.ImportItem
	rules           map[uuid.UUID][]domain.MatchRule
	entries         []domain.LedgerEntry
	suppliers       map[uuid.UUID]domain.Supplier
	clients         map[uuid.UUID]domain.Client
	categories      map[uuid.UUID]domain.Category
	audits          map[uuid.UUID][]domain.AuditRecord
	processedEvents map[string]bool
	mu              sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		imports:         make(map[uuid.UUID]*domain.ImportSession),
		items:           make(map[uuid.UUID][]domain.ImportItem),
		rules:           make(map[uuid.UUID][]domain.MatchRule),
		suppliers:       make(map[uuid.UUID]domain.Supplier),
		clients:         make(map[uuid.UUID]domain.Client),
		categories:      make(map[uuid.UUID]domain.Category),
		audits:          make(map[uuid.UUID][]domain.AuditRecord),
		processedEvents: make(map[string]bool),
	}
}

// --- ImportRepository ---

func (s *MemoryStore) CreateImport(ctx context.Context, session *domain.ImportSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *session
	s.imports[session.ID] = &stored
	s.items[session.ID] = []domain.ImportItem{}

	return nil
}

func (s *MemoryStore) GetImport(ctx context.Context, companyID, importID uuid.UUID) (*domain.ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.findImport(companyID, importID)
	if err != nil {
		return nil, err
	}

	found := *session
	return &found, nil
}

func (s *MemoryStore) ListImports(ctx context.Context, companyID uuid.UUID) ([]domain.ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []domain.ImportSession
	for _, session := range s.imports {
		if session.CompanyID == companyID {
			sessions = append(sessions, *session)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

func (s *MemoryStore) SetImportTotal(ctx context.Context, importID uuid.UUID, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.imports[importID]
	if !exists {
		return domain.ErrImportNotFound
	}

	session.TotalRecords = total
	return nil
}

func (s *MemoryStore) CreateItem(ctx context.Context, item *domain.ImportItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.imports[item.ImportID]; !exists {
		return domain.ErrImportNotFound
	}

	s.items[item.ImportID] = append(s.items[item.ImportID], *item)
	return nil
}

func (s *MemoryStore) GetItem(ctx context.Context, importID, itemID uuid.UUID) (*domain.ImportItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items[importID] {
		if item.ID == itemID {
			found := item
			return &found, nil
		}
	}

	return nil, domain.ErrImportItemNotFound
}

func (s *MemoryStore) ListItems(ctx context.Context, importID uuid.UUID) ([]domain.ImportItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.ImportItem, len(s.items[importID]))
	copy(items, s.items[importID])

	return items, nil
}

func (s *MemoryStore) UpdateItem(ctx context.Context, item *domain.ImportItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.imports[item.ImportID]
	if !exists {
		return domain.ErrImportNotFound
	}
	// Re-checked under the write lock so an edit racing a confirm or cancel
	// cannot land on a session that already left review.
	if session.Status != domain.ImportStatusPendingReview {
		return domain.ErrImportNotEditable
	}

	stored := s.items[item.ImportID]
	for i := range stored {
		if stored[i].ID == item.ID {
			stored[i] = *item
			return nil
		}
	}

	return domain.ErrImportItemNotFound
}

func (s *MemoryStore) CompleteImport(ctx context.Context, companyID, importID uuid.UUID, entries []domain.LedgerEntry, rules []domain.MatchRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.findImport(companyID, importID)
	if err != nil {
		return err
	}
	if session.Status != domain.ImportStatusPendingReview {
		return domain.ErrImportNotEditable
	}

	s.entries = append(s.entries, entries...)
	for _, rule := range rules {
		s.upsertRule(rule)
	}

	session.Status = domain.ImportStatusCompleted
	return nil
}

func (s *MemoryStore) CancelImport(ctx context.Context, companyID, importID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.findImport(companyID, importID)
	if err != nil {
		return err
	}
	if session.Status != domain.ImportStatusPendingReview {
		return domain.ErrImportNotEditable
	}

	session.Status = domain.ImportStatusCancelled
	s.items[importID] = []domain.ImportItem{}
	return nil
}

// upsertRule overwrites the rule with the same company and pattern, or
// appends a new one. Caller holds the write lock.
func (s *MemoryStore) upsertRule(rule domain.MatchRule) {
	stored := s.rules[rule.CompanyID]
	for i := range stored {
		if stored[i].Pattern == rule.Pattern {
			stored[i].CounterpartyID = rule.CounterpartyID
			stored[i].CategoryID = rule.CategoryID
			return
		}
	}
	s.rules[rule.CompanyID] = append(stored, rule)
}

// --- RuleRepository ---

func (s *MemoryStore) ListRules(ctx context.Context, companyID uuid.UUID) ([]domain.MatchRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]domain.MatchRule, len(s.rules[companyID]))
	copy(rules, s.rules[companyID])

	return rules, nil
}

// --- LedgerRepository ---

func (s *MemoryStore) EntryExists(ctx context.Context, companyID uuid.UUID, date time.Time, amount decimal.Decimal, description string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entries {
		if entry.CompanyID == companyID &&
			sameDate(entry.DueDate, date) &&
			entry.Amount.Equal(amount) &&
			entry.Description == description {
			return true, nil
		}
	}

	return false, nil
}

func (s *MemoryStore) MarkOverdue(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for i := range s.entries {
		if s.entries[i].Status == domain.EntryStatusPending && s.entries[i].DueDate.Before(before) {
			s.entries[i].Status = domain.EntryStatusOverdue
			updated++
		}
	}

	return updated, nil
}

// --- PartyRepository ---

func (s *MemoryStore) ListActiveSuppliers(ctx context.Context, companyID uuid.UUID) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var suppliers []domain.Supplier
	for _, supplier := range s.suppliers {
		if supplier.CompanyID == companyID && supplier.Active {
			suppliers = append(suppliers, supplier)
		}
	}

	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].Name < suppliers[j].Name })
	return suppliers, nil
}

func (s *MemoryStore) ListActiveClients(ctx context.Context, companyID uuid.UUID) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var clients []domain.Client
	for _, client := range s.clients {
		if client.CompanyID == companyID && client.Active {
			clients = append(clients, client)
		}
	}

	sort.Slice(clients, func(i, j int) bool { return clients[i].Name < clients[j].Name })
	return clients, nil
}

func (s *MemoryStore) SupplierExists(ctx context.Context, supplierID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.suppliers[supplierID]
	return exists, nil
}

func (s *MemoryStore) CategoryExists(ctx context.Context, companyID, categoryID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categories[categoryID]
	return exists && category.CompanyID == companyID, nil
}

// --- AuditRepository ---

func (s *MemoryStore) AddAuditRecord(ctx context.Context, record *domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audits[record.CompanyID] = append(s.audits[record.CompanyID], *record)
	return nil
}

func (s *MemoryStore) ListAuditRecords(ctx context.Context, companyID uuid.UUID) ([]domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.AuditRecord, len(s.audits[companyID]))
	copy(records, s.audits[companyID])

	return records, nil
}

func (s *MemoryStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.processedEvents[eventID], nil
}

func (s *MemoryStore) MarkEventProcessed(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processedEvents[eventID] = true
	return nil
}

// --- Seed helpers for collaborator data (suppliers, clients, categories,
// existing ledger entries). The real system owns these elsewhere. ---

func (s *MemoryStore) AddSupplier(supplier domain.Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[supplier.ID] = supplier
}

func (s *MemoryStore) AddClient(client domain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = client
}

func (s *MemoryStore) AddCategory(category domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[category.ID] = category
}

func (s *MemoryStore) AddLedgerEntry(entry domain.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

// ListLedgerEntries returns every entry for the company, in insertion order.
func (s *MemoryStore) ListLedgerEntries(companyID uuid.UUID) []domain.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []domain.LedgerEntry
	for _, entry := range s.entries {
		if entry.CompanyID == companyID {
			entries = append(entries, entry)
		}
	}
	return entries
}

func (s *MemoryStore) findImport(companyID, importID uuid.UUID) (*domain.ImportSession, error) {
	session, exists := s.imports[importID]
	if !exists || session.CompanyID != companyID {
		return nil, domain.ErrImportNotFound
	}
	return session, nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
