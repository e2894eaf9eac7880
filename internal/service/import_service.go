package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/findash/bank-import-service/internal/eventbus"
	"github.com/findash/bank-import-service/internal/matching"
	"github.com/findash/bank-import-service/internal/parser"
	"github.com/findash/bank-import-service/pkg/logger"
	"github.com/google/uuid"
)

// ItemUpdate is a partial update of one candidate item. Nil fields are left
// unchanged.
type ItemUpdate struct {
	CounterpartyID *uuid.UUID        `json:"counterparty_id"`
	CategoryID     *uuid.UUID        `json:"category_id"`
	EntryType      *domain.EntryType `json:"entry_type"`
}

// BatchItemUpdate applies the same partial update to several items. Unknown
// item ids are skipped, not failed.
type BatchItemUpdate struct {
	ItemIDs []uuid.UUID `json:"item_ids"`
	ItemUpdate
}

// ImportResult is a session together with its candidate items.
type ImportResult struct {
	Session *domain.ImportSession `json:"session"`
	Items   []domain.ImportItem   `json:"items"`
}

type ImportService interface {
	Upload(ctx context.Context, companyID, userID uuid.UUID, data []byte, filename string) (*ImportResult, error)
	List(ctx context.Context, companyID uuid.UUID) ([]domain.ImportSession, error)
	Get(ctx context.Context, companyID, importID uuid.UUID) (*ImportResult, error)
	UpdateItem(ctx context.Context, companyID, importID, itemID uuid.UUID, update ItemUpdate) (*domain.ImportItem, error)
	UpdateItemsBatch(ctx context.Context, companyID, importID uuid.UUID, update BatchItemUpdate) ([]domain.ImportItem, error)
	Confirm(ctx context.Context, companyID, importID uuid.UUID) error
	Cancel(ctx context.Context, companyID, importID uuid.UUID) error
}

type importService struct {
	repo   domain.Repository
	engine *matching.Engine
	bus    eventbus.EventBus
	logger *logger.Logger
	now    func() time.Time
}

func NewImportService(repo domain.Repository, engine *matching.Engine, bus eventbus.EventBus, log *logger.Logger) ImportService {
	return &importService{
		repo:   repo,
		engine: engine,
		bus:    bus,
		logger: log,
		now:    time.Now,
	}
}

func (s *importService) Upload(ctx context.Context, companyID, userID uuid.UUID, data []byte, filename string) (*ImportResult, error) {
	ctx = logger.WithCompanyID(ctx, companyID.String())

	fileParser, fileType, err := parser.ForFilename(filename)
	if err != nil {
		return nil, err
	}

	statement, err := fileParser.Parse(data, filename)
	if err != nil {
		if domain.IsBusinessRule(err) {
			return nil, err
		}
		return nil, domain.NewBusinessRuleError("error processing file: %v", err)
	}

	if len(statement.Transactions) == 0 {
		return nil, domain.NewBusinessRuleError("no transactions found in the file")
	}

	session := &domain.ImportSession{
		ID:         uuid.New(),
		CompanyID:  companyID,
		FileName:   filename,
		FileType:   fileType,
		Status:     domain.ImportStatusPendingReview,
		ImportedBy: userID,
		BankName:   statement.BankName,
		CreatedAt:  s.now(),
	}

	ctx = logger.WithImportID(ctx, session.ID.String())

	if err := s.repo.CreateImport(ctx, session); err != nil {
		s.logger.Error(ctx, "Failed to create import session",
			"error", err,
		)
		return nil, err
	}

	items := make([]domain.ImportItem, 0, len(statement.Transactions))
	for _, tx := range statement.Transactions {
		item, err := s.buildItem(ctx, companyID, session.ID, tx)
		if err != nil {
			return nil, err
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := s.repo.SetImportTotal(ctx, session.ID, len(items)); err != nil {
		return nil, err
	}
	session.TotalRecords = len(items)

	s.publish(ctx, session, "created", fmt.Sprintf("%d transactions parsed from %s", len(items), filename))

	s.logger.Info(ctx, "Import session created",
		"file_type", fileType,
		"total_records", len(items),
	)

	return &ImportResult{Session: session, Items: items}, nil
}

// buildItem turns one parsed transaction into a pre-enriched candidate item.
func (s *importService) buildItem(ctx context.Context, companyID, importID uuid.UUID, tx parser.Transaction) (*domain.ImportItem, error) {
	entryType := domain.EntryTypeReceivable
	if tx.Type == domain.MovementTypeDebit {
		entryType = domain.EntryTypePayable
	}

	duplicate, err := s.engine.IsDuplicate(ctx, companyID, tx.Date, tx.Amount, tx.Description)
	if err != nil {
		return nil, err
	}

	suggestion, err := s.engine.Suggest(ctx, companyID, entryType, tx.Description)
	if err != nil {
		return nil, err
	}

	return &domain.ImportItem{
		ID:                uuid.New(),
		ImportID:          importID,
		Date:              tx.Date,
		Description:       tx.Description,
		Amount:            tx.Amount,
		Type:              tx.Type,
		EntryType:         entryType,
		CounterpartyID:    suggestion.CounterpartyID,
		CategoryID:        suggestion.CategoryID,
		PossibleDuplicate: duplicate,
		OriginalData:      tx.Raw,
		CreatedAt:         s.now(),
	}, nil
}

func (s *importService) List(ctx context.Context, companyID uuid.UUID) ([]domain.ImportSession, error) {
	ctx = logger.WithCompanyID(ctx, companyID.String())
	return s.repo.ListImports(ctx, companyID)
}

func (s *importService) Get(ctx context.Context, companyID, importID uuid.UUID) (*ImportResult, error) {
	ctx = logger.WithCompanyID(ctx, companyID.String())

	session, err := s.repo.GetImport(ctx, companyID, importID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListItems(ctx, importID)
	if err != nil {
		return nil, err
	}

	return &ImportResult{Session: session, Items: items}, nil
}

func (s *importService) UpdateItem(ctx context.Context, companyID, importID, itemID uuid.UUID, update ItemUpdate) (*domain.ImportItem, error) {
	ctx = logger.WithCompanyID(ctx, companyID.String())
	ctx = logger.WithImportID(ctx, importID.String())

	if err := s.assertEditable(ctx, companyID, importID); err != nil {
		return nil, err
	}
	if err := s.assertCategory(ctx, companyID, update); err != nil {
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, importID, itemID)
	if err != nil {
		return nil, err
	}

	applyUpdate(item, update)

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

func (s *importService) UpdateItemsBatch(ctx context.Context, companyID, importID uuid.UUID, update BatchItemUpdate) ([]domain.ImportItem, error) {
	ctx = logger.WithCompanyID(ctx, companyID.String())
	ctx = logger.WithImportID(ctx, importID.String())

	if err := s.assertEditable(ctx, companyID, importID); err != nil {
		return nil, err
	}
	if err := s.assertCategory(ctx, companyID, update.ItemUpdate); err != nil {
		return nil, err
	}

	updated := make([]domain.ImportItem, 0, len(update.ItemIDs))
	for _, itemID := range update.ItemIDs {
		item, err := s.repo.GetItem(ctx, importID, itemID)
		if err != nil {
			// Unknown ids are skipped rather than failing the batch.
			continue
		}

		applyUpdate(item, update.ItemUpdate)

		if err := s.repo.UpdateItem(ctx, item); err != nil {
			return nil, err
		}
		updated = append(updated, *item)
	}

	return updated, nil
}

func applyUpdate(item *domain.ImportItem, update ItemUpdate) {
	if update.CounterpartyID != nil {
		item.CounterpartyID = update.CounterpartyID
	}
	if update.CategoryID != nil {
		item.CategoryID = update.CategoryID
	}
	if update.EntryType != nil {
		item.EntryType = *update.EntryType
	}
}

func (s *importService) Confirm(ctx context.Context, companyID, importID uuid.UUID) error {
	ctx = logger.WithCompanyID(ctx, companyID.String())
	ctx = logger.WithImportID(ctx, importID.String())

	session, err := s.repo.GetImport(ctx, companyID, importID)
	if err != nil {
		return err
	}
	if session.Status != domain.ImportStatusPendingReview {
		return domain.ErrImportNotEditable
	}

	items, err := s.repo.ListItems(ctx, importID)
	if err != nil {
		return err
	}

	incomplete := 0
	for _, item := range items {
		if item.CounterpartyID == nil || item.CategoryID == nil {
			incomplete++
		}
	}
	if incomplete > 0 {
		return domain.NewBusinessRuleError(
			"%d item(s) are missing a counterparty or category: fill in every item before confirming", incomplete)
	}

	today := dateOnly(s.now())
	entries := make([]domain.LedgerEntry, 0, len(items))
	rules := make([]domain.MatchRule, 0, len(items))

	for _, item := range items {
		entry, err := s.materializeEntry(ctx, companyID, item, today)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		rules = append(rules, s.buildRule(companyID, item))
	}

	// A single store call keeps entries, rule upserts and the status flip in
	// one atomic unit.
	if err := s.repo.CompleteImport(ctx, companyID, importID, entries, rules); err != nil {
		return err
	}

	s.publish(ctx, session, "confirmed", fmt.Sprintf("%d ledger entries materialized", len(entries)))

	s.logger.Info(ctx, "Import confirmed",
		"entries", len(entries),
	)

	return nil
}

// materializeEntry copies the item into a ledger entry. The counterparty id
// is probed as a supplier first and assigned as a client otherwise; the probe,
// not the item's entry type, decides which side it lands on. That mirrors the
// historical behavior and a client id colliding with an unrelated supplier id
// would be misclassified here.
func (s *importService) materializeEntry(ctx context.Context, companyID uuid.UUID, item domain.ImportItem, today time.Time) (domain.LedgerEntry, error) {
	entry := domain.LedgerEntry{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Type:        item.EntryType,
		Description: item.Description,
		Amount:      item.Amount,
		DueDate:     item.Date,
		Status:      domain.EntryStatusPending,
		CategoryID:  *item.CategoryID,
		CreatedAt:   s.now(),
	}

	counterpartyID := *item.CounterpartyID
	isSupplier, err := s.repo.SupplierExists(ctx, counterpartyID)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if isSupplier {
		entry.SupplierID = &counterpartyID
	} else {
		entry.ClientID = &counterpartyID
	}

	// A date strictly in the past settles the entry immediately.
	if dateOnly(item.Date).Before(today) {
		if item.EntryType == domain.EntryTypePayable {
			entry.Status = domain.EntryStatusPaid
		} else {
			entry.Status = domain.EntryStatusReceived
		}
		paymentDate := item.Date
		entry.PaymentDate = &paymentDate
	}

	return entry, nil
}

func (s *importService) buildRule(companyID uuid.UUID, item domain.ImportItem) domain.MatchRule {
	return domain.MatchRule{
		ID:             uuid.New(),
		CompanyID:      companyID,
		Pattern:        normalizePattern(item.Description),
		CounterpartyID: *item.CounterpartyID,
		CategoryID:     item.CategoryID,
		CreatedAt:      s.now(),
	}
}

func (s *importService) Cancel(ctx context.Context, companyID, importID uuid.UUID) error {
	ctx = logger.WithCompanyID(ctx, companyID.String())
	ctx = logger.WithImportID(ctx, importID.String())

	session, err := s.repo.GetImport(ctx, companyID, importID)
	if err != nil {
		return err
	}

	if err := s.repo.CancelImport(ctx, companyID, importID); err != nil {
		return err
	}

	s.publish(ctx, session, "cancelled", "session cancelled, candidate items removed")

	s.logger.Info(ctx, "Import cancelled")
	return nil
}

// assertCategory rejects an update that points at a category the company
// does not own.
func (s *importService) assertCategory(ctx context.Context, companyID uuid.UUID, update ItemUpdate) error {
	if update.CategoryID == nil {
		return nil
	}

	exists, err := s.repo.CategoryExists(ctx, companyID, *update.CategoryID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (s *importService) assertEditable(ctx context.Context, companyID, importID uuid.UUID) error {
	session, err := s.repo.GetImport(ctx, companyID, importID)
	if err != nil {
		return err
	}
	if session.Status != domain.ImportStatusPendingReview {
		return domain.ErrImportNotEditable
	}
	return nil
}

func (s *importService) publish(ctx context.Context, session *domain.ImportSession, action, detail string) {
	event := eventbus.Event{
		ID:   fmt.Sprintf("%s-%s", session.ID, action),
		Type: eventbus.EventTypeImportLifecycle,
		Payload: eventbus.ImportLifecycleEvent{
			CompanyID: session.CompanyID,
			ImportID:  session.ID,
			Action:    action,
			Detail:    detail,
		},
		Timestamp: s.now(),
	}

	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "Failed to publish lifecycle event",
			"action", action,
			"error", err,
		)
	}
}

// normalizePattern reduces a description to its first three words,
// lower-cased and joined with single spaces.
func normalizePattern(description string) string {
	words := strings.Fields(description)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.ToLower(strings.Join(words, " "))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
