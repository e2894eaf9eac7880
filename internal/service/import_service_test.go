package service

import (
	"context"
	"testing"
	"time"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/findash/bank-import-service/internal/eventbus"
	"github.com/findash/bank-import-service/internal/matching"
	"github.com/findash/bank-import-service/internal/storage"
	"github.com/findash/bank-import-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (ImportService, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	log := logger.NewNop()
	engine := matching.NewEngine(store, store, store, log)
	bus := eventbus.New(log, nil)

	svc := NewImportService(store, engine, bus, log)
	svc.(*importService).now = func() time.Time { return fixedNow }

	return svc, store
}

const uploadCSV = "date,description,amount,type\n" +
	"2024-03-14,PAGAMENTO FORNECEDOR CEMIG 01/2024,150.00,DEBIT\n" +
	"2024-03-16,PIX RECEBIDO EMPRESA ABC,900.10,CREDIT\n"

func TestUpload_CreatesPendingSessionWithItems(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()
	userID := uuid.New()

	supplier := domain.Supplier{ID: uuid.New(), CompanyID: companyID, Name: "Cemig", Active: true}
	store.AddSupplier(supplier)

	result, err := svc.Upload(ctx, companyID, userID, []byte(uploadCSV), "extrato.csv")
	require.NoError(t, err)

	session := result.Session
	assert.Equal(t, domain.ImportStatusPendingReview, session.Status)
	assert.Equal(t, domain.FileTypeCSV, session.FileType)
	assert.Equal(t, 2, session.TotalRecords)
	assert.Equal(t, userID, session.ImportedBy)

	require.Len(t, result.Items, 2)

	payable := result.Items[0]
	assert.Equal(t, domain.EntryTypePayable, payable.EntryType)
	assert.Equal(t, domain.MovementTypeDebit, payable.Type)
	require.NotNil(t, payable.CounterpartyID)
	assert.Equal(t, supplier.ID, *payable.CounterpartyID)

	receivable := result.Items[1]
	assert.Equal(t, domain.EntryTypeReceivable, receivable.EntryType)
	assert.Nil(t, receivable.CounterpartyID)

	stored, err := svc.Get(ctx, companyID, session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
}

func TestUpload_FlagsPossibleDuplicates(t *testing.T) {
	svc, store := newTestService(t)
	companyID := uuid.New()

	store.AddLedgerEntry(domain.LedgerEntry{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Type:        domain.EntryTypePayable,
		Description: "PAGAMENTO FORNECEDOR CEMIG 01/2024",
		Amount:      decimal.RequireFromString("150.00"),
		DueDate:     time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:      domain.EntryStatusPending,
	})

	result, err := svc.Upload(context.Background(), companyID, uuid.New(), []byte(uploadCSV), "extrato.csv")
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.True(t, result.Items[0].PossibleDuplicate)
	assert.False(t, result.Items[1].PossibleDuplicate)
}

func TestUpload_EmptyStatementCreatesNothing(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()

	_, err := svc.Upload(ctx, companyID, uuid.New(), []byte("date,description,amount\n"), "extrato.csv")
	require.Error(t, err)
	assert.True(t, domain.IsBusinessRule(err))

	sessions, err := store.ListImports(ctx, companyID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestUpload_UnsupportedExtension(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), uuid.New(), uuid.New(), []byte("x"), "extrato.xlsx")
	require.Error(t, err)
	assert.True(t, domain.IsBusinessRule(err))
}

func TestUpdateItem_PartialUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()

	result, err := svc.Upload(ctx, companyID, uuid.New(), []byte(uploadCSV), "extrato.csv")
	require.NoError(t, err)

	counterpartyID := uuid.New()
	entryType := domain.EntryTypeReceivable
	item, err := svc.UpdateItem(ctx, companyID, result.Session.ID, result.Items[0].ID, ItemUpdate{
		CounterpartyID: &counterpartyID,
		EntryType:      &entryType,
	})
	require.NoError(t, err)

	require.NotNil(t, item.CounterpartyID)
	assert.Equal(t, counterpartyID, *item.CounterpartyID)
	assert.Equal(t, domain.EntryTypeReceivable, item.EntryType)
	// Untouched fields keep their values.
	assert.Nil(t, item.CategoryID)
	assert.Equal(t, result.Items[0].Description, item.Description)
}

func TestUpdateItem_UnknownCategoryRejected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()

	result, err := svc.Upload(ctx, companyID, uuid.New(), []byte(uploadCSV), "extrato.csv")
	require.NoError(t, err)

	// A category id that was never created.
	unknown := uuid.New()
	_, err = svc.UpdateItem(ctx, companyID, result.Session.ID, result.Items[0].ID, ItemUpdate{
		CategoryID: &unknown,
	})
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)

	// A category owned by another company is just as invalid.
	foreign := domain.Category{ID: uuid.New(), CompanyID: uuid.New(), Name: "Operacional"}
	store.AddCategory(foreign)
	_, err = svc.UpdateItemsBatch(ctx, companyID, result.Session.ID, BatchItemUpdate{
		ItemIDs:    []uuid.UUID{result.Items[0].ID},
		ItemUpdate: ItemUpdate{CategoryID: &foreign.ID},
	})
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)

	item, err := svc.Get(ctx, companyID, result.Session.ID)
	require.NoError(t, err)
	assert.Nil(t, item.Items[0].CategoryID)
}

func TestUpdateItem_OtherTenantGetsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, uuid.New(), uuid.New(), []byte(uploadCSV), "extrato.csv")
	require.NoError(t, err)

	counterpartyID := uuid.New()
	_, err = svc.UpdateItem(ctx, uuid.New(), result.Session.ID, result.Items[0].ID, ItemUpdate{
		CounterpartyID: &counterpartyID,
	})
	assert.ErrorIs(t, err, domain.ErrImportNotFound)
}

func TestUpdateItemsBatch_SkipsUnknownIDs(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()

	result, err := svc.Upload(ctx, companyID, uuid.New(), []byte(uploadCSV), "extrato.csv")
	require.NoError(t, err)

	categoryID := uuid.New()
	store.AddCategory(domain.Category{ID: categoryID, CompanyID: companyID, Name: "Operacional"})
	updated, err := svc.UpdateItemsBatch(ctx, companyID, result.Session.ID, BatchItemUpdate{
		ItemIDs: []uuid.UUID{result.Items[0].ID, uuid.New(), result.Items[1].ID},
		ItemUpdate: ItemUpdate{
			CategoryID: &categoryID,
		},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, item := range updated {
		require.NotNil(t, item.CategoryID)
		assert.Equal(t, categoryID, *item.CategoryID)
	}
}

func TestConfirm_RejectsIncompleteItems(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()

	result, err := svc.Upload(ctx, companyID, uuid.New(), []byte(uploadCSV), "extrato.csv")
	require.NoError(t, err)

	err = svc.Confirm(ctx, companyID, result.Session.ID)
	require.Error(t, err)
	assert.True(t, domain.IsBusinessRule(err))
	assert.Contains(t, err.Error(), "missing a counterparty or category")

	// Nothing was materialized and the session is still reviewable.
	assert.Empty(t, store.ListLedgerEntries(companyID))
	stored, err := svc.Get(ctx, companyID, result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusPendingReview, stored.Session.Status)
}

func TestConfirm_MaterializesEntriesAndRules(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()

	supplier := domain.Supplier{ID: uuid.New(), CompanyID: companyID, Name: "Cemig", Active: true}
	client := domain.Client{ID: uuid.New(), CompanyID: companyID, Name: "Empresa ABC", Active: true}
	store.AddSupplier(supplier)
	store.AddClient(client)

	result, err := svc.Upload(ctx, companyID, uuid.New(), []byte(uploadCSV), "extrato.csv")
	require.NoError(t, err)

	categoryID := uuid.New()
	store.AddCategory(domain.Category{ID: categoryID, CompanyID: companyID, Name: "Operacional"})
	clientID := client.ID
	_, err = svc.UpdateItemsBatch(ctx, companyID, result.Session.ID, BatchItemUpdate{
		ItemIDs:    []uuid.UUID{result.Items[0].ID, result.Items[1].ID},
		ItemUpdate: ItemUpdate{CategoryID: &categoryID},
	})
	require.NoError(t, err)
	_, err = svc.UpdateItem(ctx, companyID, result.Session.ID, result.Items[1].ID, ItemUpdate{
		CounterpartyID: &clientID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(ctx, companyID, result.Session.ID))

	stored, err := svc.Get(ctx, companyID, result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusCompleted, stored.Session.Status)

	entries := store.ListLedgerEntries(companyID)
	require.Len(t, entries, 2)

	// 2024-03-14 is in the past relative to the fixed clock, so the payable
	// settles on import.
	past := entries[0]
	assert.Equal(t, domain.EntryTypePayable, past.Type)
	assert.Equal(t, domain.EntryStatusPaid, past.Status)
	require.NotNil(t, past.PaymentDate)
	assert.Equal(t, past.DueDate, *past.PaymentDate)
	require.NotNil(t, past.SupplierID)
	assert.Equal(t, supplier.ID, *past.SupplierID)
	assert.Nil(t, past.ClientID)
	assert.Equal(t, categoryID, past.CategoryID)

	// 2024-03-16 is in the future, so the receivable stays open.
	future := entries[1]
	assert.Equal(t, domain.EntryTypeReceivable, future.Type)
	assert.Equal(t, domain.EntryStatusPending, future.Status)
	assert.Nil(t, future.PaymentDate)
	require.NotNil(t, future.ClientID)
	assert.Equal(t, client.ID, *future.ClientID)
	assert.Nil(t, future.SupplierID)

	rules, err := store.ListRules(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "pagamento fornecedor cemig", rules[0].Pattern)
	assert.Equal(t, "pix recebido empresa", rules[1].Pattern)
}

func TestConfirm_RuleUpsertLastWinsWithinSession(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()

	supplier := domain.Supplier{ID: uuid.New(), CompanyID: companyID, Name: "Cemig", Active: true}
	other := domain.Supplier{ID: uuid.New(), CompanyID: companyID, Name: "Outra", Active: true}
	store.AddSupplier(supplier)
	store.AddSupplier(other)

	// Two rows whose descriptions share the same first three words.
	csv := "date,description,amount,type\n" +
		"2024-03-16,PAGAMENTO FORNECEDOR CEMIG 01/2024,150.00,DEBIT\n" +
		"2024-03-17,PAGAMENTO FORNECEDOR CEMIG 02/2024,150.00,DEBIT\n"

	result, err := svc.Upload(ctx, companyID, uuid.New(), []byte(csv), "extrato.csv")
	require.NoError(t, err)

	categoryID := uuid.New()
	store.AddCategory(domain.Category{ID: categoryID, CompanyID: companyID, Name: "Operacional"})
	otherID := other.ID
	_, err = svc.UpdateItemsBatch(ctx, companyID, result.Session.ID, BatchItemUpdate{
		ItemIDs:    []uuid.UUID{result.Items[0].ID, result.Items[1].ID},
		ItemUpdate: ItemUpdate{CategoryID: &categoryID},
	})
	require.NoError(t, err)
	_, err = svc.UpdateItem(ctx, companyID, result.Session.ID, result.Items[1].ID, ItemUpdate{
		CounterpartyID: &otherID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(ctx, companyID, result.Session.ID))

	rules, err := store.ListRules(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "pagamento fornecedor cemig", rules[0].Pattern)
	assert.Equal(t, other.ID, rules[0].CounterpartyID)
}

func TestCancel_ThenNothingElseWorks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	companyID := uuid.New()

	result, err := svc.Upload(ctx, companyID, uuid.New(), []byte(uploadCSV), "extrato.csv")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, companyID, result.Session.ID))

	stored, err := svc.Get(ctx, companyID, result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusCancelled, stored.Session.Status)
	assert.Empty(t, stored.Items)

	err = svc.Confirm(ctx, companyID, result.Session.ID)
	assert.ErrorIs(t, err, domain.ErrImportNotEditable)

	counterpartyID := uuid.New()
	_, err = svc.UpdateItem(ctx, companyID, result.Session.ID, result.Items[0].ID, ItemUpdate{
		CounterpartyID: &counterpartyID,
	})
	assert.ErrorIs(t, err, domain.ErrImportNotEditable)

	err = svc.Cancel(ctx, companyID, result.Session.ID)
	assert.ErrorIs(t, err, domain.ErrImportNotEditable)
}
