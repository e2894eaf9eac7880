package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/findash/bank-import-service/internal/storage"
	"github.com/findash/bank-import-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lifecycleEvent(companyID, importID uuid.UUID, action string) Event {
	return Event{
		ID:   importID.String() + "-" + action,
		Type: EventTypeImportLifecycle,
		Payload: ImportLifecycleEvent{
			CompanyID: companyID,
			ImportID:  importID,
			Action:    action,
			Detail:    "2 transactions parsed from extrato.ofx",
		},
		Timestamp: time.Now(),
	}
}

func TestAuditConsumer_WritesRecord(t *testing.T) {
	store := storage.NewMemoryStore()
	consumer := NewAuditConsumer(store, logger.NewNop(), 2)
	ctx := context.Background()

	companyID := uuid.New()
	importID := uuid.New()

	require.NoError(t, consumer.Consume(ctx, lifecycleEvent(companyID, importID, "created")))

	records, err := store.ListAuditRecords(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, importID, records[0].ImportID)
	assert.Equal(t, "created", records[0].Action)
	assert.Equal(t, 2, consumer.GetWorkerCount())
}

func TestAuditConsumer_RedeliveryIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	consumer := NewAuditConsumer(store, logger.NewNop(), 1)
	ctx := context.Background()

	companyID := uuid.New()
	event := lifecycleEvent(companyID, uuid.New(), "confirmed")

	require.NoError(t, consumer.Consume(ctx, event))
	require.NoError(t, consumer.Consume(ctx, event))

	records, err := store.ListAuditRecords(ctx, companyID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAuditConsumer_RejectsForeignPayload(t *testing.T) {
	store := storage.NewMemoryStore()
	consumer := NewAuditConsumer(store, logger.NewNop(), 1)

	err := consumer.Consume(context.Background(), Event{
		ID:      "evt-bad",
		Type:    EventTypeImportLifecycle,
		Payload: "not a lifecycle payload",
	})
	assert.Error(t, err)
}

func TestBus_DeliversToSubscribedConsumer(t *testing.T) {
	store := storage.NewMemoryStore()
	log := logger.NewNop()
	consumer := NewAuditConsumer(store, log, 1)

	bus := New(log, &Config{ChannelBuffer: 8, MaxRetries: 2})
	require.NoError(t, bus.Subscribe(EventTypeImportLifecycle, consumer))

	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))

	companyID := uuid.New()
	require.NoError(t, bus.Publish(ctx, lifecycleEvent(companyID, uuid.New(), "cancelled")))

	require.Eventually(t, func() bool {
		records, err := store.ListAuditRecords(ctx, companyID)
		return err == nil && len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(shutdownCtx))
}

func TestBus_PublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	bus := New(logger.NewNop(), nil)

	err := bus.Publish(context.Background(), lifecycleEvent(uuid.New(), uuid.New(), "created"))
	assert.NoError(t, err)
}
