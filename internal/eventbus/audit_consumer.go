package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/findash/bank-import-service/pkg/logger"
	"github.com/google/uuid"
)

// AuditConsumer records one audit trail entry per import lifecycle event.
type AuditConsumer struct {
	repo        domain.AuditRepository
	logger      *logger.Logger
	workerCount int
}

func NewAuditConsumer(repo domain.AuditRepository, log *logger.Logger, workerCount int) *AuditConsumer {
	return &AuditConsumer{
		repo:        repo,
		logger:      log,
		workerCount: workerCount,
	}
}

func (ac *AuditConsumer) Consume(ctx context.Context, event Event) error {
	// Check idempotency
	processed, err := ac.repo.IsEventProcessed(ctx, event.ID)
	if err != nil {
		ac.logger.Error(ctx, "Failed to check event processed status",
			"event_id", event.ID,
			"error", err,
		)
		return err
	}

	if processed {
		ac.logger.Debug(ctx, "Event already processed, skipping",
			"event_id", event.ID,
		)
		return nil
	}

	payload, ok := event.Payload.(ImportLifecycleEvent)
	if !ok {
		ac.logger.Error(ctx, "Invalid payload type for lifecycle event",
			"event_id", event.ID,
		)
		return fmt.Errorf("invalid payload type")
	}

	ctx = logger.WithCompanyID(ctx, payload.CompanyID.String())
	ctx = logger.WithImportID(ctx, payload.ImportID.String())

	record := &domain.AuditRecord{
		ID:        uuid.New(),
		CompanyID: payload.CompanyID,
		ImportID:  payload.ImportID,
		Action:    payload.Action,
		Detail:    payload.Detail,
		CreatedAt: time.Now(),
	}

	if err := ac.repo.AddAuditRecord(ctx, record); err != nil {
		ac.logger.Error(ctx, "Failed to write audit record",
			"event_id", event.ID,
			"action", payload.Action,
			"error", err,
		)
		return err
	}

	if err := ac.repo.MarkEventProcessed(ctx, event.ID); err != nil {
		ac.logger.Error(ctx, "Failed to mark event as processed",
			"event_id", event.ID,
			"error", err,
		)
		return err
	}

	ac.logger.Debug(ctx, "Audit record written",
		"event_id", event.ID,
		"action", payload.Action,
	)

	return nil
}

func (ac *AuditConsumer) GetWorkerCount() int {
	return ac.workerCount
}
