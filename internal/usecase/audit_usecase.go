package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/google/uuid"
)

// AuditUseCase пишет журнал импорта и, если доставка в Kafka включена, событие в outbox.
type AuditUseCase struct {
	tx      TxManager
	logs    ImportLogRepository
	outbox  OutboxRepository
	encoder EventEncoder
	logger  logger.Logger
	now     func() time.Time
}

// NewAuditUC создаёт AuditUseCase. При encoder == nil события в outbox не пишутся.
func NewAuditUC(tx TxManager, logs ImportLogRepository, outbox OutboxRepository, encoder EventEncoder, logger logger.Logger) *AuditUseCase {
	return &AuditUseCase{
		tx:      tx,
		logs:    logs,
		outbox:  outbox,
		encoder: encoder,
		logger:  logger,
		now:     time.Now,
	}
}

// Write сохраняет запись журнала и событие outbox в одной транзакции.
func (a *AuditUseCase) Write(ctx context.Context, entry *AuditEntry) error {
	const op = "AuditUseCase.Write"

	log := domain.NewImportLog(entry.TemplateID, entry.RunID, entry.Type, entry.Payload, a.now().UTC())

	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		saved, err := a.logs.Create(ctx, log)
		if err != nil {
			return err
		}

		if a.encoder == nil || a.outbox == nil {
			return nil
		}

		payload, err := a.encoder.EncodeAuditEvent(saved)
		if err != nil {
			return err
		}

		key := ""
		if saved.RunID != nil {
			key = *saved.RunID
		}

		_, err = a.outbox.Create(ctx, &domain.OutboxEvent{
			EventID:     uuid.NewString(),
			EventType:   string(saved.Type),
			AggregateID: key,
			Payload:     payload,
			Status:      domain.OutboxPending,
			CreatedAt:   saved.At,
		})
		return err
	})
	if err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// audit пишет запись журнала; ошибка аудита не прерывает основную операцию.
func audit(ctx context.Context, a Auditor, log logger.Logger, entry *AuditEntry) {
	if a == nil {
		return
	}
	if err := a.Write(ctx, entry); err != nil {
		log.Warnf("failed to write audit entry %s: %v", entry.Type, err)
	}
}
