package domain

import "time"

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxProcessed  OutboxStatus = "processed"
)

// OutboxEvent — событие аудита, ожидающее доставки в Kafka.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   string
	AggregateID string // ключ партиционирования (id запуска)
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
