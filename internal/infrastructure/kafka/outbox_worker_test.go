package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/usecase"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOutbox struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent
}

func (m *memOutbox) Create(_ context.Context, ev *domain.OutboxEvent) (*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return ev, nil
}

func (m *memOutbox) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, ev := range m.events {
		if ev.Status == domain.OutboxPending && len(out) < limit {
			ev.Status = domain.OutboxProcessing
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memOutbox) set(id int64, status domain.OutboxStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id-1].Status = status
	return nil
}

func (m *memOutbox) MarkAsProcessed(_ context.Context, id int64) error {
	return m.set(id, domain.OutboxProcessed)
}

func (m *memOutbox) MarkAsPending(_ context.Context, id int64) error {
	return m.set(id, domain.OutboxPending)
}

func (m *memOutbox) statuses() []domain.OutboxStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.OutboxStatus, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Status
	}
	return out
}

type recordingProducer struct {
	keys []string
	fail map[string]bool
}

func (p *recordingProducer) WriteRawMessage(_ context.Context, req *usecase.WriteRawMessageReq) error {
	if p.fail[string(req.Payload)] {
		return errors.New("dial tcp: connection refused")
	}
	p.keys = append(p.keys, req.Key)
	return nil
}

func seed(repo *memOutbox, payloads ...string) {
	for _, p := range payloads {
		_, _ = repo.Create(context.Background(), &domain.OutboxEvent{
			EventID:     p,
			AggregateID: "run-" + p,
			Payload:     []byte(p),
			Status:      domain.OutboxPending,
		})
	}
}

func TestDrainDeliversAllPendingEvents(t *testing.T) {
	repo := &memOutbox{}
	seed(repo, "a", "b", "c")
	producer := &recordingProducer{}
	w := NewOutboxWorker(repo, logger.NewNop(), producer, "")

	w.drain(context.Background())

	assert.Equal(t, []string{"run-a", "run-b", "run-c"}, producer.keys)
	assert.Equal(t, []domain.OutboxStatus{domain.OutboxProcessed, domain.OutboxProcessed, domain.OutboxProcessed}, repo.statuses())
}

func TestFailedEventReturnsToPending(t *testing.T) {
	repo := &memOutbox{}
	seed(repo, "a", "b")
	producer := &recordingProducer{fail: map[string]bool{"b": true}}
	w := NewOutboxWorker(repo, logger.NewNop(), producer, "")

	hasMore, err := w.processBatch(context.Background())
	require.NoError(t, err)

	assert.False(t, hasMore)
	assert.Equal(t, []domain.OutboxStatus{domain.OutboxProcessed, domain.OutboxPending}, repo.statuses())

	producer.fail = nil
	w.drain(context.Background())
	assert.Equal(t, []domain.OutboxStatus{domain.OutboxProcessed, domain.OutboxProcessed}, repo.statuses())
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("read: connection reset by peer")))
	assert.False(t, isRetryableError(errors.New("message too large")))
	assert.False(t, isRetryableError(nil))
}
