package minio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/usecase"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/jitter"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
)

const (
	snapshotContentType = "text/html; charset=utf-8"
	cleanupAttempts     = 3
	cleanupTimeout      = 30 * time.Second
)

// SnapshotInfrastructure сохраняет HTML страниц запуска в MinIO и удаляет снимки отменённых запусков.
type SnapshotInfrastructure struct {
	objects     usecase.ObjectRepository
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
	backoff     time.Duration
}

func NewSnapshotInfrastructure(objects usecase.ObjectRepository, logger logger.Logger, shutdownCtx context.Context) *SnapshotInfrastructure {
	return &SnapshotInfrastructure{
		objects:     objects,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		backoff:     time.Second,
	}
}

// Save загружает снимок страницы. Ключ объекта стабилен для пары (runID, pageURL).
func (s *SnapshotInfrastructure) Save(ctx context.Context, runID, pageURL string, body []byte) (string, error) {
	const op = "SnapshotInfrastructure.Save"

	key, err := s.objects.Put(ctx, SnapshotKey(runID, pageURL), body, snapshotContentType)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	return key, nil
}

// DiscardRun запускает фоновое удаление всех снимков запуска.
func (s *SnapshotInfrastructure) DiscardRun(runID string) {
	s.wg.Add(1)
	go s.cleanupRun(runID)
}

// cleanupRun удаляет снимки запуска с экспоненциальной задержкой и jitter.
func (s *SnapshotInfrastructure) cleanupRun(runID string) {
	defer s.wg.Done()
	const op = "SnapshotInfrastructure.cleanupRun"

	ctx, cancel := context.WithTimeout(s.shutdownCtx, cleanupTimeout)
	defer cancel()

	keys, err := s.objects.ListKeys(ctx, runID+"/")
	if err != nil {
		s.logger.Warnf("%s: list snapshots of run %s: %v", op, runID, err)
		return
	}
	s.logger.Infof("%s: removing %d snapshots of run %s", op, len(keys), runID)

	for _, key := range keys {
		for attempt := 0; attempt < cleanupAttempts; attempt++ {
			err := s.objects.Delete(ctx, key)
			if err == nil {
				break
			}
			if attempt == cleanupAttempts-1 {
				s.logger.Warnf("%s: snapshot %s left behind: %v", op, key, err)
				break
			}

			select {
			case <-time.After(jitter.ExponentialBackoff(s.backoff, 8*s.backoff, attempt, jitter.DefaultJitter)):
			case <-ctx.Done():
				s.logger.Warnf("cleanup interrupted by shutdown, key=%v", key)
				return
			}
		}
	}
}

// WaitForCleanup ожидает завершения фоновых очисток с учётом таймаута завершения приложения.
func (s *SnapshotInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("snapshot cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}

// SnapshotKey возвращает ключ объекта снимка: <runID>/<sha256(pageURL)>.html
func SnapshotKey(runID, pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return runID + "/" + hex.EncodeToString(sum[:]) + ".html"
}
