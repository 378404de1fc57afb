package minio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	mu       sync.Mutex
	objects  map[string]string
	failures map[string]int // сколько раз Delete вернёт ошибку
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string]string{}, failures: map[string]int{}}
}

func (m *memObjects) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = contentType + "|" + string(body)
	return key, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures[key] > 0 {
		m.failures[key]--
		return errors.New("minio unavailable")
	}
	delete(m.objects, key)
	return nil
}

func (m *memObjects) ListKeys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memObjects) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func TestSnapshotKeyIsStable(t *testing.T) {
	a := SnapshotKey("run-1", "https://batsonenterprises.com/products/sb842f")
	b := SnapshotKey("run-1", "https://batsonenterprises.com/products/sb842f")
	c := SnapshotKey("run-1", "https://batsonenterprises.com/products/xst904")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "run-1/"))
	assert.True(t, strings.HasSuffix(a, ".html"))
}

func TestSaveStoresHTML(t *testing.T) {
	objects := newMemObjects()
	s := NewSnapshotInfrastructure(objects, logger.NewNop(), context.Background())

	key, err := s.Save(context.Background(), "run-1", "https://x.test/p", []byte("<html></html>"))
	require.NoError(t, err)

	assert.Equal(t, SnapshotKey("run-1", "https://x.test/p"), key)
	assert.Equal(t, snapshotContentType+"|<html></html>", objects.objects[key])
}

func TestDiscardRunRemovesOnlyThatRun(t *testing.T) {
	objects := newMemObjects()
	s := NewSnapshotInfrastructure(objects, logger.NewNop(), context.Background())
	s.backoff = time.Millisecond

	for _, u := range []string{"https://x.test/a", "https://x.test/b"} {
		_, err := s.Save(context.Background(), "run-1", u, []byte("a"))
		require.NoError(t, err)
	}
	keep, err := s.Save(context.Background(), "run-2", "https://x.test/a", []byte("a"))
	require.NoError(t, err)
	objects.failures[SnapshotKey("run-1", "https://x.test/b")] = 1

	s.DiscardRun("run-1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.WaitForCleanup(ctx))

	assert.Equal(t, 1, objects.len())
	assert.Contains(t, objects.objects, keep)
}
