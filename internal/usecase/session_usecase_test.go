package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLogin struct {
	calls  int
	cookie string
}

func (l *countingLogin) Login(context.Context, int64) (string, error) {
	l.calls++
	return l.cookie, nil
}

type mapCache struct {
	items map[int64]string
	err   error
}

func (c *mapCache) Get(_ context.Context, id int64) (string, bool, error) {
	if c.err != nil {
		return "", false, c.err
	}
	v, ok := c.items[id]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, id int64, cookie string, _ time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.items[id] = cookie
	return nil
}

func (c *mapCache) Delete(_ context.Context, id int64) error {
	delete(c.items, id)
	return nil
}

func TestSessionManagerCachesCookie(t *testing.T) {
	login := &countingLogin{cookie: "sid=abc"}
	cache := &mapCache{items: map[int64]string{}}
	sm := NewSessionManager(login, cache, time.Minute, logger.NewNop())

	for range 2 {
		cookie, err := sm.CookieHeader(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "sid=abc", cookie)
	}
	assert.Equal(t, 1, login.calls)

	require.NoError(t, sm.Invalidate(context.Background(), 7))
	_, err := sm.CookieHeader(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, login.calls)
}

func TestSessionManagerSurvivesCacheOutage(t *testing.T) {
	login := &countingLogin{cookie: "sid=abc"}
	sm := NewSessionManager(login, &mapCache{err: errors.New("redis down")}, time.Minute, logger.NewNop())

	cookie, err := sm.CookieHeader(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, "sid=abc", cookie)
}

func TestSessionManagerWithoutLogin(t *testing.T) {
	sm := NewSessionManager(nil, nil, time.Minute, logger.NewNop())

	assert.False(t, sm.Enabled())
	_, err := sm.CookieHeader(context.Background(), 7)
	assert.ErrorIs(t, err, e.ErrMissingCredentials)
}

func TestSessionManagerRejectsEmptyCookie(t *testing.T) {
	sm := NewSessionManager(&countingLogin{}, nil, time.Minute, logger.NewNop())

	_, err := sm.CookieHeader(context.Background(), 7)
	assert.ErrorIs(t, err, e.ErrSessionRejected)
}
