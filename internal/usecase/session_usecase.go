package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
)

// SessionManager выдаёт cookie авторизованной сессии, кэшируя их в Redis.
type SessionManager struct {
	login  LoginClient
	cache  SessionCache
	ttl    time.Duration
	logger logger.Logger
}

// NewSessionManager создаёт менеджер сессий. login == nil означает, что вход не настроен.
func NewSessionManager(login LoginClient, cache SessionCache, ttl time.Duration, logger logger.Logger) *SessionManager {
	return &SessionManager{
		login:  login,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *SessionManager) Enabled() bool {
	return s != nil && s.login != nil
}

// CookieHeader возвращает cookie из кэша или выполняет вход.
// Недоступность кэша не мешает входу.
func (s *SessionManager) CookieHeader(ctx context.Context, templateID int64) (string, error) {
	const op = "SessionManager.CookieHeader"

	if !s.Enabled() {
		return "", e.Wrap(op, e.ErrMissingCredentials)
	}

	if s.cache != nil {
		cookie, ok, err := s.cache.Get(ctx, templateID)
		if err != nil {
			s.logger.Warnf("session cache read failed for template %d: %v", templateID, err)
		} else if ok {
			return cookie, nil
		}
	}

	cookie, err := s.login.Login(ctx, templateID)
	if err != nil {
		return "", e.Wrap(op, err)
	}
	if cookie == "" {
		return "", e.Wrap(op, e.ErrSessionRejected)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, templateID, cookie, s.ttl); err != nil {
			s.logger.Warnf("session cache write failed for template %d: %v", templateID, err)
		}
	}

	return cookie, nil
}

// Invalidate удаляет cookie из кэша, следующий запрос выполнит вход заново.
func (s *SessionManager) Invalidate(ctx context.Context, templateID int64) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, templateID); err != nil {
		return e.Wrap("SessionManager.Invalidate", err)
	}
	return nil
}
