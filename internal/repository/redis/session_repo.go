package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/catalog-importer/pkg/clients"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// sessionModel — запись сессии в кэше.
type sessionModel struct {
	TemplateID int64     `json:"templateId"`
	Cookie     string    `json:"cookie"`
	StoredAt   time.Time `json:"storedAt"`
}

// SessionRepo кэширует cookie авторизованных сессий поставщиков.
type SessionRepo struct {
	client *clients.RedisClient
	logger logger.Logger
}

func NewSessionRepo(client *clients.RedisClient, logger logger.Logger) *SessionRepo {
	return &SessionRepo{
		client: client,
		logger: logger,
	}
}

// Get возвращает cookie шаблона. Промах кэша не является ошибкой.
func (s *SessionRepo) Get(ctx context.Context, templateID int64) (string, bool, error) {
	key := sessionKey(templateID)

	data, err := s.client.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return "", false, nil // cache miss
		}
		return "", false, e.Wrap(whereami.WhereAmI(), err)
	}

	var model sessionModel
	if err := json.Unmarshal(data, &model); err != nil {
		s.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		s.drop(key)
		return "", false, nil
	}

	if model.TemplateID != templateID || model.Cookie == "" {
		s.logger.Warnf("Session cache mismatch: key_id: %d, model_id: %d", templateID, model.TemplateID)
		s.drop(key)
		return "", false, nil
	}

	return model.Cookie, true, nil
}

// Set кэширует cookie шаблона с заданным TTL.
func (s *SessionRepo) Set(ctx context.Context, templateID int64, cookie string, ttl time.Duration) error {
	data, err := json.Marshal(sessionModel{
		TemplateID: templateID,
		Cookie:     cookie,
		StoredAt:   time.Now().UTC(),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := s.client.Client.Set(ctx, sessionKey(templateID), data, ttl).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Delete удаляет cookie шаблона из кэша.
func (s *SessionRepo) Delete(ctx context.Context, templateID int64) error {
	if err := s.client.Client.Del(ctx, sessionKey(templateID)).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (s *SessionRepo) drop(key string) {
	if err := s.client.Client.Del(context.Background(), key).Err(); err != nil {
		s.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// sessionKey возвращает Redis-ключ сессии шаблона
func sessionKey(templateID int64) string {
	return fmt.Sprintf("session:template:%d", templateID)
}
