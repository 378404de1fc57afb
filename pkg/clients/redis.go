package clients

import (
	"context"

	"github.com/DRSN-tech/catalog-importer/internal/cfg"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// RedisClient — подключение к Redis, в котором хранятся сессии портала поставщика.
type RedisClient struct {
	Client *r.Client
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, c *cfg.RedisCfg) (*RedisClient, error) {
	client := r.NewClient(&r.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		Username:     c.User,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.Timeout,
		WriteTimeout: c.Timeout,
	})

	rc := &RedisClient{Client: client}
	if err := rc.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return rc, nil
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	if err := rc.Client.Ping(ctx).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Close реализует closer.Func.
func (rc *RedisClient) Close(context.Context) error {
	return rc.Client.Close()
}
