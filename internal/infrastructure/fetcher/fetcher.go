package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/cfg"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/scope"
	"github.com/DRSN-tech/catalog-importer/internal/usecase"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/jitter"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	maxBodyBytes  = 10 << 20
	maxRedirects  = 10
	retryBaseWait = 500 * time.Millisecond
	retryMaxWait  = 8 * time.Second
)

type allowedHostsKey struct{}

// Fetcher загружает страницы поставщиков с ограничением частоты запросов на хост.
// Редиректы за пределы разрешённых хостов блокируются.
type Fetcher struct {
	client    *http.Client
	cfg       *cfg.CrawlerCfg
	logger    logger.Logger
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	retryBase time.Duration
	now       func() time.Time
}

func NewFetcher(cfg *cfg.CrawlerCfg, logger logger.Logger) *Fetcher {
	f := &Fetcher{
		cfg:       cfg,
		logger:    logger,
		limiters:  make(map[string]*rate.Limiter),
		retryBase: retryBaseWait,
		now:       time.Now,
	}
	f.client = &http.Client{
		Timeout:       cfg.FetchTimeout,
		CheckRedirect: checkRedirect,
	}
	return f
}

// Fetch загружает страницу, повторяя запрос при сетевых ошибках и ответах 5xx/429.
func (f *Fetcher) Fetch(ctx context.Context, req *usecase.FetchReq) (*usecase.FetchRes, error) {
	const op = "Fetcher.Fetch"

	host, ok := scope.Hostname(req.URL)
	if !ok {
		return nil, e.Wrap(op, fmt.Errorf("%q: %w", req.URL, e.ErrFetchFailed))
	}
	if !scope.IsAllowedHost(host, req.AllowedHosts) {
		return nil, e.Wrap(op, fmt.Errorf("%s: %w", host, e.ErrOutOfScopeSeed))
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := jitter.ExponentialBackoff(f.retryBase, retryMaxWait, attempt-1, jitter.DefaultJitter)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, e.Wrap(op, ctx.Err())
			}
		}

		if err := f.limiter(host).Wait(ctx); err != nil {
			return nil, e.Wrap(op, err)
		}

		res, retry, err := f.do(ctx, req)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retry {
			break
		}
		f.logger.Debugf("fetch %s attempt %d failed: %v", req.URL, attempt+1, err)
	}

	return nil, e.Wrap(op, lastErr)
}

// do выполняет один запрос. retry сообщает, имеет ли смысл повтор.
func (f *Fetcher) do(ctx context.Context, req *usecase.FetchReq) (*usecase.FetchRes, bool, error) {
	ctx = context.WithValue(ctx, allowedHostsKey{}, req.AllowedHosts)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%v: %w", err, e.ErrFetchFailed)
	}
	httpReq.Header.Set("User-Agent", f.cfg.UserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml,application/json;q=0.9,*/*;q=0.8")
	if req.Cookie != "" {
		httpReq.Header.Set("Cookie", req.Cookie)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, e.ErrRedirectBlocked) {
			return nil, false, err
		}
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("%v: %w", err, e.ErrFetchFailed)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("status %d: %w", resp.StatusCode, e.ErrSessionRejected)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("status %d: %w", resp.StatusCode, e.ErrFetchFailed)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, false, fmt.Errorf("status %d: %w", resp.StatusCode, e.ErrFetchFailed)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %v: %w", err, e.ErrFetchFailed)
	}

	return &usecase.FetchRes{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   f.now().UTC(),
	}, false, nil
}

// limiter возвращает ограничитель частоты для хоста.
func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.cfg.RequestsPerSecond), 1)
		f.limiters[host] = l
	}
	return l
}

// checkRedirect не даёт редиректу увести запрос за пределы разрешённых хостов.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects: %w", maxRedirects, e.ErrFetchFailed)
	}

	allowed, _ := req.Context().Value(allowedHostsKey{}).([]string)
	if !scope.IsAllowedHost(req.URL.Hostname(), allowed) {
		return fmt.Errorf("%s: %w", redactURL(req.URL), e.ErrRedirectBlocked)
	}
	return nil
}

func redactURL(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	c.User = nil
	return c.String()
}
