package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/cfg"
	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/extract"
	"github.com/DRSN-tech/catalog-importer/internal/usecase"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/jitter"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	gidPrefix       = "gid://shopify/Product/"
	maxThrottled    = 3
	throttleBackoff = time.Second
	statusActive    = "active"
	statusArchived  = "archived"
)

// Client публикует товары через Shopify Admin REST API.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	baseURL    string
	shopDomain string
	token      string
	logger     logger.Logger
	backoff    time.Duration
}

func NewClient(cfg *cfg.ShopifyCfg, logger logger.Logger) *Client {
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		baseURL:    fmt.Sprintf("https://%s/admin/api/%s", cfg.ShopDomain, cfg.APIVersion),
		shopDomain: cfg.ShopDomain,
		token:      cfg.AccessToken,
		logger:     logger,
		backoff:    throttleBackoff,
	}
}

func (c *Client) ShopDomain() string {
	return c.shopDomain
}

// Create создаёт товар и возвращает его идентификатор во внешнем каталоге.
func (c *Client) Create(ctx context.Context, snap *domain.Snapshot) (*usecase.TargetProduct, error) {
	const op = "ShopifyClient.Create"

	var out productEnvelope
	if err := c.do(ctx, http.MethodPost, "/products.json", productEnvelope{Product: toProduct(snap, statusActive)}, &out); err != nil {
		return nil, e.Wrap(op, err)
	}

	return c.toTarget(&out.Product), nil
}

// Update перезаписывает поля товара.
func (c *Client) Update(ctx context.Context, targetID string, snap *domain.Snapshot) (*usecase.TargetProduct, error) {
	const op = "ShopifyClient.Update"

	id, err := numericID(targetID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	p := toProduct(snap, statusActive)
	p.ID = id

	var out productEnvelope
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d.json", id), productEnvelope{Product: p}, &out); err != nil {
		return nil, e.Wrap(op, err)
	}

	return c.toTarget(&out.Product), nil
}

// Archive переводит товар в статус archived. Товар не удаляется.
func (c *Client) Archive(ctx context.Context, targetID string) (*usecase.TargetProduct, error) {
	const op = "ShopifyClient.Archive"

	id, err := numericID(targetID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var out productEnvelope
	body := productEnvelope{Product: product{ID: id, Status: statusArchived}}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d.json", id), body, &out); err != nil {
		return nil, e.Wrap(op, err)
	}

	return c.toTarget(&out.Product), nil
}

// do выполняет запрос с учётом лимита и повторяет его при 429.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Shopify-Access-Token", c.token)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%v: %w", err, e.ErrTargetAPI)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("read response: %v: %w", readErr, e.ErrTargetAPI)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests && attempt < maxThrottled:
			wait := retryAfter(resp.Header.Get("Retry-After"), jitter.ExponentialBackoff(c.backoff, 8*c.backoff, attempt, jitter.DefaultJitter))
			c.logger.Warnf("shopify throttled %s %s, retry in %s", method, path, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s %s: %w", method, path, e.ErrTargetNotMatched)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("%s %s: status %d: %s: %w", method, path, resp.StatusCode, apiErrors(body), e.ErrTargetAPI)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %v: %w", err, e.ErrTargetAPI)
		}
		return nil
	}
}

func (c *Client) toTarget(p *product) *usecase.TargetProduct {
	id := p.GraphQLID
	if id == "" {
		id = gidPrefix + strconv.FormatInt(p.ID, 10)
	}

	t := &usecase.TargetProduct{ID: id, Handle: p.Handle}
	if p.Handle != "" {
		t.URL = fmt.Sprintf("https://%s/products/%s", c.shopDomain, p.Handle)
	}
	return t
}

// toProduct переводит снимок в товар Shopify с одним вариантом.
func toProduct(snap *domain.Snapshot, status string) product {
	p := product{
		Title:       snap.Title,
		BodyHTML:    bodyHTML(snap),
		ProductType: snap.PartType,
		Status:      status,
	}

	v := variant{SKU: snap.ExternalID, InventoryPolicy: "deny"}
	switch {
	case snap.PriceMsrp != nil:
		v.Price = formatCents(*snap.PriceMsrp)
	case snap.PriceWholesale != nil:
		v.Price = formatCents(*snap.PriceWholesale)
	}
	p.Variants = []variant{v}

	for _, src := range snap.Images {
		p.Images = append(p.Images, image{Src: src})
	}

	return p
}

// bodyHTML собирает описание и таблицу характеристик. Описание уже может быть разметкой:
// она очищается и вставляется как есть, простой текст оборачивается в абзац.
func bodyHTML(snap *domain.Snapshot) string {
	var b strings.Builder
	if desc := extract.SanitizeHTML(snap.Description); desc != "" {
		if strings.HasPrefix(desc, "<") {
			b.WriteString(desc)
		} else {
			b.WriteString("<p>")
			b.WriteString(desc)
			b.WriteString("</p>")
		}
	}

	if len(snap.NormSpecs) > 0 {
		keys := make([]string, 0, len(snap.NormSpecs))
		for k := range snap.NormSpecs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("<ul>")
		for _, k := range keys {
			fmt.Fprintf(&b, "<li><strong>%s:</strong> %s</li>", html.EscapeString(k), html.EscapeString(snap.NormSpecs[k]))
		}
		b.WriteString("</ul>")
	}

	return b.String()
}

func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// numericID принимает как gid, так и числовой идентификатор товара.
func numericID(targetID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(targetID, gidPrefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("target id %q: %w", targetID, e.ErrTargetNotMatched)
	}
	return id, nil
}

func retryAfter(header string, fallback time.Duration) time.Duration {
	if secs, err := strconv.ParseFloat(header, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

// apiErrors достаёт поле errors из тела ответа или возвращает тело целиком.
func apiErrors(body []byte) string {
	var env struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Errors) > 0 {
		return string(env.Errors)
	}
	return strings.TrimSpace(string(body))
}
