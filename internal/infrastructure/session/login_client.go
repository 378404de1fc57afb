package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/DRSN-tech/catalog-importer/internal/cfg"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/jimlawless/whereami"
)

type loginRequest struct {
	TemplateID int64 `json:"templateId"`
}

type loginResponse struct {
	CookieHeader string `json:"cookieHeader"`
}

// LoginClient получает cookie сессии у внешнего сервиса входа на портал поставщика.
// Содержимое cookie непрозрачно и передаётся в заголовок Cookie как есть.
type LoginClient struct {
	client  *http.Client
	baseURL string
}

// NewLoginClient возвращает nil, если адрес сервиса входа не задан.
func NewLoginClient(cfg *cfg.SessionCfg) *LoginClient {
	if cfg.LoginServiceURL == "" {
		return nil
	}

	return &LoginClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.LoginServiceURL,
	}
}

// Login выполняет вход для шаблона и возвращает заголовок Cookie.
func (c *LoginClient) Login(ctx context.Context, templateID int64) (string, error) {
	body, err := json.Marshal(loginRequest{TemplateID: templateID})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", e.Wrap(whereami.WhereAmI(), fmt.Errorf("login status %d: %w", resp.StatusCode, e.ErrSessionRejected))
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", e.Wrap(whereami.WhereAmI(), fmt.Errorf("login status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)))
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return out.CookieHeader, nil
}
