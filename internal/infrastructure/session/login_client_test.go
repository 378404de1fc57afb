package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/cfg"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoginClientDisabledWithoutURL(t *testing.T) {
	assert.Nil(t, NewLoginClient(&cfg.SessionCfg{}))
}

func TestLoginReturnsCookieHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(3), req.TemplateID)
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"cookieHeader":"sid=1; token=2"}`))
	}))
	defer srv.Close()

	c := NewLoginClient(&cfg.SessionCfg{LoginServiceURL: srv.URL, Timeout: time.Second})
	cookie, err := c.Login(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, "sid=1; token=2", cookie)
}

func TestLoginErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		want   error
	}{
		"rejected":    {status: http.StatusForbidden, want: e.ErrSessionRejected},
		"unavailable": {status: http.StatusServiceUnavailable},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := NewLoginClient(&cfg.SessionCfg{LoginServiceURL: srv.URL, Timeout: time.Second})
			_, err := c.Login(context.Background(), 3)

			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}
