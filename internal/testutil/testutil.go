// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/require"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/config"
)

// NewSQLiteDB opens a private in-memory sqlite database migrated for models.
func NewSQLiteDB(t *testing.T, models ...medaware.Model) medaware.DBService {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		URL:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		QueryTimeout: 5 * time.Second,
	}

	db, err := medaware.OpenDBService(context.Background(), cfg, NopLogger(), models...)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.DropAll(context.Background())
		db.Close(context.Background())
	})

	return db
}

func NopLogger() medaware.LoggerService {
	return medaware.NewLogger(io.Discard, "error")
}

// FakeVerifier accepts tokens of the form "token-<uid>".
type FakeVerifier struct{}

func (FakeVerifier) Verify(_ context.Context, token string) (*medaware.Claims, error) {
	uid, ok := strings.CutPrefix(token, "token-")
	if !ok || uid == "" {
		return nil, fmt.Errorf("unknown token")
	}

	claims := &medaware.Claims{Email: uid + "@example.com"}
	claims.Subject = uid

	return claims, nil
}

func NewAuth() medaware.AuthService {
	return medaware.NewAuth(FakeVerifier{}, NopLogger())
}

// NewServer serves handler under pattern behind the same JSON middleware the
// real router installs.
func NewServer(t *testing.T, pattern string, handler http.Handler) *httptest.Server {
	t.Helper()

	router := chi.NewRouter()
	router.Use(render.SetContentType(render.ContentTypeJSON))
	router.Mount(pattern, handler)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

// Do sends a JSON request with an optional bearer token for uid.
func Do(t *testing.T, method, url, uid, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if uid != "" {
		req.Header.Set(medaware.AuthHeaderName, "Bearer token-"+uid)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	t.Cleanup(func() { resp.Body.Close() })

	return resp
}
