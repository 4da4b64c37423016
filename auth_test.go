package medaware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/testutil"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()

	authSvc := testutil.NewAuth()

	whoami := func(w http.ResponseWriter, r *http.Request) {
		user, err := authSvc.GetUserFromCtx(r.Context())
		if err != nil {
			render.Render(w, r, medaware.Envelope{"uid": nil})
			return
		}

		render.Render(w, r, medaware.Envelope{"uid": user.ID(), "email": user.Email()})
	}

	router := chi.NewRouter()
	router.Use(render.SetContentType(render.ContentTypeJSON))
	router.With(authSvc.AuthRequired()).Get("/required", whoami)
	router.With(authSvc.AuthOptional()).Get("/optional", whoami)
	router.With(authSvc.AuthRequired(), medaware.RequireOwnerParam(authSvc, "user_id")).Get("/owned/{user_id}", whoami)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

func doWithHeader(t *testing.T, url, header string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)

	if header != "" {
		req.Header.Set(medaware.AuthHeaderName, header)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return resp.StatusCode, body
}

func TestAuthMiddleware(t *testing.T) {
	srv := newAuthServer(t)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantUID    any
		wantError  string
	}{
		{"required ok", "/required", "Bearer token-alice", http.StatusOK, "alice", ""},
		{"required missing", "/required", "", http.StatusUnauthorized, nil, "Missing Authorization header"},
		{"required bad token", "/required", "Bearer forged", http.StatusUnauthorized, nil, "Invalid or expired token"},
		{"required bare bearer", "/required", "Bearer ", http.StatusUnauthorized, nil, "Invalid or expired token"},
		{"optional anonymous", "/optional", "", http.StatusOK, nil, ""},
		{"optional signed in", "/optional", "Bearer token-bob", http.StatusOK, "bob", ""},
		{"optional bad token", "/optional", "Bearer forged", http.StatusUnauthorized, nil, "Invalid or expired token"},
		{"owner ok", "/owned/alice", "Bearer token-alice", http.StatusOK, "alice", ""},
		{"owner mismatch", "/owned/alice", "Bearer token-bob", http.StatusForbidden, nil, "user_id does not match authenticated user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doWithHeader(t, srv.URL+tt.path, tt.header)
			assert.Equal(t, tt.wantStatus, status)

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				return
			}

			assert.Equal(t, tt.wantUID, body["uid"])
		})
	}
}

func TestContextWithUser(t *testing.T) {
	authSvc := testutil.NewAuth()

	_, err := authSvc.GetUserFromCtx(t.Context())
	assert.Error(t, err)

	ctx := medaware.ContextWithUser(t.Context(), medaware.NewUser("carol", "carol@example.com"))

	user, err := authSvc.GetUserFromCtx(ctx)
	require.NoError(t, err)
	assert.Equal(t, "carol", user.ID())
	assert.Equal(t, "carol@example.com", user.Email())
}
