package profile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, Service) {
	t.Helper()

	result := New(Params{
		DB:     testutil.NewSQLiteDB(t, &Profile{}),
		Logger: testutil.NopLogger(),
		Auth:   testutil.NewAuth(),
	})

	return testutil.NewServer(t, result.Mount.Pattern, result.Mount.Handler), result.Service
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestOnboardingRoundTrip(t *testing.T) {
	srv, svc := newTestServer(t)

	resp := testutil.Do(t, http.MethodGet, srv.URL+"/onboarding", "alice", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Profile not found", decode(t, resp)["error"])

	resp = testutil.Do(t, http.MethodPost, srv.URL+"/onboarding", "alice",
		`{"age":"34","gender":"female","conditions":["asthma"],"current_medications":["Ventolin"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Onboarding data stored successfully", decode(t, resp)["message"])

	first, err := svc.Get(t.Context(), "alice")
	require.NoError(t, err)

	resp = testutil.Do(t, http.MethodPost, srv.URL+"/onboarding", "alice",
		`{"age":35,"gender":"female","allergies":["penicillin"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	second, err := svc.Get(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.Equal(t, medaware.StringList{}, second.Conditions)

	resp = testutil.Do(t, http.MethodGet, srv.URL+"/onboarding", "alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	profile := decode(t, resp)["profile"].(map[string]any)
	assert.Equal(t, "alice", profile["uid"])
	assert.EqualValues(t, 35, profile["age"])
	assert.Equal(t, []any{"penicillin"}, profile["allergies"])
	assert.Equal(t, []any{}, profile["current_medications"])
}

func TestOnboardingValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name       string
		uid        string
		body       string
		wantStatus int
		wantError  string
	}{
		{"no token", "", `{"age":30}`, http.StatusUnauthorized, "Missing Authorization header"},
		{"empty body", "alice", "", http.StatusBadRequest, "Request body is required"},
		{"empty object", "alice", "{}", http.StatusOK, ""},
		{"null body", "alice", "null", http.StatusOK, ""},
		{"bad age", "alice", `{"age":"old"}`, http.StatusBadRequest, "age must be a valid number"},
		{"conditions not array", "alice", `{"conditions":"asthma"}`, http.StatusBadRequest, "conditions must be an array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.Do(t, http.MethodPost, srv.URL+"/onboarding", tt.uid, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decode(t, resp)
			if tt.wantError == "" {
				assert.NotContains(t, body, "error")
				return
			}

			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestOnboardingEmptySubmission(t *testing.T) {
	srv, svc := newTestServer(t)

	resp := testutil.Do(t, http.MethodPost, srv.URL+"/onboarding", "carol", "{}")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := svc.Get(t.Context(), "carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", stored.UserID)
	assert.Nil(t, stored.Age)
	assert.Empty(t, stored.Gender)
	assert.Equal(t, medaware.StringList{}, stored.Conditions)
	assert.Equal(t, medaware.StringList{}, stored.Allergies)
}
