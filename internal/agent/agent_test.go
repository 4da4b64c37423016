package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/config"
	"github.com/medaware/medaware/internal/medication"
	"github.com/medaware/medaware/internal/testutil"
)

type fakeProvider struct {
	reply string
	err   error

	system string
	user   string
}

func (p *fakeProvider) Model() string {
	return "fake-model"
}

func (p *fakeProvider) CompleteWithSystem(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	p.system = systemPrompt
	p.user = userPrompt

	return p.reply, p.err
}

func newTestServer(t *testing.T, provider Provider) (*httptest.Server, medaware.Service[*medication.Medication]) {
	t.Helper()

	authSvc := testutil.NewAuth()
	meds := medication.New(medication.Params{
		DB:     testutil.NewSQLiteDB(t, &medication.Medication{}),
		Logger: testutil.NopLogger(),
		Auth:   authSvc,
	})

	result, err := New(Params{
		Config:      config.Config{Agent: config.AgentConfig{Provider: config.AgentMistral}},
		Logger:      testutil.NopLogger(),
		Auth:        authSvc,
		Medications: meds.Service,
		Provider:    provider,
	})
	require.NoError(t, err)

	return testutil.NewServer(t, result.Mount.Pattern, result.Mount.Handler), meds.Service
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestRespondAnonymous(t *testing.T) {
	provider := &fakeProvider{reply: "Stay hydrated and rest."}
	srv, _ := newTestServer(t, provider)

	resp := testutil.Do(t, http.MethodPost, srv.URL+ResponsePath, "", `{
		"recent_symptoms": [{"description": "spinning room", "predicted_symptom": "dizziness", "risk": "high"}],
		"medications": [{"name": "Lisinopril", "dosage": "10mg"}]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	assert.Equal(t, "Stay hydrated and rest.", out["agent_message"])
	assert.Equal(t, "fake-model", out["model"])

	assert.Equal(t, systemPrompt, provider.system)
	assert.Contains(t, provider.user, "- spinning room (classified as dizziness, HIGH risk)")
	assert.Contains(t, provider.user, "- Lisinopril 10mg")
}

func TestRespondUsesStoredMedications(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	srv, meds := newTestServer(t, provider)

	_, err := meds.CreateOne(t.Context(), "alice", &medication.Medication{MedicationName: "Metformin", Dosage: "500mg"})
	require.NoError(t, err)

	resp := testutil.Do(t, http.MethodPost, srv.URL+ResponsePath, "alice", `{"user_id":"alice","medications":[]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, provider.user, "- Metformin 500mg")
	assert.Contains(t, provider.user, "Recent symptoms:\n- none reported")
}

func TestRespondWithoutBodyUsesStoredMedications(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	srv, meds := newTestServer(t, provider)

	_, err := meds.CreateOne(t.Context(), "alice", &medication.Medication{MedicationName: "Warfarin", Dosage: "5mg"})
	require.NoError(t, err)

	resp := testutil.Do(t, http.MethodPost, srv.URL+ResponsePath, "alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["agent_message"])
	assert.Contains(t, provider.user, "- Warfarin 5mg")
}

func TestRespondErrors(t *testing.T) {
	tests := []struct {
		name       string
		provider   Provider
		uid        string
		body       string
		wantStatus int
		wantError  string
	}{
		{"empty body", &fakeProvider{}, "", "", http.StatusBadRequest, "recent_symptoms or medications are required"},
		{"bad json", &fakeProvider{}, "", `{"recent_symptoms":`, http.StatusBadRequest, "invalid JSON body: unexpected EOF"},
		{"nothing to review", &fakeProvider{}, "", `{"recent_symptoms":[],"medications":[]}`, http.StatusBadRequest, "recent_symptoms or medications are required"},
		{"signed in without data", &fakeProvider{}, "bob", `{}`, http.StatusBadRequest, "recent_symptoms or medications are required"},
		{"other user", &fakeProvider{}, "alice", `{"user_id":"bob","recent_symptoms":[{"description":"x"}]}`, http.StatusForbidden, "user_id does not match authenticated user"},
		{"provider down", &fakeProvider{err: errors.New("rate limited")}, "", `{"recent_symptoms":[{"description":"x"}]}`, http.StatusBadGateway, "Failed to get agent response: rate limited"},
		{"not configured", unconfigured{model: "m"}, "", `{"recent_symptoms":[{"description":"x"}]}`, http.StatusBadGateway, "Failed to get agent response: agent provider is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.provider)

			resp := testutil.Do(t, http.MethodPost, srv.URL+ResponsePath, tt.uid, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantError, decode(t, resp)["error"])
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt(
		[]SymptomInput{{Description: "tired"}, {Description: "", Risk: "medium"}},
		nil,
	)

	assert.Equal(t, "Recent symptoms:\n- tired\n- unspecified (MEDIUM risk)\n\n"+
		"Current medications:\n- none reported\n\nWhat should I keep in mind?", prompt)
}

func TestChatCompletionProvider(t *testing.T) {
	var seen struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer mistral-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&seen))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "mistral-small-latest",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Talk to your doctor.  "}}]
		}`))
	}))
	t.Cleanup(srv.Close)

	provider, err := NewProvider(t.Context(), config.AgentConfig{
		Provider: config.AgentMistral,
		APIKey:   "mistral-key",
		BaseURL:  srv.URL + "/v1",
	}, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, defaultMistralModel, provider.Model())

	reply, err := provider.CompleteWithSystem(t.Context(), "system text", "user text")
	require.NoError(t, err)
	assert.Equal(t, "Talk to your doctor.", reply)

	assert.Equal(t, defaultMistralModel, seen.Model)
	assert.InDelta(t, 0.3, seen.Temperature, 1e-9)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "system text", seen.Messages[0].Content)
	assert.Equal(t, "user", seen.Messages[1].Role)
	assert.Equal(t, "user text", seen.Messages[1].Content)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(t.Context(), config.AgentConfig{Provider: config.AgentOpenAI}, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIModel, p.Model())

	_, err = p.CompleteWithSystem(t.Context(), "s", "u")
	assert.ErrorIs(t, err, ErrNotConfigured)

	p, err = NewProvider(t.Context(), config.AgentConfig{Provider: config.AgentGemini, Model: "gemini-pro"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-pro", p.Model())

	_, err = NewProvider(t.Context(), config.AgentConfig{Provider: "llama"}, nil)
	assert.ErrorContains(t, err, "unknown agent provider")
}
