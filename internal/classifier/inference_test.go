package classifier

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medaware/medaware/internal/config"
	"github.com/medaware/medaware/internal/testutil"
)

func newInferenceServer(t *testing.T, status int, response string, seen *map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))

		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestZeroShotModel(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"pipeline shape", `{"sequence":"x","labels":["fever","rash"],"scores":[0.8,0.2]}`},
		{"list shape", `[{"label":"fever","score":0.8},{"label":"rash","score":0.2}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen map[string]any
			srv := newInferenceServer(t, http.StatusOK, tt.response, &seen)

			model := NewZeroShotModel(srv.URL, "hf-token", "bio", []string{"fever", "rash"}, srv.Client())

			scores, err := model.Scores(t.Context(), "hot and itchy")
			require.NoError(t, err)
			assert.Equal(t, []Score{{"fever", 0.8}, {"rash", 0.2}}, scores)

			assert.Equal(t, "hot and itchy", seen["inputs"])
			params := seen["parameters"].(map[string]any)
			assert.Equal(t, []any{"fever", "rash"}, params["candidate_labels"])
			assert.Equal(t, false, params["multi_label"])
		})
	}
}

func TestZeroShotModelMismatchedResponse(t *testing.T) {
	srv := newInferenceServer(t, http.StatusOK, `{"labels":["fever"],"scores":[]}`, nil)

	_, err := NewZeroShotModel(srv.URL, "hf-token", "bio", nil, srv.Client()).Scores(t.Context(), "x")
	assert.ErrorContains(t, err, "1 labels but 0 scores")
}

func TestInferenceErrorBody(t *testing.T) {
	srv := newInferenceServer(t, http.StatusServiceUnavailable,
		`{"error":"Model is currently loading","estimated_time":20.0}`, nil)

	_, err := NewZeroShotModel(srv.URL, "hf-token", "bio", nil, srv.Client()).Scores(t.Context(), "x")
	assert.ErrorContains(t, err, "returned 503: Model is currently loading (retry in 20s)")
}

func TestFineTunedModel(t *testing.T) {
	labelMap := map[string]string{"0": "Nervous system disorders", "1": "Skin disorders"}

	tests := []struct {
		name     string
		response string
		want     []Score
	}{
		{
			name:     "nested",
			response: `[[{"label":"LABEL_0","score":0.7},{"label":"LABEL_1","score":0.2},{"label":"LABEL_9","score":0.1}]]`,
			want:     []Score{{"Nervous system disorders", 0.7}, {"Skin disorders", 0.2}, {"Other", 0.1}},
		},
		{
			name:     "flat",
			response: `[{"label":"LABEL_1","score":0.6},{"label":"custom","score":0.4}]`,
			want:     []Score{{"Skin disorders", 0.6}, {"custom", 0.4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen map[string]any
			srv := newInferenceServer(t, http.StatusOK, tt.response, &seen)

			model := NewFineTunedModel(srv.URL, "hf-token", "sider", labelMap, srv.Client())
			assert.Equal(t, "fine-tuned:sider", model.Name())

			scores, err := model.Scores(t.Context(), "tingling hands")
			require.NoError(t, err)
			assert.Equal(t, tt.want, scores)

			assert.Equal(t, map[string]any{"top_k": float64(2)}, seen["parameters"])
		})
	}
}

func TestLoadLabelMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label_map.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"0":"Cardiac disorders","1":"Skin disorders"}`), 0o600))

	labelMap, err := LoadLabelMap(path)
	require.NoError(t, err)
	assert.Equal(t, "Cardiac disorders", labelMap["0"])

	_, err = LoadLabelMap(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	srv := newInferenceServer(t, http.StatusInternalServerError, `{"error":"boom"}`, nil)

	c, err := NewFromConfig(config.ClassifierConfig{
		Mode:     config.ClassifierZeroShot,
		Endpoint: srv.URL,
		APIToken: "hf-token",
		Model:    "bio",
		Fallback: true,
	}, testutil.NopLogger())
	require.NoError(t, err)

	result, err := c.Classify(t.Context(), "terrible migraine")
	require.NoError(t, err)
	assert.Equal(t, "headache", result.PredictedSymptom)
	assert.Equal(t, "keyword", result.Source)

	c, err = NewFromConfig(config.ClassifierConfig{Mode: config.ClassifierKeyword}, testutil.NopLogger())
	require.NoError(t, err)

	result, err = c.Classify(t.Context(), "rash on my arm")
	require.NoError(t, err)
	assert.Equal(t, "rash", result.PredictedSymptom)

	_, err = NewFromConfig(config.ClassifierConfig{Mode: "magic"}, testutil.NopLogger())
	assert.ErrorContains(t, err, "unknown classifier mode")
}
