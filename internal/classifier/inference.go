package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

const maxErrorBody = 4 << 10

// inferenceClient posts JSON to a Hugging Face style inference endpoint.
type inferenceClient struct {
	endpoint string
	token    string
	client   *http.Client
}

func (c *inferenceClient) post(ctx context.Context, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build inference request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("inference endpoint returned %d: %s", resp.StatusCode, inferenceErrorText(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode inference response: %w", err)
	}

	return nil
}

// inferenceErrorText pulls the "error" field out of an endpoint error body.
func inferenceErrorText(raw []byte) string {
	var body struct {
		Error         any     `json:"error"`
		EstimatedTime float64 `json:"estimated_time"`
	}

	if err := json.Unmarshal(raw, &body); err != nil || body.Error == nil {
		return strings.TrimSpace(string(raw))
	}

	text := fmt.Sprint(body.Error)
	if body.EstimatedTime > 0 {
		text = fmt.Sprintf("%s (retry in %.0fs)", text, body.EstimatedTime)
	}

	return text
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ZeroShotModel asks a zero-shot-classification endpoint to rank the configured
// candidate labels against the text.
type ZeroShotModel struct {
	inferenceClient

	model  string
	labels []string
}

func NewZeroShotModel(endpoint, token, model string, labels []string, client *http.Client) *ZeroShotModel {
	if client == nil {
		client = http.DefaultClient
	}

	return &ZeroShotModel{
		inferenceClient: inferenceClient{endpoint: endpoint, token: token, client: client},
		model:           model,
		labels:          labels,
	}
}

func (m *ZeroShotModel) Name() string {
	return "zero-shot:" + m.model
}

func (m *ZeroShotModel) Scores(ctx context.Context, text string) ([]Score, error) {
	payload := map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"candidate_labels": m.labels,
			"multi_label":      false,
		},
	}

	var raw json.RawMessage
	if err := m.post(ctx, payload, &raw); err != nil {
		return nil, err
	}

	return decodeZeroShot(raw)
}

// decodeZeroShot accepts both the pipeline shape {"labels": [...], "scores": [...]}
// and the list shape [{"label": ..., "score": ...}].
func decodeZeroShot(raw json.RawMessage) ([]Score, error) {
	trimmed := bytes.TrimSpace(raw)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []labelScore
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode zero-shot list: %w", err)
		}

		return toScores(list), nil
	}

	var body struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
	}

	if err := json.Unmarshal(trimmed, &body); err != nil {
		return nil, fmt.Errorf("decode zero-shot response: %w", err)
	}

	if len(body.Labels) != len(body.Scores) {
		return nil, fmt.Errorf("zero-shot response has %d labels but %d scores", len(body.Labels), len(body.Scores))
	}

	scores := make([]Score, 0, len(body.Labels))
	for i, label := range body.Labels {
		scores = append(scores, Score{Label: label, Score: body.Scores[i]})
	}

	return scores, nil
}

// FineTunedModel calls a text-classification endpoint serving the fine-tuned
// checkpoint and maps its LABEL_n outputs through the training label map.
type FineTunedModel struct {
	inferenceClient

	model    string
	labelMap map[string]string
}

func NewFineTunedModel(endpoint, token, model string, labelMap map[string]string, client *http.Client) *FineTunedModel {
	if client == nil {
		client = http.DefaultClient
	}

	return &FineTunedModel{
		inferenceClient: inferenceClient{endpoint: endpoint, token: token, client: client},
		model:           model,
		labelMap:        labelMap,
	}
}

func (m *FineTunedModel) Name() string {
	return "fine-tuned:" + m.model
}

func (m *FineTunedModel) Scores(ctx context.Context, text string) ([]Score, error) {
	payload := map[string]any{"inputs": text}
	if len(m.labelMap) > 0 {
		payload["parameters"] = map[string]any{"top_k": len(m.labelMap)}
	}

	var raw json.RawMessage
	if err := m.post(ctx, payload, &raw); err != nil {
		return nil, err
	}

	list, err := decodeTextClassification(raw)
	if err != nil {
		return nil, err
	}

	scores := toScores(list)
	for i := range scores {
		scores[i].Label = m.mapLabel(scores[i].Label)
	}

	return scores, nil
}

const unmappedCategory = "Other"

func (m *FineTunedModel) mapLabel(label string) string {
	if len(m.labelMap) == 0 {
		return label
	}

	key := strings.TrimPrefix(label, "LABEL_")
	if _, err := strconv.Atoi(key); err == nil {
		if name, ok := m.labelMap[key]; ok {
			return name
		}

		return unmappedCategory
	}

	return label
}

// decodeTextClassification accepts [{...}] and the batched [[{...}]] shape.
func decodeTextClassification(raw json.RawMessage) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, errors.New("empty text-classification response")
		}

		return nested[0], nil
	}

	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode text-classification response: %w", err)
	}

	return flat, nil
}

func toScores(list []labelScore) []Score {
	scores := make([]Score, 0, len(list))
	for _, item := range list {
		scores = append(scores, Score{Label: item.Label, Score: item.Score})
	}

	return scores
}

// LoadLabelMap reads the id→label JSON written next to the fine-tuned model.
func LoadLabelMap(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label map: %w", err)
	}

	var labelMap map[string]string
	if err := json.Unmarshal(raw, &labelMap); err != nil {
		return nil, fmt.Errorf("parse label map: %w", err)
	}

	return labelMap, nil
}
