// Package prediction serves the symptom classifier endpoint and the log of past
// predictions.
package prediction

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/classifier"
)

type Handler struct {
	classifier classifier.Classifier
	svc        medaware.Service[*SymptomPrediction]
	auth       medaware.AuthService
	logger     medaware.LoggerService
}

func NewHandler(
	c classifier.Classifier,
	svc medaware.Service[*SymptomPrediction],
	authSvc medaware.AuthService,
	logger medaware.LoggerService,
) *Handler {
	return &Handler{
		classifier: c,
		svc:        svc,
		auth:       authSvc,
		logger:     logger,
	}
}

// Predict classifies {"symptom_text"}. Callers presenting a token get the
// prediction logged under their uid.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := medaware.DecodePayload(r)
	if err != nil && !errors.Is(err, medaware.ErrEmptyBody) {
		render.Render(w, r, medaware.ErrInvalidRequest(err))
		return
	}

	text, err := data.RequiredString("symptom_text")
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("symptom_text is required")
	}

	if err != nil {
		render.Render(w, r, medaware.ErrInvalidRequest(err))
		return
	}

	user, authErr := h.auth.GetUserFromCtx(ctx)

	bodyUserID, err := data.String("user_id")
	if err != nil {
		render.Render(w, r, medaware.ErrInvalidRequest(err))
		return
	}

	if authErr == nil && bodyUserID != "" && bodyUserID != user.ID() {
		render.Render(w, r, medaware.ErrForbidden(medaware.ErrUserMismatch))
		return
	}

	result, err := h.classifier.Classify(ctx, text)
	if err != nil {
		if errors.Is(err, classifier.ErrEmptyText) {
			render.Render(w, r, medaware.ErrInvalidRequest(err))
			return
		}

		h.logger.Error("symptom prediction failed", "error", err)
		render.Render(w, r, medaware.ErrUnknown(err))

		return
	}

	if authErr == nil {
		h.record(r, user.ID(), text, result)
	}

	render.Render(w, r, medaware.Envelope{
		"predicted_symptom": result.PredictedSymptom,
		"probability":       result.Confidence,
		"top_predictions":   result.TopPredictions,
		"overall_risk":      result.OverallRisk,
	})
}

// record logs a prediction. Failures are logged and never reach the caller.
func (h *Handler) record(r *http.Request, userID, text string, result classifier.Result) {
	entry := &SymptomPrediction{
		Text:        strings.TrimSpace(text),
		Predictions: result.TopPredictions,
		OverallRisk: result.OverallRisk,
	}

	if _, err := h.svc.CreateOne(r.Context(), userID, entry); err != nil {
		h.logger.Warn("failed to log symptom prediction", "user", userID, "error", err)
	}
}

// List returns the caller's logged predictions, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.auth.GetUserFromCtx(ctx)
	if err != nil {
		render.Render(w, r, medaware.ErrUnauthorized(err))
		return
	}

	items, err := h.svc.ListByUser(ctx, user.ID())
	if err != nil {
		h.logger.Error("failed to list predictions", "error", err)
		render.Render(w, r, medaware.ErrUnknown(fmt.Errorf("Failed to fetch predictions: %w", err)))

		return
	}

	render.Render(w, r, medaware.Success(
		"predictions", medaware.RenderDTOs(items),
		"count", len(items),
	))
}
