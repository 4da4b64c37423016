package symptom

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/classifier"
)

var errEmptyText = errors.New("text cannot be empty")

// analyzer classifies free text and stores it as a machine-labelled symptom.
type analyzer struct {
	svc        medaware.Service[*Symptom]
	classifier classifier.Classifier
	auth       medaware.AuthService
	logger     medaware.LoggerService
}

func (a *analyzer) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := a.auth.GetUserFromCtx(ctx)
	if err != nil {
		render.Render(w, r, medaware.ErrUnauthorized(err))
		return
	}

	data, err := medaware.DecodePayload(r)
	if err != nil {
		render.Render(w, r, medaware.ErrInvalidRequest(err))
		return
	}

	userID, err := data.RequiredString("user_id")
	if err != nil {
		render.Render(w, r, medaware.ErrInvalidRequest(err))
		return
	}

	if data["text"] == nil {
		render.Render(w, r, medaware.ErrInvalidRequest(errors.New("text is required")))
		return
	}

	text, err := data.String("text")
	if err != nil {
		render.Render(w, r, medaware.ErrInvalidRequest(err))
		return
	}

	if userID != user.ID() {
		render.Render(w, r, medaware.ErrForbidden(medaware.ErrUserMismatch))
		return
	}

	if strings.TrimSpace(text) == "" {
		render.Render(w, r, medaware.ErrInvalidRequest(errEmptyText))
		return
	}

	result, err := a.classifier.Classify(ctx, text)
	if err != nil {
		if errors.Is(err, classifier.ErrEmptyText) {
			render.Render(w, r, medaware.ErrInvalidRequest(errEmptyText))
			return
		}

		a.logger.Error("failed to analyze symptom", "error", err)
		render.Render(w, r, medaware.ErrUnknown(fmt.Errorf("Failed to analyze symptom: %w", err)))

		return
	}

	saved, err := a.svc.CreateOne(ctx, userID, &Symptom{
		Description:    strings.TrimSpace(text),
		PredictedLabel: result.PredictedSymptom,
		MLClassified:   true,
	})
	if err != nil {
		a.logger.Error("failed to save analyzed symptom", "error", err)
		render.Render(w, r, medaware.ErrUnknown(fmt.Errorf("Failed to save prediction to database: %w", err)))

		return
	}

	render.Status(r, http.StatusCreated)
	render.Render(w, r, medaware.Success(
		"user_id", userID,
		"raw_text", text,
		"prediction", result.PredictedSymptom,
		"overall_risk", result.OverallRisk,
		"saved_id", saved.GetID(),
		"saved_at", saved.CreatedAt.Format(time.RFC3339Nano),
	))
}
