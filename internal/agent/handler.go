// Package agent answers with LLM-written advice about a user's recent symptoms
// and medications.
package agent

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/render"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/medication"
)

var ErrNothingToReview = errors.New("recent_symptoms or medications are required")

type Request struct {
	UserID         string            `json:"user_id"`
	RecentSymptoms []SymptomInput    `json:"recent_symptoms"`
	Medications    []MedicationInput `json:"medications"`
}

type Handler struct {
	provider    Provider
	medications medaware.Service[*medication.Medication]
	auth        medaware.AuthService
	logger      medaware.LoggerService
}

func NewHandler(
	provider Provider,
	medications medaware.Service[*medication.Medication],
	authSvc medaware.AuthService,
	logger medaware.LoggerService,
) *Handler {
	return &Handler{
		provider:    provider,
		medications: medications,
		auth:        authSvc,
		logger:      logger,
	}
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An absent body is an empty request; signed-in users may still have
	// stored medications to review.
	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		render.Render(w, r, medaware.ErrInvalidRequest(fmt.Errorf("invalid JSON body: %w", err)))
		return
	}

	if user, err := h.auth.GetUserFromCtx(ctx); err == nil {
		if req.UserID != "" && req.UserID != user.ID() {
			render.Render(w, r, medaware.ErrForbidden(medaware.ErrUserMismatch))
			return
		}

		if len(req.Medications) == 0 {
			req.Medications = h.storedMedications(r, user.ID())
		}
	}

	if len(req.RecentSymptoms) == 0 && len(req.Medications) == 0 {
		render.Render(w, r, medaware.ErrInvalidRequest(ErrNothingToReview))
		return
	}

	reply, err := h.provider.CompleteWithSystem(ctx, systemPrompt, buildUserPrompt(req.RecentSymptoms, req.Medications))
	if err != nil {
		h.logger.Error("agent provider failed", "model", h.provider.Model(), "error", err)
		render.Render(w, r, medaware.ErrUpstream(fmt.Errorf("Failed to get agent response: %w", err)))

		return
	}

	render.Render(w, r, medaware.Envelope{
		"agent_message": reply,
		"model":         h.provider.Model(),
	})
}

// storedMedications loads the user's saved medications. Lookup failures leave
// the request as sent.
func (h *Handler) storedMedications(r *http.Request, userID string) []MedicationInput {
	if h.medications == nil {
		return nil
	}

	meds, err := h.medications.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Warn("failed to load stored medications", "user", userID, "error", err)
		return nil
	}

	out := make([]MedicationInput, 0, len(meds))
	for _, m := range meds {
		out = append(out, MedicationInput{Name: m.MedicationName, Dosage: m.Dosage})
	}

	return out
}
