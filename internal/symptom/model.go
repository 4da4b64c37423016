package symptom

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/medaware/medaware"
)

const (
	minIntensity = 1
	maxIntensity = 10
)

var (
	ErrIntensityRange  = fmt.Errorf("intensity must be between %d and %d", minIntensity, maxIntensity)
	ErrIntensityNumber = errors.New("intensity must be a valid number")
)

type Symptom struct {
	ID             string              `bson:"_id,omitempty" gorm:"primaryKey;size:64"`
	UserID         string              `bson:"user_id" gorm:"index;size:128"`
	Description    string              `bson:"description"`
	Intensity      int                 `bson:"intensity,omitempty"`
	Tags           medaware.StringList `bson:"tags,omitempty"`
	MedContext     medaware.StringList `bson:"med_context,omitempty"`
	PredictedLabel string              `bson:"predicted_label,omitempty"`
	MLClassified   bool                `bson:"ml_classified,omitempty" gorm:"column:ml_classified"`
	CreatedAt      time.Time           `bson:"created_at" gorm:"index"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}

func (Symptom) TableName() string {
	return "symptoms"
}

func (s *Symptom) GetID() string {
	return s.ID
}

func (s *Symptom) SetID(id string) {
	s.ID = id
}

func (s *Symptom) GetUserID() string {
	return s.UserID
}

func (s *Symptom) SetUserID(userID string) {
	s.UserID = userID
}

func (s *Symptom) SetCreatedAt(t time.Time) {
	s.CreatedAt = t
	s.UpdatedAt = t
}

func (s *Symptom) ToDTO() render.Renderer {
	dto := &SymptomDTO{
		ID:             s.ID,
		UserID:         s.UserID,
		Description:    s.Description,
		Tags:           s.Tags,
		MedContext:     s.MedContext,
		PredictedLabel: s.PredictedLabel,
		MLClassified:   s.MLClassified,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}

	if s.Intensity > 0 {
		intensity := s.Intensity
		dto.Intensity = &intensity
	}

	return dto
}

type SymptomDTO struct {
	ID             string              `json:"_id"`
	UserID         string              `json:"user_id"`
	Description    string              `json:"description"`
	Intensity      *int                `json:"intensity,omitempty"`
	Tags           medaware.StringList `json:"tags"`
	MedContext     medaware.StringList `json:"med_context"`
	PredictedLabel string              `json:"predicted_label,omitempty"`
	MLClassified   bool                `json:"ml_classified,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (dto *SymptomDTO) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// NewSymptomFromRequest builds a symptom log entry from an add request.
func NewSymptomFromRequest(r *http.Request, user medaware.User) (*Symptom, error) {
	data, err := medaware.DecodePayload(r)
	if err != nil {
		return nil, err
	}

	userID, err := data.RequiredString("user_id")
	if err != nil {
		return nil, err
	}

	description, err := data.RequiredString("description")
	if err != nil {
		return nil, err
	}

	if !data.Has("intensity") || data["intensity"] == nil {
		return nil, errors.New("intensity is required")
	}

	intensity, err := parseIntensity(data["intensity"])
	if err != nil {
		return nil, err
	}

	if userID != user.ID() {
		return nil, medaware.ErrUserMismatch
	}

	tags, err := data.StringList("tags")
	if err != nil {
		return nil, err
	}

	medContext, err := data.StringList("med_context")
	if err != nil {
		return nil, err
	}

	return &Symptom{
		UserID:      userID,
		Description: strings.TrimSpace(description),
		Intensity:   intensity,
		Tags:        tags,
		MedContext:  medContext,
	}, nil
}

// SymptomChangesFromRequest validates the editable fields present in the body.
func SymptomChangesFromRequest(r *http.Request, _ medaware.User) (medaware.Changes, error) {
	data, err := medaware.DecodePayload(r)
	if err != nil {
		return nil, err
	}

	changes := medaware.Changes{}

	if data.Has("description") {
		description, err := data.String("description")
		if err != nil {
			return nil, err
		}

		description = strings.TrimSpace(description)
		if description == "" {
			return nil, errors.New("description cannot be empty")
		}

		changes["description"] = description
	}

	if data.Has("intensity") {
		intensity, err := parseIntensity(data["intensity"])
		if err != nil {
			return nil, err
		}

		changes["intensity"] = intensity
	}

	for _, field := range []string{"tags", "med_context"} {
		if !data.Has(field) {
			continue
		}

		list, err := data.StringList(field)
		if err != nil {
			return nil, err
		}

		changes[field] = list
	}

	return changes, nil
}

func parseIntensity(v any) (int, error) {
	intensity, err := medaware.ParseInt(v)
	if err != nil {
		return 0, ErrIntensityNumber
	}

	if intensity < minIntensity || intensity > maxIntensity {
		return 0, ErrIntensityRange
	}

	return intensity, nil
}
