package medication

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/medaware/medaware"
)

type Medication struct {
	ID             string    `bson:"_id,omitempty" gorm:"primaryKey;size:64"`
	UserID         string    `bson:"user_id" gorm:"index;size:128"`
	MedicationName string    `bson:"medication_name"`
	Dosage         string    `bson:"dosage"`
	Frequency      string    `bson:"frequency"`
	StartDate      string    `bson:"start_date"`
	Notes          string    `bson:"notes"`
	CreatedAt      time.Time `bson:"created_at" gorm:"index"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func (Medication) TableName() string {
	return "medications"
}

func (m *Medication) GetID() string {
	return m.ID
}

func (m *Medication) SetID(id string) {
	m.ID = id
}

func (m *Medication) GetUserID() string {
	return m.UserID
}

func (m *Medication) SetUserID(userID string) {
	m.UserID = userID
}

func (m *Medication) SetCreatedAt(t time.Time) {
	m.CreatedAt = t
	m.UpdatedAt = t
}

func (m *Medication) ToDTO() render.Renderer {
	return &MedicationDTO{
		ID:             m.ID,
		UserID:         m.UserID,
		MedicationName: m.MedicationName,
		Dosage:         m.Dosage,
		Frequency:      m.Frequency,
		StartDate:      m.StartDate,
		Notes:          m.Notes,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type MedicationDTO struct {
	ID             string    `json:"_id"`
	UserID         string    `json:"user_id"`
	MedicationName string    `json:"medication_name"`
	Dosage         string    `json:"dosage"`
	Frequency      string    `json:"frequency"`
	StartDate      string    `json:"start_date"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (dto *MedicationDTO) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// updatableFields are the only columns a client may change after creation.
var updatableFields = []string{"medication_name", "dosage", "frequency", "start_date", "notes"}

// NewMedicationFromRequest builds a medication from an add request. The body
// must name the authenticated user.
func NewMedicationFromRequest(r *http.Request, user medaware.User) (*Medication, error) {
	data, err := medaware.DecodePayload(r)
	if err != nil {
		return nil, err
	}

	userID, err := data.RequiredString("user_id")
	if err != nil {
		return nil, err
	}

	name, err := data.RequiredString("medication_name")
	if err != nil {
		return nil, err
	}

	if userID != user.ID() {
		return nil, medaware.ErrUserMismatch
	}

	med := &Medication{
		UserID:         userID,
		MedicationName: strings.TrimSpace(name),
	}

	optional := map[string]*string{
		"dosage":     &med.Dosage,
		"frequency":  &med.Frequency,
		"start_date": &med.StartDate,
		"notes":      &med.Notes,
	}

	for key, dst := range optional {
		value, err := data.String(key)
		if err != nil {
			return nil, err
		}

		*dst = value
	}

	return med, nil
}

// MedicationChangesFromRequest collects the updatable fields present in the body.
func MedicationChangesFromRequest(r *http.Request, _ medaware.User) (medaware.Changes, error) {
	data, err := medaware.DecodePayload(r)
	if err != nil {
		return nil, err
	}

	changes := medaware.Changes{}

	for _, field := range updatableFields {
		if !data.Has(field) {
			continue
		}

		value, err := data.String(field)
		if err != nil {
			return nil, err
		}

		if field == "medication_name" && strings.TrimSpace(value) == "" {
			return nil, errors.New("medication_name cannot be empty")
		}

		changes[field] = value
	}

	return changes, nil
}
