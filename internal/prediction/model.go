package prediction

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/medaware/medaware/internal/classifier"
)

// SymptomPrediction is a logged classifier answer for a user's free-text symptom.
type SymptomPrediction struct {
	ID          string          `bson:"_id,omitempty" gorm:"primaryKey;size:64"`
	UserID      string          `bson:"user_id" gorm:"index;size:128"`
	Text        string          `bson:"text"`
	Predictions Predictions     `bson:"predictions"`
	OverallRisk classifier.Risk `bson:"overall_risk" gorm:"size:16"`
	CreatedAt   time.Time       `bson:"created_at" gorm:"index"`
}

func (SymptomPrediction) TableName() string {
	return "symptom_predictions"
}

func (p *SymptomPrediction) GetID() string {
	return p.ID
}

func (p *SymptomPrediction) SetID(id string) {
	p.ID = id
}

func (p *SymptomPrediction) GetUserID() string {
	return p.UserID
}

func (p *SymptomPrediction) SetUserID(userID string) {
	p.UserID = userID
}

func (p *SymptomPrediction) SetCreatedAt(t time.Time) {
	p.CreatedAt = t
}

func (p *SymptomPrediction) ToDTO() render.Renderer {
	return &SymptomPredictionDTO{
		ID:          p.ID,
		UserID:      p.UserID,
		Text:        p.Text,
		Predictions: p.Predictions,
		OverallRisk: p.OverallRisk,
		CreatedAt:   p.CreatedAt,
	}
}

type SymptomPredictionDTO struct {
	ID          string          `json:"_id"`
	UserID      string          `json:"user_id"`
	Text        string          `json:"text"`
	Predictions Predictions     `json:"predictions"`
	OverallRisk classifier.Risk `json:"overall_risk"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (dto *SymptomPredictionDTO) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// Predictions is stored as a BSON array in Mongo and as JSON text in SQL.
type Predictions []classifier.Prediction

func (p Predictions) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}

	raw, err := json.Marshal([]classifier.Prediction(p))
	if err != nil {
		return nil, err
	}

	return string(raw), nil
}

func (p *Predictions) Scan(value any) error {
	var raw []byte

	switch v := value.(type) {
	case nil:
		*p = Predictions{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into Predictions", value)
	}

	return json.Unmarshal(raw, (*[]classifier.Prediction)(p))
}

func (Predictions) GormDataType() string {
	return "text"
}

func (p Predictions) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}

	return json.Marshal([]classifier.Prediction(p))
}
