// Package profile stores the onboarding questionnaire a user fills in once and
// may resubmit.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/medaware/medaware"
)

type Profile struct {
	ID                 string              `bson:"_id,omitempty" gorm:"primaryKey;size:64"`
	UserID             string              `bson:"user_id" gorm:"uniqueIndex;size:128"`
	Age                *int                `bson:"age"`
	Gender             string              `bson:"gender"`
	Conditions         medaware.StringList `bson:"conditions"`
	Allergies          medaware.StringList `bson:"allergies"`
	CurrentMedications medaware.StringList `bson:"current_medications"`
	CreatedAt          time.Time           `bson:"created_at"`
	UpdatedAt          time.Time           `bson:"updated_at"`
}

func (Profile) TableName() string {
	return "users"
}

func (p *Profile) GetID() string {
	return p.ID
}

func (p *Profile) SetID(id string) {
	p.ID = id
}

func (p *Profile) GetUserID() string {
	return p.UserID
}

func (p *Profile) SetUserID(userID string) {
	p.UserID = userID
}

func (p *Profile) SetCreatedAt(t time.Time) {
	p.CreatedAt = t
	p.UpdatedAt = t
}

func (p *Profile) ToDTO() render.Renderer {
	return &ProfileDTO{
		UID:                p.UserID,
		Age:                p.Age,
		Gender:             p.Gender,
		Conditions:         p.Conditions,
		Allergies:          p.Allergies,
		CurrentMedications: p.CurrentMedications,
		UpdatedAt:          p.UpdatedAt,
	}
}

type ProfileDTO struct {
	UID                string              `json:"uid"`
	Age                *int                `json:"age"`
	Gender             string              `json:"gender"`
	Conditions         medaware.StringList `json:"conditions"`
	Allergies          medaware.StringList `json:"allergies"`
	CurrentMedications medaware.StringList `json:"current_medications"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func (dto *ProfileDTO) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// NewProfileFromRequest reads an onboarding submission. Every field is optional.
func NewProfileFromRequest(r *http.Request, user medaware.User) (*Profile, error) {
	data, err := medaware.DecodeObject(r)
	if err != nil {
		return nil, err
	}

	p := &Profile{UserID: user.ID()}

	if data["age"] != nil {
		age, err := data.Int("age")
		if err != nil || age < 0 || age > 150 {
			return nil, errors.New("age must be a valid number")
		}

		p.Age = &age
	}

	gender, err := data.String("gender")
	if err != nil {
		return nil, err
	}

	p.Gender = strings.TrimSpace(gender)

	lists := map[string]*medaware.StringList{
		"conditions":          &p.Conditions,
		"allergies":           &p.Allergies,
		"current_medications": &p.CurrentMedications,
	}

	for key, dst := range lists {
		list, err := data.StringList(key)
		if err != nil {
			return nil, err
		}

		*dst = list
	}

	return p, nil
}

type Service interface {
	Save(ctx context.Context, p *Profile) (*Profile, error)
	Get(ctx context.Context, userID string) (*Profile, error)
}

type service struct {
	repo medaware.Repository[*Profile]
	now  func() time.Time
}

func NewService(repo medaware.Repository[*Profile]) Service {
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Save replaces the user's profile, keeping the original creation time.
func (s *service) Save(ctx context.Context, p *Profile) (*Profile, error) {
	now := s.now()
	p.SetCreatedAt(now)

	existing, err := s.Get(ctx, p.UserID)
	switch {
	case err == nil:
		p.CreatedAt = existing.CreatedAt
	case !errors.Is(err, medaware.ErrRecordNotFound):
		return nil, err
	}

	if err := s.repo.UpsertByUser(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	return p, nil
}

func (s *service) Get(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.repo.FindOne(ctx, medaware.Filter{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}
