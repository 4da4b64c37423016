package medaware

import (
	"context"
	"fmt"
	"time"
)

type Service[M Resource] interface {
	ListByUser(ctx context.Context, userID string) ([]M, error)
	CreateOne(ctx context.Context, userID string, item M) (M, error)
	GetOne(ctx context.Context, itemID string) (M, error)
	UpdateOne(ctx context.Context, itemID string, changes Changes) (M, error)
	DeleteOne(ctx context.Context, itemID string) error
}

type service[M Resource] struct {
	repo Repository[M]
	now  func() time.Time

	touchOnUpdate bool
}

type ServiceOption[M Resource] func(*service[M])

func NewService[M Resource](
	repo Repository[M],
	opts ...ServiceOption[M],
) Service[M] {
	svc := &service[M]{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (s *service[M]) ListByUser(ctx context.Context, userID string) ([]M, error) {
	items, err := s.repo.FindManyByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user items: %w", err)
	}

	return items, nil
}

func (s *service[M]) CreateOne(ctx context.Context, userID string, item M) (M, error) {
	item.SetUserID(userID)
	item.SetCreatedAt(s.now())

	err := s.repo.CreateOne(ctx, item)
	if err != nil {
		return item, fmt.Errorf("failed to create user item: %w", err)
	}

	return item, nil
}

func (s *service[M]) GetOne(ctx context.Context, itemID string) (M, error) {
	item, err := s.repo.FindOneByID(ctx, itemID)
	if err != nil {
		return item, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

func (s *service[M]) UpdateOne(ctx context.Context, itemID string, changes Changes) (M, error) {
	if len(changes) == 0 {
		var zero M
		return zero, ErrNoChanges
	}

	if s.touchOnUpdate {
		changes["updated_at"] = s.now()
	}

	item, err := s.repo.UpdateOne(ctx, itemID, changes)
	if err != nil {
		return item, fmt.Errorf("failed to update user item: %w", err)
	}

	return item, nil
}

func (s *service[M]) DeleteOne(ctx context.Context, itemID string) error {
	err := s.repo.DeleteOne(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete user item: %w", err)
	}

	return nil
}

// WithUpdatedAt stamps "updated_at" on every update.
func WithUpdatedAt[M Resource]() ServiceOption[M] {
	return func(s *service[M]) {
		s.touchOnUpdate = true
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock[M Resource](now func() time.Time) ServiceOption[M] {
	return func(s *service[M]) {
		s.now = now
	}
}
