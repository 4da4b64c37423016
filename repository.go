package medaware

import (
	"context"
	"fmt"
)

type Repository[M Model] interface {
	FindOne(ctx context.Context, filter Filter) (M, error)
	FindOneByID(ctx context.Context, itemID string) (M, error)
	FindManyByUser(ctx context.Context, userID string) ([]M, error)
	CreateOne(ctx context.Context, item M) error
	UpdateOne(ctx context.Context, itemID string, changes Changes) (M, error)
	UpsertByUser(ctx context.Context, item M) error
	DeleteOne(ctx context.Context, itemID string) error
}

type repository[M Model] struct {
	db     DBService
	logger LoggerService

	tableName string
}

func NewRepository[M Model](
	db DBService,
	logger LoggerService,
) Repository[M] {
	return &repository[M]{
		db:        db,
		logger:    logger,
		tableName: newModel[M]().TableName(),
	}
}

func (r *repository[M]) FindOne(ctx context.Context, filter Filter) (M, error) {
	item := newModel[M]()

	err := r.db.FindOne(ctx, item, filter)
	if err != nil {
		return item, fmt.Errorf("failed to find one item: %w", err)
	}

	r.logger.Debug("Found one item", "item", item.GetID(), "table", r.tableName)

	return item, nil
}

func (r *repository[M]) FindOneByID(ctx context.Context, itemID string) (M, error) {
	return r.FindOne(ctx, Filter{"id": itemID})
}

func (r *repository[M]) FindManyByUser(ctx context.Context, userID string) ([]M, error) {
	items := []M{}

	err := r.db.FindMany(ctx, &items, r.tableName, Filter{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to find many items by user: %w", err)
	}

	r.logger.Debug("Found many items by user", "table", r.tableName, "count", len(items))

	return items, nil
}

func (r *repository[M]) CreateOne(ctx context.Context, item M) error {
	err := r.db.CreateOne(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to create one item: %w", err)
	}

	r.logger.Debug("Created one item", "item", item.GetID(), "table", r.tableName)

	return nil
}

func (r *repository[M]) UpdateOne(ctx context.Context, itemID string, changes Changes) (M, error) {
	item := newModel[M]()

	err := r.db.UpdateOne(ctx, itemID, changes, item)
	if err != nil {
		return item, fmt.Errorf("failed to update one item: %w", err)
	}

	r.logger.Debug("Updated one item", "item", itemID, "table", r.tableName, "fields", len(changes))

	return item, nil
}

// UpsertByUser replaces the single record owned by the item's user, creating it
// when absent.
func (r *repository[M]) UpsertByUser(ctx context.Context, item M) error {
	err := r.db.UpsertOne(ctx, Filter{"user_id": item.GetUserID()}, item)
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	r.logger.Debug("Upserted one item", "item", item.GetID(), "table", r.tableName)

	return nil
}

func (r *repository[M]) DeleteOne(ctx context.Context, itemID string) error {
	item := newModel[M]()

	err := r.db.DeleteOne(ctx, itemID, item)
	if err != nil {
		return fmt.Errorf("failed to delete one item: %w", err)
	}

	r.logger.Debug("Deleted one item", "item", itemID, "table", r.tableName)

	return nil
}
