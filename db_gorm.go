package medaware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/medaware/medaware/internal/config"
)

type gormService struct {
	db     *gorm.DB
	driver string

	models  []Model
	timeout time.Duration
}

func openGormService(driver, dsn string, timeout time.Duration, models []Model) (*gormService, error) {
	var dialector gorm.Dialector

	switch driver {
	case config.DriverPostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	return &gormService{
		db:      db,
		driver:  driver,
		models:  models,
		timeout: timeout,
	}, nil
}

func (srv *gormService) Driver() string {
	return srv.driver
}

func (srv *gormService) CreateOne(ctx context.Context, record Model) error {
	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	if record.GetID() == "" {
		record.SetID(uuid.NewString())
	}

	createResult := sesh.Create(record)
	if createResult.Error != nil {
		return fmt.Errorf("create one failed: %w", createResult.Error)
	}

	return nil
}

func (srv *gormService) UpdateOne(ctx context.Context, recordID string, changes Changes, result Model) error {
	if err := validateUUID(recordID); err != nil {
		return err
	}

	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	updateResult := sesh.
		Model(result).
		Where("id = ?", recordID).
		Updates(map[string]any(changes))

	if updateResult.Error != nil {
		return fmt.Errorf("update one failed: %w", updateResult.Error)
	}

	if updateResult.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	if err := sesh.Where("id = ?", recordID).First(result).Error; err != nil {
		return fmt.Errorf("reload after update failed: %w", err)
	}

	return nil
}

func (srv *gormService) DeleteOne(ctx context.Context, recordID string, record Model) error {
	if err := validateUUID(recordID); err != nil {
		return err
	}

	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	deleteResult := sesh.Where("id = ?", recordID).Delete(record)
	if deleteResult.Error != nil {
		return fmt.Errorf("delete one failed: %w", deleteResult.Error)
	}

	if deleteResult.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

func (srv *gormService) UpsertOne(ctx context.Context, filter Filter, record Model) error {
	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	var ids []string

	lookup := sesh.Model(record).Where(map[string]any(filter)).Limit(1).Pluck("id", &ids)
	if lookup.Error != nil {
		return fmt.Errorf("upsert lookup failed: %w", lookup.Error)
	}

	if len(ids) > 0 {
		record.SetID(ids[0])

		if err := sesh.Save(record).Error; err != nil {
			return fmt.Errorf("upsert save failed: %w", err)
		}

		return nil
	}

	record.SetID(uuid.NewString())

	if err := sesh.Create(record).Error; err != nil {
		return fmt.Errorf("upsert create failed: %w", err)
	}

	return nil
}

func (srv *gormService) FindOne(ctx context.Context, result Model, filter Filter) error {
	if id, ok := filter["id"].(string); ok {
		if err := validateUUID(id); err != nil {
			return err
		}
	}

	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	if len(filter) > 0 {
		sesh = sesh.Where(map[string]any(filter))
	}

	queryResult := sesh.First(result)
	if queryResult.Error != nil {
		if errors.Is(queryResult.Error, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}

		return fmt.Errorf("find one failed: %w", queryResult.Error)
	}

	return nil
}

func (srv *gormService) FindMany(ctx context.Context, result any, table string, filter Filter) error {
	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	sesh = sesh.Table(table)

	if len(filter) > 0 {
		sesh = sesh.Where(map[string]any(filter))
	}

	queryResult := sesh.Order("created_at desc").Find(result)
	if queryResult.Error != nil {
		return fmt.Errorf("find many failed: %w", queryResult.Error)
	}

	return nil
}

func (srv *gormService) Ping(ctx context.Context) error {
	sqlDB, err := srv.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, srv.timeout)
	defer cancel()

	return sqlDB.PingContext(pingCtx)
}

func (srv *gormService) Migrate(ctx context.Context) error {
	for _, model := range srv.models {
		if err := srv.db.WithContext(ctx).AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate failed for model %s: %w", model.TableName(), err)
		}
	}

	return nil
}

func (srv *gormService) DropAll(ctx context.Context) error {
	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	for _, model := range srv.models {
		err := sesh.Migrator().DropTable(model)
		if err != nil {
			return fmt.Errorf("drop all failed: %w", err)
		}
	}

	return nil
}

func (srv *gormService) Close(ctx context.Context) error {
	sqlDB, err := srv.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db failed: %w", err)
	}

	return sqlDB.Close()
}

func (srv *gormService) getSession(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	timeoutCtx, cancel := context.WithTimeout(ctx, srv.timeout)

	return srv.db.Session(&gorm.Session{
		Context: timeoutCtx,
	}), cancel
}

func validateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return nil
}
