package medaware

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/medaware/medaware/internal/config"
)

// DBService is the storage backend shared by every repository. Records are
// addressed by string ids: hex ObjectIDs on Mongo, uuids on SQL databases.
type DBService interface {
	Driver() string

	CreateOne(ctx context.Context, record Model) error
	UpdateOne(ctx context.Context, recordID string, changes Changes, result Model) error
	DeleteOne(ctx context.Context, recordID string, record Model) error
	UpsertOne(ctx context.Context, filter Filter, record Model) error
	FindOne(ctx context.Context, result Model, filter Filter) error
	// FindMany loads every matching record of table into result (a pointer to a
	// slice), newest first.
	FindMany(ctx context.Context, result any, table string, filter Filter) error

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	DropAll(ctx context.Context) error
	Close(ctx context.Context) error
}

const (
	DefaultQueryTimeout = 5 * time.Second
	connectTimeout      = 10 * time.Second
)

type DBServiceParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Logger    LoggerService
	Models    []Model `group:"models"`
}

type DbServiceResult struct {
	fx.Out

	DBService DBService
}

func NewDBService(params DBServiceParams) (DbServiceResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	srv, err := OpenDBService(ctx, params.Config.Database, params.Logger, params.Models...)
	if err != nil {
		return DbServiceResult{}, err
	}

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			params.Logger.Info("Closing database connection", "driver", srv.Driver())
			return srv.Close(ctx)
		},
	})

	return DbServiceResult{DBService: srv}, nil
}

// OpenDBService connects to the configured backend and prepares the schema for
// the given models.
func OpenDBService(ctx context.Context, cfg config.DatabaseConfig, logger LoggerService, models ...Model) (DBService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	var (
		srv DBService
		err error
	)

	switch cfg.Driver {
	case config.DriverMongo:
		srv, err = openMongoService(ctx, cfg.MongoURI, cfg.MongoDBName, timeout, models)
	default:
		srv, err = openGormService(cfg.Driver, cfg.URL, timeout, models)
	}

	if err != nil {
		return nil, fmt.Errorf("open %s database failed: %w", cfg.Driver, err)
	}

	if err := srv.Migrate(ctx); err != nil {
		srv.Close(ctx)
		return nil, fmt.Errorf("migrate failed: %w", err)
	}

	logger.Info("Connected to database", "driver", cfg.Driver, "models", len(models))

	return srv, nil
}

// ProvideModel registers a model with the datastore so its table or collection
// is prepared at start-up.
func ProvideModel(m Model) fx.Option {
	return fx.Provide(
		fx.Annotate(
			func() Model { return m },
			fx.ResultTags(`group:"models"`),
		),
	)
}
