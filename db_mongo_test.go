package medaware

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medaware/medaware/internal/config"
)

const mongoImage = "mongo:7"

// mongoContainer is started by the first test that needs it and shared by the
// rest of the package.
var mongoContainer struct {
	once sync.Once
	ctr  *testcontainers.DockerContainer
	uri  string
	err  error
	dbs  atomic.Int32
}

func TestMain(m *testing.M) {
	code := m.Run()

	if mongoContainer.ctr != nil {
		mongoContainer.ctr.Terminate(context.Background())
	}

	os.Exit(code)
}

func mongoURI(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping mongo container test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	mongoContainer.once.Do(func() {
		ctx := context.Background()

		ctr, err := testcontainers.Run(ctx, mongoImage,
			testcontainers.WithExposedPorts("27017/tcp"),
			testcontainers.WithWaitStrategy(
				wait.ForListeningPort("27017/tcp").WithStartupTimeout(2*time.Minute),
			),
		)
		mongoContainer.ctr = ctr

		if err != nil {
			mongoContainer.err = fmt.Errorf("start %s: %w", mongoImage, err)
			return
		}

		mongoContainer.uri, mongoContainer.err = ctr.PortEndpoint(ctx, "27017/tcp", "mongodb")
	})

	require.NoError(t, mongoContainer.err)

	return mongoContainer.uri
}

// openMongoTestDB connects to a fresh database on the shared container.
func openMongoTestDB(t *testing.T) DBService {
	t.Helper()

	return openTestService(t, config.DatabaseConfig{
		Driver:       config.DriverMongo,
		MongoURI:     mongoURI(t),
		MongoDBName:  fmt.Sprintf("medaware_test_%d", mongoContainer.dbs.Add(1)),
		QueryTimeout: 5 * time.Second,
	})
}

func TestMongoStoresObjectIDs(t *testing.T) {
	db := openMongoTestDB(t)
	svc := newNoteService(db, time.Now)

	created, err := svc.CreateOne(t.Context(), "alice", &note{Body: "hello"})
	require.NoError(t, err)
	require.True(t, primitive.IsValidObjectID(created.ID), "id %q", created.ID)

	oid, err := primitive.ObjectIDFromHex(created.ID)
	require.NoError(t, err)

	raw, err := db.(*mongoService).db.Collection("notes").
		FindOne(t.Context(), bson.M{"_id": oid}).Raw()
	require.NoError(t, err)
	assert.Equal(t, bsontype.ObjectID, raw.Lookup("_id").Type)
	assert.Equal(t, bsontype.Array, raw.Lookup("tags").Type)

	loaded, err := svc.GetOne(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "hello", loaded.Body)

	_, err = svc.GetOne(t.Context(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMongoMigrateCreatesRecencyIndex(t *testing.T) {
	db := openMongoTestDB(t)

	specs, err := db.(*mongoService).db.Collection("notes").Indexes().ListSpecifications(t.Context())
	require.NoError(t, err)

	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}

	assert.Contains(t, names, "user_id_1_created_at_-1")
}
