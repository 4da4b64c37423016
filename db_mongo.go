package medaware

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const serverSelectionTimeout = 5 * time.Second

type mongoService struct {
	client *mongo.Client
	db     *mongo.Database

	models  []Model
	timeout time.Duration
}

func openMongoService(ctx context.Context, uri, dbName string, timeout time.Duration, models []Model) (*mongoService, error) {
	clientOpts := options.Client().
		ApplyURI(EncodeMongoURI(uri)).
		SetServerSelectionTimeout(serverSelectionTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}

	srv := &mongoService{
		client:  client,
		db:      client.Database(dbName),
		models:  models,
		timeout: timeout,
	}

	if err := srv.Ping(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	return srv, nil
}

func (srv *mongoService) Driver() string {
	return "mongo"
}

func (srv *mongoService) CreateOne(ctx context.Context, record Model) error {
	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	res, err := srv.db.Collection(record.TableName()).InsertOne(sesh, record)
	if err != nil {
		return fmt.Errorf("create one failed: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		record.SetID(oid.Hex())
	}

	return nil
}

func (srv *mongoService) UpdateOne(ctx context.Context, recordID string, changes Changes, result Model) error {
	filter, err := toBSONFilter(Filter{"id": recordID})
	if err != nil {
		return err
	}

	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	coll := srv.db.Collection(result.TableName())

	res, err := coll.UpdateOne(sesh, filter, bson.M{"$set": bson.M(changes)})
	if err != nil {
		return fmt.Errorf("update one failed: %w", err)
	}

	if res.MatchedCount == 0 {
		return ErrRecordNotFound
	}

	if err := coll.FindOne(sesh, filter).Decode(result); err != nil {
		return fmt.Errorf("reload after update failed: %w", err)
	}

	return nil
}

func (srv *mongoService) DeleteOne(ctx context.Context, recordID string, record Model) error {
	filter, err := toBSONFilter(Filter{"id": recordID})
	if err != nil {
		return err
	}

	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	res, err := srv.db.Collection(record.TableName()).DeleteOne(sesh, filter)
	if err != nil {
		return fmt.Errorf("delete one failed: %w", err)
	}

	if res.DeletedCount == 0 {
		return ErrRecordNotFound
	}

	return nil
}

func (srv *mongoService) UpsertOne(ctx context.Context, filter Filter, record Model) error {
	bsonFilter, err := toBSONFilter(filter)
	if err != nil {
		return err
	}

	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	coll := srv.db.Collection(record.TableName())

	// The replacement must not carry _id; Mongo keeps the existing one.
	record.SetID("")

	_, err = coll.ReplaceOne(sesh, bsonFilter, record, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}

	if err := coll.FindOne(sesh, bsonFilter).Decode(record); err != nil {
		return fmt.Errorf("reload after upsert failed: %w", err)
	}

	return nil
}

func (srv *mongoService) FindOne(ctx context.Context, result Model, filter Filter) error {
	bsonFilter, err := toBSONFilter(filter)
	if err != nil {
		return err
	}

	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	err = srv.db.Collection(result.TableName()).FindOne(sesh, bsonFilter).Decode(result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrRecordNotFound
		}

		return fmt.Errorf("find one failed: %w", err)
	}

	return nil
}

func (srv *mongoService) FindMany(ctx context.Context, result any, table string, filter Filter) error {
	bsonFilter, err := toBSONFilter(filter)
	if err != nil {
		return err
	}

	sesh, cancel := srv.getSession(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := srv.db.Collection(table).Find(sesh, bsonFilter, opts)
	if err != nil {
		return fmt.Errorf("find many failed: %w", err)
	}

	if err := cursor.All(sesh, result); err != nil {
		return fmt.Errorf("find many decode failed: %w", err)
	}

	return nil
}

func (srv *mongoService) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, srv.timeout)
	defer cancel()

	return srv.client.Ping(pingCtx, readpref.Primary())
}

// Migrate makes sure every collection has the per-user recency index used by
// the list queries.
func (srv *mongoService) Migrate(ctx context.Context) error {
	for _, model := range srv.models {
		index := mongo.IndexModel{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		}

		if _, err := srv.db.Collection(model.TableName()).Indexes().CreateOne(ctx, index); err != nil {
			return fmt.Errorf("create index failed for %s: %w", model.TableName(), err)
		}
	}

	return nil
}

func (srv *mongoService) DropAll(ctx context.Context) error {
	for _, model := range srv.models {
		if err := srv.db.Collection(model.TableName()).Drop(ctx); err != nil {
			return fmt.Errorf("drop all failed: %w", err)
		}
	}

	return nil
}

func (srv *mongoService) Close(ctx context.Context) error {
	return srv.client.Disconnect(ctx)
}

func (srv *mongoService) getSession(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, srv.timeout)
}

// toBSONFilter maps a Filter onto a Mongo query, translating "id" into an
// ObjectID match on _id.
func toBSONFilter(filter Filter) (bson.M, error) {
	out := bson.M{}

	for key, value := range filter {
		if key != "id" {
			out[key] = value
			continue
		}

		hex, _ := value.(string)

		oid, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, hex)
		}

		out["_id"] = oid
	}

	return out, nil
}

// EncodeMongoURI percent-encodes the username and password of a mongodb:// or
// mongodb+srv:// URI. Already-encoded credentials are left as they are.
func EncodeMongoURI(uri string) string {
	scheme := ""
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(uri, prefix) {
			scheme = prefix
			break
		}
	}

	if scheme == "" {
		return uri
	}

	rest := strings.TrimPrefix(uri, scheme)

	// Credentials end at the last '@' ahead of the query string; option values
	// such as authMechanismProperties may carry their own '@'.
	authority := rest
	if q := strings.Index(rest, "?"); q >= 0 {
		authority = rest[:q]
	}

	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return uri
	}

	creds, host := rest[:at], rest[at+1:]

	user, pass, ok := strings.Cut(creds, ":")
	if !ok {
		return uri
	}

	return scheme + encodeCredential(user) + ":" + encodeCredential(pass) + "@" + host
}

func encodeCredential(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}

	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
