package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ceiba/internal/domain"
)

// Mongo implements domain.CollectionStore on a MongoDB database, one Mongo
// collection per store collection.
type Mongo struct {
	db *mongo.Database
}

// NewMongo wraps an open database handle.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

var _ domain.CollectionStore = (*Mongo)(nil)

// FindOne fetches the first document matching filter.
func (m *Mongo) FindOne(ctx context.Context, collection string, filter domain.Filter) (domain.Document, error) {
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, toBSON(filter)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	return fromBSONDocument(raw), nil
}

// Find fetches the documents matching filter ordered by _id.
func (m *Mongo) Find(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: domain.IDField, Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.db.Collection(collection).Find(ctx, toBSON(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("read cursor of %s: %w", collection, err)
	}
	out := make([]domain.Document, 0, len(raws))
	for _, raw := range raws {
		out = append(out, fromBSONDocument(raw))
	}
	return out, nil
}

// InsertOne stores doc and returns its _id.
func (m *Mongo) InsertOne(ctx context.Context, collection string, doc domain.Document) (any, error) {
	res, err := m.db.Collection(collection).InsertOne(ctx, toBSON(doc))
	if mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("insert %v into %s: %w", doc[domain.IDField], collection, domain.ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return fromBSON(res.InsertedID), nil
}

// UpdateOne applies $set to the first document matching filter.
func (m *Mongo) UpdateOne(ctx context.Context, collection string, filter domain.Filter, set domain.Document, upsert bool) (domain.UpdateResult, error) {
	fields := bson.M{}
	for k, v := range set {
		if k == domain.IDField {
			continue
		}
		fields[k] = toBSONValue(v)
	}

	if len(fields) == 0 {
		// $set rejects an empty document
		return m.touch(ctx, collection, filter, upsert)
	}

	res, err := m.db.Collection(collection).UpdateOne(ctx, toBSON(filter), bson.M{"$set": fields}, options.Update().SetUpsert(upsert))
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("update in %s: %w", collection, err)
	}
	return domain.UpdateResult{Matched: res.MatchedCount, Upserted: res.UpsertedCount > 0}, nil
}

func (m *Mongo) touch(ctx context.Context, collection string, filter domain.Filter, upsert bool) (domain.UpdateResult, error) {
	_, err := m.FindOne(ctx, collection, filter)
	switch {
	case err == nil:
		return domain.UpdateResult{Matched: 1}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return domain.UpdateResult{}, err
	case !upsert:
		return domain.UpdateResult{}, nil
	}
	doc := domain.Document{}
	for path, v := range filter {
		if !strings.Contains(path, ".") {
			doc[path] = v
		}
	}
	if _, err := m.InsertOne(ctx, collection, doc); err != nil {
		return domain.UpdateResult{}, err
	}
	return domain.UpdateResult{Upserted: true}, nil
}

// Collections lists every collection with its estimated document count.
func (m *Mongo) Collections(ctx context.Context) ([]domain.CollectionInfo, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make([]domain.CollectionInfo, 0, len(names))
	for _, name := range names {
		size, err := m.db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		out = append(out, domain.CollectionInfo{Name: name, Size: size})
	}
	return out, nil
}

// Ping checks the connection to the primary.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}

func toBSON[M ~map[string]any](in M) bson.M {
	out := make(bson.M, len(in))
	for k, v := range in {
		out[k] = toBSONValue(v)
	}
	return out
}

func toBSONValue(v any) any {
	switch t := v.(type) {
	case domain.Document:
		return toBSON(t)
	case map[string]any:
		return toBSON(t)
	case []any:
		out := make(bson.A, len(t))
		for i, val := range t {
			out[i] = toBSONValue(val)
		}
		return out
	}
	return v
}

func fromBSONDocument(raw bson.M) domain.Document {
	doc, _ := fromBSON(raw).(domain.Document)
	return doc
}

// fromBSON converts driver types into the normalized document representation.
func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(domain.Document, len(t))
		for k, val := range t {
			out[k] = fromBSON(val)
		}
		return out
	case bson.D:
		out := make(domain.Document, len(t))
		for _, e := range t {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = fromBSON(val)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	}
	return domain.Normalize(v)
}
