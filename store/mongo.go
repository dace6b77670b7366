package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore backs the DocumentStore contract with a MongoDB database.
// Slash-separated collection paths map to dotted Mongo collection names
// (companies/{id}/currenttrainee -> companies.{id}.currenttrainee).
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and pings it before returning
func NewMongoStore(uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Println("Successfully connected to MongoDB document store.")

	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// Close disconnects the underlying client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) collection(collectionPath string) *mongo.Collection {
	name := strings.ReplaceAll(collectionPath, "/", ".")
	return s.db.Collection(name)
}

// Exists reports whether any document in the collection has field == value
func (s *MongoStore) Exists(ctx context.Context, collectionPath, field string, value interface{}) (bool, error) {
	if err := ValidatePath(collectionPath); err != nil {
		return false, err
	}

	count, err := s.collection(collectionPath).CountDocuments(ctx, bson.M{field: value}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("exists query failed for %s: %w", collectionPath, err)
	}
	return count > 0, nil
}

// GetAll returns every document in the collection
func (s *MongoStore) GetAll(ctx context.Context, collectionPath string) ([]Document, error) {
	if err := ValidatePath(collectionPath); err != nil {
		return nil, err
	}

	cursor, err := s.collection(collectionPath).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collectionPath, err)
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode document from %s: %w", collectionPath, err)
		}
		delete(raw, "_id")
		docs = append(docs, normalizeMap(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error on %s: %w", collectionPath, err)
	}

	return docs, nil
}

// Get returns the document with the given id
func (s *MongoStore) Get(ctx context.Context, collectionPath, id string) (Document, error) {
	if err := ValidatePath(collectionPath); err != nil {
		return nil, err
	}

	var raw bson.M
	err := s.collection(collectionPath).FindOne(ctx, bson.M{"id": id}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collectionPath, id, err)
	}
	delete(raw, "_id")
	return normalizeMap(raw), nil
}

// normalizeMap rewrites decoded bson.M/bson.A values into plain maps and
// slices so callers can type-switch on map[string]interface{} and
// []interface{} without knowing about bson types.
func normalizeMap(raw bson.M) Document {
	out := make(Document, len(raw))
	for k, v := range raw {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		return map[string]interface{}(normalizeMap(val))
	case map[string]interface{}:
		return map[string]interface{}(normalizeMap(bson.M(val)))
	case bson.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(val.T), 0).UTC()
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return v
	}
}

// Put fully overwrites (upserts) the document with the given id
func (s *MongoStore) Put(ctx context.Context, collectionPath, id string, doc Document) error {
	if err := ValidatePath(collectionPath); err != nil {
		return err
	}

	stored := bson.M(doc)
	stored["id"] = id

	_, err := s.collection(collectionPath).ReplaceOne(ctx,
		bson.M{"id": id},
		stored,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", collectionPath, id, err)
	}
	return nil
}

// Patch merges the partial document into the stored one
func (s *MongoStore) Patch(ctx context.Context, collectionPath, id string, partial Document) error {
	if err := ValidatePath(collectionPath); err != nil {
		return err
	}

	res, err := s.collection(collectionPath).UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M(partial)},
	)
	if err != nil {
		return fmt.Errorf("failed to patch %s/%s: %w", collectionPath, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
