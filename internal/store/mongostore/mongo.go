// Package mongostore keeps records in one MongoDB collection keyed by kind and id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/dicetable/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const collectionName = "records"

type recordDoc struct {
	Key       string    `bson:"_id"`
	ID        string    `bson:"id"`
	Kind      string    `bson:"kind"`
	RoomID    string    `bson:"roomId"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func docKey(kind store.Kind, id string) string {
	return string(kind) + ":" + id
}

func (d recordDoc) record() store.Record {
	rec := store.Record{
		ID:     d.ID,
		Kind:   store.Kind(d.Kind),
		RoomID: d.RoomID,
		Data:   []byte(d.Data),
	}
	if !d.UpdatedAt.IsZero() {
		rec.UpdatedAt = d.UpdatedAt.UTC()
	}
	return rec
}

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Open connects to uri, pings it and ensures the room index exists.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &Store{client: client, collection: client.Database(database).Collection(collectionName)}
	_, err = s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "kind", Value: 1}, {Key: "roomId", Value: 1}, {Key: "id", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index: %w", err)
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, kind store.Kind, id string) (store.Record, error) {
	var doc recordDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": docKey(kind, id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, err
	}
	return doc.record(), nil
}

func (s *Store) Put(ctx context.Context, rec store.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	doc := recordDoc{
		Key:       docKey(rec.Kind, rec.ID),
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		RoomID:    rec.RoomID,
		Data:      string(rec.Data),
		UpdatedAt: rec.UpdatedAt,
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) Delete(ctx context.Context, kind store.Kind, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": docKey(kind, id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListByRoom(ctx context.Context, kind store.Kind, roomID string) ([]store.Record, error) {
	cur, err := s.collection.Find(ctx,
		bson.M{"kind": string(kind), "roomId": roomID},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []store.Record{}
	for cur.Next(ctx) {
		var doc recordDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.record())
	}
	return out, cur.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
