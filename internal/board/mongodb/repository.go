// Package mongodb provides a MongoDB-backed task repository.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boardkit/boardpulse/internal/board"
)

// Config controls the Mongo connection for the task repository.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Repository stores one document per task, keyed by task ID with the
// category as a secondary filter field.
type Repository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewRepository connects to Mongo and pings it to ensure the connection is
// alive before returning.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("board.mongo.uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		if derr := client.Disconnect(ctx); derr != nil {
			return nil, fmt.Errorf("ping mongo: %w (disconnect: %v)", err, derr)
		}
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := cfg.Database
	if db == "" {
		db = "boards"
	}
	coll := cfg.Collection
	if coll == "" {
		coll = "tasks"
	}
	return &Repository{
		client:     client,
		collection: client.Database(db).Collection(coll),
	}, nil
}

// Get loads one task or returns board.ErrNotFound.
func (r *Repository) Get(ctx context.Context, category, taskID string) (board.Task, error) {
	filter := bson.M{"_id": taskID, "category": category}
	var task board.Task
	err := r.collection.FindOne(ctx, filter).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return board.Task{}, board.ErrNotFound
	}
	if err != nil {
		return board.Task{}, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

// Put inserts or fully replaces a task document.
func (r *Repository) Put(ctx context.Context, task board.Task) error {
	filter := bson.M{"_id": task.ID, "category": task.Category}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, filter, task, opts); err != nil {
		return fmt.Errorf("replace task: %w", err)
	}
	return nil
}

// Delete removes a task; deleting an absent task returns board.ErrNotFound.
func (r *Repository) Delete(ctx context.Context, category, taskID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": taskID, "category": category})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return board.ErrNotFound
	}
	return nil
}

// List returns all tasks in a category ordered by ID.
func (r *Repository) List(ctx context.Context, category string) ([]board.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"category": category}, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cursor.Close(ctx) //nolint:errcheck // read-only cursor

	var out []board.Task
	for cursor.Next(ctx) {
		var task board.Task
		if err := cursor.Decode(&task); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		out = append(out, task)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// Close disconnects the Mongo client.
func (r *Repository) Close(ctx context.Context) error {
	if err := r.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
