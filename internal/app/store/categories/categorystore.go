// internal/app/store/categories/categorystore.go
package categorystore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raaulc/shared-tasks/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("category not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("categories")}
}

// Insert adds a new category. ID and CreatedAt are assigned when zero so
// callers that pre-generate ids for optimistic display keep them.
func (s *Store) Insert(ctx context.Context, c models.Category) (models.Category, error) {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Category{}, err
	}
	return c, nil
}

// GetByID retrieves a category by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Category, error) {
	var c models.Category
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Category{}, ErrNotFound
		}
		return models.Category{}, err
	}
	return c, nil
}

// Delete removes a category by ID.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByWorkspace returns the workspace's categories, newest first.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"workspace_id": workspaceID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var categories []models.Category
	if err := cur.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// DeleteByWorkspace removes all categories for a workspace.
// Returns the number of documents deleted.
func (s *Store) DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates indexes for the categories collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "workspace_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_category_workspace_created"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
