// internal/app/store/items/itemstore.go
package itemstore

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

var ErrNotFound = errors.New("item not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("items")}
}

// Insert adds a new item. ID and CreatedAt are assigned when zero so
// callers that pre-generate ids for optimistic display keep them.
func (s *Store) Insert(ctx context.Context, it models.Item) (models.Item, error) {
	if it.ID.IsZero() {
		it.ID = primitive.NewObjectID()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, it); err != nil {
		return models.Item{}, err
	}
	return it, nil
}

// GetByID retrieves an item by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Item, error) {
	var it models.Item
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&it)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Item{}, ErrNotFound
		}
		return models.Item{}, err
	}
	return it, nil
}

// SetCompleted updates the completion flag.
func (s *Store) SetCompleted(ctx context.Context, id primitive.ObjectID, completed bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"completed": completed}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTitle updates the item title.
func (s *Store) SetTitle(ctx context.Context, id primitive.ObjectID, title string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"title": title}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAssignee updates the assignee display value. A nil value clears the
// assignment.
func (s *Store) SetAssignee(ctx context.Context, id primitive.ObjectID, assignedTo *string) error {
	var update bson.M
	if assignedTo == nil {
		update = bson.M{"$unset": bson.M{"assigned_to": ""}}
	} else {
		update = bson.M{"$set": bson.M{"assigned_to": *assignedTo}}
	}
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an item by ID. A zero deleted count is not an error;
// concurrent deleters race and the loser sees nothing to delete.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByWorkspace returns the workspace's items, newest first. A non-nil
// categoryID narrows the list to that category.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID, categoryID *primitive.ObjectID) ([]models.Item, error) {
	filter := bson.M{"workspace_id": workspaceID}
	if categoryID != nil {
		filter["category_id"] = *categoryID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []models.Item
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UnassignMember clears the assignee on every item in the workspace that
// is assigned to the given display value. Returns the number modified.
func (s *Store) UnassignMember(ctx context.Context, workspaceID primitive.ObjectID, assignedTo string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"workspace_id": workspaceID, "assigned_to": assignedTo},
		bson.M{"$unset": bson.M{"assigned_to": ""}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ClearCategory detaches every item in the category, moving them back to
// the uncategorized view. Returns the number modified.
func (s *Store) ClearCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"category_id": categoryID},
		bson.M{"$unset": bson.M{"category_id": ""}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteByWorkspace removes all items for a workspace.
// Returns the number of documents deleted.
func (s *Store) DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates indexes for the items collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "workspace_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_item_workspace_created"),
		},
		{
			Keys:    bson.D{{Key: "category_id", Value: 1}},
			Options: options.Index().SetName("idx_item_category"),
		},
		{
			Keys: bson.D{
				{Key: "workspace_id", Value: 1},
				{Key: "assigned_to", Value: 1},
			},
			Options: options.Index().SetName("idx_item_workspace_assignee"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
