// internal/app/store/workspaces/workspacestore.go
package workspacestore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raaulc/shared-tasks/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound            = errors.New("workspace not found")
	ErrDuplicateInviteCode = errors.New("a workspace with this invite code already exists")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workspaces")}
}

// Create inserts a new workspace. The caller supplies the invite code;
// on an invite code collision ErrDuplicateInviteCode is returned so the
// caller can regenerate and retry.
func (s *Store) Create(ctx context.Context, ws models.Workspace) (models.Workspace, error) {
	now := time.Now().UTC()
	ws.ID = primitive.NewObjectID()
	ws.NameCI = text.Fold(ws.Name)
	ws.CreatedAt = now
	ws.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, ws)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Workspace{}, ErrDuplicateInviteCode
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// GetByID retrieves a workspace by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error) {
	var ws models.Workspace
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ws)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Workspace{}, ErrNotFound
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// GetByInviteCode retrieves a workspace by its invite code.
func (s *Store) GetByInviteCode(ctx context.Context, code string) (models.Workspace, error) {
	var ws models.Workspace
	err := s.c.FindOne(ctx, bson.M{"invite_code": code}).Decode(&ws)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Workspace{}, ErrNotFound
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// Rename updates the workspace name. The invite code is immutable after
// creation and is never touched here.
func (s *Store) Rename(ctx context.Context, id primitive.ObjectID, name string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a workspace by ID.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindByIDs returns workspaces for the given ids, sorted by creation time.
func (s *Store) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Workspace, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var workspaces []models.Workspace
	if err := cur.All(ctx, &workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

// Count returns the number of workspaces matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// EnsureIndexes creates indexes for the workspaces collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Unique invite code for join links
		{
			Keys:    bson.D{{Key: "invite_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_workspace_invite_code"),
		},
		// Case-insensitive name for sorting
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_workspace_name_ci"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
