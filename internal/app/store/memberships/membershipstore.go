// internal/app/store/memberships/membershipstore.go
package membershipstore

// A membership links one profile to one workspace. The compound unique
// index on (workspace_id, profile_id) makes Add idempotent at the
// database level.

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raaulc/shared-tasks/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateMembership = errors.New("profile is already a member of this workspace")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

// Add creates a membership for (workspaceID, profileID). A second Add for
// the same pair returns ErrDuplicateMembership.
func (s *Store) Add(ctx context.Context, workspaceID primitive.ObjectID, profileID string) (models.Membership, error) {
	m := models.Membership{
		ID:          primitive.NewObjectID(),
		WorkspaceID: workspaceID,
		ProfileID:   profileID,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.c.InsertOne(ctx, m)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, ErrDuplicateMembership
		}
		return models.Membership{}, err
	}
	return m, nil
}

// Remove deletes the membership for (workspaceID, profileID).
// Returns the number of documents deleted; 0 means the membership did
// not exist, which callers treat as already removed.
func (s *Store) Remove(ctx context.Context, workspaceID primitive.ObjectID, profileID string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"workspace_id": workspaceID, "profile_id": profileID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Exists checks if a membership exists for the given workspace and profile.
func (s *Store) Exists(ctx context.Context, workspaceID primitive.ObjectID, profileID string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"workspace_id": workspaceID, "profile_id": profileID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByProfile returns all memberships for a profile, oldest first.
func (s *Store) ListByProfile(ctx context.Context, profileID string) ([]models.Membership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"profile_id": profileID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListByWorkspace returns all memberships in a workspace, oldest first.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]models.Membership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"workspace_id": workspaceID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// CountByWorkspace returns the number of members in a workspace.
func (s *Store) CountByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"workspace_id": workspaceID})
}

// DeleteByWorkspace removes all memberships for a workspace.
// Returns the number of documents deleted.
func (s *Store) DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates indexes for the memberships collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// One membership per (workspace, profile) pair
		{
			Keys: bson.D{
				{Key: "workspace_id", Value: 1},
				{Key: "profile_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_membership_workspace_profile"),
		},
		// Workspace list for a profile
		{
			Keys:    bson.D{{Key: "profile_id", Value: 1}},
			Options: options.Index().SetName("idx_membership_profile"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
