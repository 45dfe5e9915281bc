// internal/app/store/profiles/profilestore.go
package profilestore

// Terminology: Profile Identifiers
//   - ProfileID / profileID / profile_id: The auth provider subject string,
//     stored as the Mongo _id. Profiles never use ObjectIDs.

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

var (
	ErrNotFound         = errors.New("profile not found")
	ErrDuplicateProfile = errors.New("a profile with this id already exists")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// Create inserts a new profile. The caller supplies the ID (auth subject).
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, p)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Profile{}, ErrDuplicateProfile
		}
		return models.Profile{}, err
	}
	return p, nil
}

// Get retrieves a profile by its ID.
func (s *Store) Get(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, err
	}
	return p, nil
}

// SetFullName updates the display name. Used to backfill profiles created
// before the name was known.
func (s *Store) SetFullName(ctx context.Context, id, fullName string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"full_name":  fullName,
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

// SetActiveWorkspace records which workspace the profile last selected.
// A nil id clears the selection.
func (s *Store) SetActiveWorkspace(ctx context.Context, id string, workspaceID *primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if workspaceID == nil {
		update["$unset"] = bson.M{"active_workspace_id": ""}
	} else {
		update["$set"].(bson.M)["active_workspace_id"] = *workspaceID
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

// SetColor assigns or clears the profile's member color.
func (s *Store) SetColor(ctx context.Context, id string, color *string) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if color == nil {
		update["$unset"] = bson.M{"color": ""}
	} else {
		update["$set"].(bson.M)["color"] = *color
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

// FindByIDs returns the profiles for the given ids. Missing ids are
// silently omitted; callers compare lengths when they care.
func (s *Store) FindByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var profiles []models.Profile
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Delete removes a profile by ID.
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates indexes for the profiles collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Email lookup for assignee resolution
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_profile_email"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
