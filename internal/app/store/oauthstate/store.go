// internal/app/store/oauthstate/store.go
package oauthstate

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// State is an OAuth2 state token stored for CSRF protection during the
// Google sign-in round trip.
type State struct {
	State     string    `bson:"state"`
	ReturnURL string    `bson:"return_url,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store manages OAuth2 state tokens in MongoDB.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("oauth_states")}
}

// EnsureIndexes creates the lookup index and the TTL index that expires
// abandoned states.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_oauth_state"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_ttl"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Save stores a state token with the given expiration time.
func (s *Store) Save(ctx context.Context, state, returnURL string, expiresAt time.Time) error {
	st := State{
		State:     state,
		ReturnURL: returnURL,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.c.InsertOne(ctx, st)
	return err
}

// Validate checks that a state token exists and has not expired. A valid
// token is deleted on the way out (one-time use) and its return URL is
// reported.
func (s *Store) Validate(ctx context.Context, state string) (returnURL string, valid bool, err error) {
	var st State
	err = s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&st)

	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return st.ReturnURL, true, nil
}
