// internal/domain/models/profile.go
package models

// Terminology: Identity
//   - Profile.ID / profileID / _id: the opaque subject the auth provider hands us
//     (stable per authenticated principal). It is a string, not an ObjectID, because
//     we never mint it ourselves.
//   - Email: lowercased, unique across profiles.

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile represents an authenticated principal. It is created lazily the
// first time a credential resolves and is never hard-deleted; removing a
// member only detaches the profile from a workspace.
type Profile struct {
	ID       string `bson:"_id" json:"id"`
	Email    string `bson:"email" json:"email"`
	FullName string `bson:"full_name,omitempty" json:"full_name,omitempty"`

	// ActiveWorkspaceID is the one workspace whose data this profile's
	// clients load and subscribe to. Nil means no workspace selected.
	ActiveWorkspaceID *primitive.ObjectID `bson:"active_workspace_id,omitempty" json:"active_workspace_id,omitempty"`

	// Color is an explicit display color override (hex, e.g. "#8a9a5b").
	// Nil means the palette fallback applies.
	Color *string `bson:"color,omitempty" json:"color,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
