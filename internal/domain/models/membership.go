// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership is the authoritative join between profiles and workspaces.
// Exactly one document per (workspace_id, profile_id); a profile may hold
// memberships in several workspaces but has one active workspace at a time,
// tracked on the Profile.
type Membership struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	ProfileID   string             `bson:"profile_id" json:"profile_id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
