// internal/domain/models/workspace.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultWorkspaceName is the placeholder used when a workspace is created
// without a name.
const DefaultWorkspaceName = "Our Home"

// Workspace is the private group whose members share categories and items.
// All shared entities (memberships, categories, items) belong to exactly one
// workspace via their workspace_id field.
type Workspace struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"name_ci"` // Case-insensitive for sorting

	// InviteCode is the opaque join token. Unique across all workspaces and
	// immutable after creation.
	InviteCode string `bson:"invite_code" json:"invite_code"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
