// internal/domain/models/item.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is a single checklist entry ("task") inside one workspace.
//
// AssignedTo is a denormalized display value (a member's resolved display
// name), not a profile reference. Nil means unassigned. If CategoryID is set,
// the category must belong to the same workspace.
type Item struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID  `bson:"workspace_id" json:"workspace_id"`
	CategoryID  *primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`

	Title     string  `bson:"title" json:"title"`
	Completed bool    `bson:"completed" json:"completed"`
	AssignedTo *string `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`

	// CreatorEmail records who added the item (lowercased email).
	CreatorEmail string `bson:"creator_email" json:"creator_email"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
