// internal/domain/models/category.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is a named grouping of items ("board") inside one workspace.
// Deleting a category never deletes its items; they become uncategorized.
type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	Name        string             `bson:"name" json:"name"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
