package engine

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// Op is the kind of change a feed event carries.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Table names the watched collection an event belongs to.
type Table string

const (
	TableCategories Table = "categories"
	TableItems      Table = "items"
)

// Event is the canonical change-feed event shape. Insert and update
// events carry the full entity; delete events carry only the id, and the
// workspace id may be zero because delete payloads do not always include
// the document.
type Event struct {
	Op    Op
	Table Table

	// Exactly one of these is set for insert/update, matching Table.
	Category *models.Category
	Item     *models.Item

	// Set for delete events.
	DeletedID primitive.ObjectID

	// Workspace the event belongs to when known.
	WorkspaceID primitive.ObjectID
}
