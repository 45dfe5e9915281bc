package engine

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// The session depends on narrow interfaces rather than the concrete Mongo
// stores so the reconciliation logic can be exercised against in-memory
// fakes. The store packages satisfy these as-is.

type ProfileStore interface {
	Get(ctx context.Context, id string) (models.Profile, error)
	Create(ctx context.Context, p models.Profile) (models.Profile, error)
	SetFullName(ctx context.Context, id, fullName string) error
	SetActiveWorkspace(ctx context.Context, id string, workspaceID *primitive.ObjectID) error
	SetColor(ctx context.Context, id string, color *string) error
	FindByIDs(ctx context.Context, ids []string) ([]models.Profile, error)
}

type WorkspaceStore interface {
	Create(ctx context.Context, ws models.Workspace) (models.Workspace, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error)
	GetByInviteCode(ctx context.Context, code string) (models.Workspace, error)
	Rename(ctx context.Context, id primitive.ObjectID, name string) error
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Workspace, error)
}

type MembershipStore interface {
	Add(ctx context.Context, workspaceID primitive.ObjectID, profileID string) (models.Membership, error)
	Remove(ctx context.Context, workspaceID primitive.ObjectID, profileID string) (int64, error)
	Exists(ctx context.Context, workspaceID primitive.ObjectID, profileID string) (bool, error)
	ListByProfile(ctx context.Context, profileID string) ([]models.Membership, error)
	ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]models.Membership, error)
}

type CategoryStore interface {
	Insert(ctx context.Context, c models.Category) (models.Category, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]models.Category, error)
}

type ItemStore interface {
	Insert(ctx context.Context, it models.Item) (models.Item, error)
	SetCompleted(ctx context.Context, id primitive.ObjectID, completed bool) error
	SetTitle(ctx context.Context, id primitive.ObjectID, title string) error
	SetAssignee(ctx context.Context, id primitive.ObjectID, assignedTo *string) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID, categoryID *primitive.ObjectID) ([]models.Item, error)
	UnassignMember(ctx context.Context, workspaceID primitive.ObjectID, assignedTo string) (int64, error)
	ClearCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error)
}

// Feed is the change-feed collaborator. One subscription per
// (workspace, table) pair; the returned channel closes when ctx ends.
// Events arrive in server-commit order within a subscription; no relative
// order is guaranteed across subscriptions.
type Feed interface {
	Subscribe(ctx context.Context, workspaceID primitive.ObjectID, table Table) (<-chan Event, error)
}

// DeleteBroadcast is the advisory fan-out channel for item deletions.
// Purely latency reduction; the primary feed stays the source of truth
// and consumers must treat duplicate removals as no-ops.
type DeleteBroadcast interface {
	Publish(workspaceID, itemID primitive.ObjectID)
	Subscribe(ctx context.Context, workspaceID primitive.ObjectID) <-chan primitive.ObjectID
}

// InviteSender delivers one invite email. Never retried automatically.
type InviteSender interface {
	SendInvite(recipient, inviteLink, workspaceName string) error
}

// Prefs persists the last-selected category per workspace. A UX default
// only, never authoritative.
type Prefs interface {
	LastCategory(workspaceID string) string
	SetLastCategory(workspaceID, categoryID string) error
}
