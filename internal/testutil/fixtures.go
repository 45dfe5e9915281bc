package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/raaulc/shared-tasks/internal/app/system/invitecode"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateProfile inserts a profile with the given id and email.
func (f *Fixtures) CreateProfile(ctx context.Context, id, email, fullName string) models.Profile {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Profile{
		ID:        id,
		Email:     email,
		FullName:  fullName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// CreateWorkspace inserts a workspace with a fresh invite code.
func (f *Fixtures) CreateWorkspace(ctx context.Context, name string) models.Workspace {
	f.t.Helper()

	code, err := invitecode.New()
	if err != nil {
		f.t.Fatalf("failed to generate invite code: %v", err)
	}
	now := time.Now().UTC()
	ws := models.Workspace{
		ID:         primitive.NewObjectID(),
		Name:       name,
		NameCI:     text.Fold(name),
		InviteCode: code,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("workspaces").InsertOne(ctx, ws); err != nil {
		f.t.Fatalf("failed to create test workspace: %v", err)
	}
	return ws
}

// CreateMembership links a profile to a workspace.
func (f *Fixtures) CreateMembership(ctx context.Context, workspaceID primitive.ObjectID, profileID string) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:          primitive.NewObjectID(),
		WorkspaceID: workspaceID,
		ProfileID:   profileID,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.db.Collection("memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreateCategory inserts a category in the workspace.
func (f *Fixtures) CreateCategory(ctx context.Context, workspaceID primitive.ObjectID, name string) models.Category {
	f.t.Helper()

	c := models.Category{
		ID:          primitive.NewObjectID(),
		WorkspaceID: workspaceID,
		Name:        name,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.db.Collection("categories").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test category: %v", err)
	}
	return c
}

// CreateItem inserts an item in the workspace. categoryID and assignedTo
// may be nil.
func (f *Fixtures) CreateItem(ctx context.Context, workspaceID primitive.ObjectID, categoryID *primitive.ObjectID, title string, assignedTo *string) models.Item {
	f.t.Helper()

	it := models.Item{
		ID:           primitive.NewObjectID(),
		WorkspaceID:  workspaceID,
		CategoryID:   categoryID,
		Title:        title,
		AssignedTo:   assignedTo,
		CreatorEmail: "fixture@test.com",
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := f.db.Collection("items").InsertOne(ctx, it); err != nil {
		f.t.Fatalf("failed to create test item: %v", err)
	}
	return it
}
