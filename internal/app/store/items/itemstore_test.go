package itemstore_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	itemstore "github.com/raaulc/shared-tasks/internal/app/store/items"
	"github.com/raaulc/shared-tasks/internal/domain/models"
	"github.com/raaulc/shared-tasks/internal/testutil"
)

func strptr(s string) *string { return &s }

func TestStore_Insert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := itemstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	it, err := store.Insert(ctx, models.Item{
		WorkspaceID:  primitive.NewObjectID(),
		Title:        "Buy milk",
		CreatorEmail: "jane@example.com",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if it.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if it.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Insert_KeepsProvidedID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := itemstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := primitive.NewObjectID()
	it, err := store.Insert(ctx, models.Item{
		ID:          id,
		WorkspaceID: primitive.NewObjectID(),
		Title:       "Pre-generated",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if it.ID != id {
		t.Errorf("ID: got %v, want %v", it.ID, id)
	}
}

func TestStore_SetCompleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := itemstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	it, err := store.Insert(ctx, models.Item{WorkspaceID: primitive.NewObjectID(), Title: "x"})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.SetCompleted(ctx, it.ID, true); err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	found, err := store.GetByID(ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !found.Completed {
		t.Error("expected Completed true")
	}

	if err := store.SetCompleted(ctx, primitive.NewObjectID(), true); err != itemstore.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SetTitle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := itemstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	it, err := store.Insert(ctx, models.Item{WorkspaceID: primitive.NewObjectID(), Title: "old"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetTitle(ctx, it.ID, "new"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	found, err := store.GetByID(ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if found.Title != "new" {
		t.Errorf("Title: got %q, want %q", found.Title, "new")
	}
}

func TestStore_SetAssignee(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := itemstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	it, err := store.Insert(ctx, models.Item{WorkspaceID: primitive.NewObjectID(), Title: "x"})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.SetAssignee(ctx, it.ID, strptr("Jane")); err != nil {
		t.Fatalf("SetAssignee failed: %v", err)
	}
	found, err := store.GetByID(ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if found.AssignedTo == nil || *found.AssignedTo != "Jane" {
		t.Errorf("AssignedTo: got %v, want Jane", found.AssignedTo)
	}

	if err := store.SetAssignee(ctx, it.ID, nil); err != nil {
		t.Fatalf("clearing failed: %v", err)
	}
	found, err = store.GetByID(ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if found.AssignedTo != nil {
		t.Errorf("expected nil AssignedTo, got %q", *found.AssignedTo)
	}
}

func TestStore_Delete_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := itemstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	it, err := store.Insert(ctx, models.Item{WorkspaceID: primitive.NewObjectID(), Title: "x"})
	if err != nil {
		t.Fatal(err)
	}

	n, err := store.Delete(ctx, it.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted count: got %d, want 1", n)
	}

	// Losing a delete race is not an error.
	n, err = store.Delete(ctx, it.ID)
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted count: got %d, want 0", n)
	}
}

func TestStore_ListByWorkspace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := itemstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	catID := primitive.NewObjectID()

	first, err := store.Insert(ctx, models.Item{WorkspaceID: wsID, Title: "first"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Insert(ctx, models.Item{WorkspaceID: wsID, CategoryID: &catID, Title: "second"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(ctx, models.Item{WorkspaceID: primitive.NewObjectID(), Title: "other"}); err != nil {
		t.Fatal(err)
	}

	all, err := store.ListByWorkspace(ctx, wsID, nil)
	if err != nil {
		t.Fatalf("ListByWorkspace failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d items, want 2", len(all))
	}
	// Newest first.
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Errorf("order: got [%q, %q], want newest first", all[0].Title, all[1].Title)
	}

	filtered, err := store.ListByWorkspace(ctx, wsID, &catID)
	if err != nil {
		t.Fatalf("filtered ListByWorkspace failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != second.ID {
		t.Errorf("category filter: got %d items", len(filtered))
	}
}

func TestStore_UnassignMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := itemstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	if _, err := store.Insert(ctx, models.Item{WorkspaceID: wsID, Title: "a", AssignedTo: strptr("Jane")}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(ctx, models.Item{WorkspaceID: wsID, Title: "b", AssignedTo: strptr("Jane")}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(ctx, models.Item{WorkspaceID: wsID, Title: "c", AssignedTo: strptr("Bob")}); err != nil {
		t.Fatal(err)
	}

	n, err := store.UnassignMember(ctx, wsID, "Jane")
	if err != nil {
		t.Fatalf("UnassignMember failed: %v", err)
	}
	if n != 2 {
		t.Errorf("modified count: got %d, want 2", n)
	}

	remaining, err := store.ListByWorkspace(ctx, wsID, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range remaining {
		if it.AssignedTo != nil && *it.AssignedTo == "Jane" {
			t.Errorf("item %q still assigned to Jane", it.Title)
		}
	}
}

func TestStore_ClearCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := itemstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wsID := primitive.NewObjectID()
	catID := primitive.NewObjectID()
	it, err := store.Insert(ctx, models.Item{WorkspaceID: wsID, CategoryID: &catID, Title: "x"})
	if err != nil {
		t.Fatal(err)
	}

	n, err := store.ClearCategory(ctx, catID)
	if err != nil {
		t.Fatalf("ClearCategory failed: %v", err)
	}
	if n != 1 {
		t.Errorf("modified count: got %d, want 1", n)
	}

	found, err := store.GetByID(ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if found.CategoryID != nil {
		t.Errorf("expected nil CategoryID, got %v", *found.CategoryID)
	}
}
