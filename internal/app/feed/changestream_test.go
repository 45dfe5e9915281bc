package feed_test

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/raaulc/shared-tasks/internal/app/engine"
	"github.com/raaulc/shared-tasks/internal/app/feed"
	itemstore "github.com/raaulc/shared-tasks/internal/app/store/items"
	"github.com/raaulc/shared-tasks/internal/testutil"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// Change streams need a replica set; a standalone test Mongo skips these.

func TestChangeFeed_ItemLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	ws := fx.CreateWorkspace(ctx, "Home")

	cf := feed.NewChangeFeed(db, zap.NewNop())
	events, err := cf.Subscribe(ctx, ws.ID, engine.TableItems)
	if err != nil {
		t.Skipf("change streams unavailable: %v", err)
	}

	items := itemstore.New(db)
	it, err := items.Insert(ctx, models.Item{WorkspaceID: ws.ID, Title: "milk"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	ev := nextEvent(t, events)
	if ev.Op != engine.OpInsert || ev.Item == nil || ev.Item.ID != it.ID {
		t.Fatalf("insert event: got %+v", ev)
	}
	if ev.WorkspaceID != ws.ID {
		t.Errorf("workspace: got %v, want %v", ev.WorkspaceID, ws.ID)
	}

	if err := items.SetCompleted(ctx, it.ID, true); err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	ev = nextEvent(t, events)
	if ev.Op != engine.OpUpdate || ev.Item == nil || !ev.Item.Completed {
		t.Fatalf("update event: got %+v", ev)
	}

	if _, err := items.Delete(ctx, it.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ev = nextEvent(t, events)
	if ev.Op != engine.OpDelete || ev.DeletedID != it.ID {
		t.Fatalf("delete event: got %+v", ev)
	}
}

func TestChangeFeed_OtherWorkspaceFiltered(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	watched := fx.CreateWorkspace(ctx, "Watched")
	other := fx.CreateWorkspace(ctx, "Other")

	cf := feed.NewChangeFeed(db, zap.NewNop())
	events, err := cf.Subscribe(ctx, watched.ID, engine.TableItems)
	if err != nil {
		t.Skipf("change streams unavailable: %v", err)
	}

	items := itemstore.New(db)
	if _, err := items.Insert(ctx, models.Item{WorkspaceID: other.ID, Title: "elsewhere"}); err != nil {
		t.Fatal(err)
	}
	mine, err := items.Insert(ctx, models.Item{WorkspaceID: watched.ID, Title: "here"})
	if err != nil {
		t.Fatal(err)
	}

	// The first event to arrive must already be the watched workspace's.
	ev := nextEvent(t, events)
	if ev.Item == nil || ev.Item.ID != mine.ID {
		t.Fatalf("expected only the watched workspace's insert, got %+v", ev)
	}
}

func nextEvent(t *testing.T, events <-chan engine.Event) engine.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event channel closed")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event before deadline")
		return engine.Event{}
	}
}
