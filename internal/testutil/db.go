package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	categorystore "github.com/raaulc/shared-tasks/internal/app/store/categories"
	itemstore "github.com/raaulc/shared-tasks/internal/app/store/items"
	membershipstore "github.com/raaulc/shared-tasks/internal/app/store/memberships"
	profilestore "github.com/raaulc/shared-tasks/internal/app/store/profiles"
	workspacestore "github.com/raaulc/shared-tasks/internal/app/store/workspaces"
)

// SetupTestDB connects to the test MongoDB instance and returns a fresh
// database for the test. The database is dropped on cleanup. Tests are
// skipped when no Mongo instance is reachable (set MONGO_TEST_URI to
// override the default localhost URI).
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("mongo not reachable at %s: %v", uri, err)
	}

	name := fmt.Sprintf("sharedtasks_test_%s", primitive.NewObjectID().Hex())
	db := client.Database(name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	ensureIndexes(t, db)
	return db
}

// ensureIndexes creates all collection indexes so uniqueness constraints
// hold during tests, matching what EnsureSchema does at startup.
func ensureIndexes(t *testing.T, db *mongo.Database) {
	t.Helper()

	ctx, cancel := TestContext()
	defer cancel()

	for name, fn := range map[string]func(context.Context) error{
		"profiles":    profilestore.New(db).EnsureIndexes,
		"workspaces":  workspacestore.New(db).EnsureIndexes,
		"memberships": membershipstore.New(db).EnsureIndexes,
		"categories":  categorystore.New(db).EnsureIndexes,
		"items":       itemstore.New(db).EnsureIndexes,
	} {
		if err := fn(ctx); err != nil {
			t.Fatalf("ensure %s indexes: %v", name, err)
		}
	}
}

// TestContext returns a context with a timeout suitable for test database
// operations.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
