// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	categorystore "github.com/raaulc/shared-tasks/internal/app/store/categories"
	itemstore "github.com/raaulc/shared-tasks/internal/app/store/items"
	membershipstore "github.com/raaulc/shared-tasks/internal/app/store/memberships"
	"github.com/raaulc/shared-tasks/internal/app/store/oauthstate"
	profilestore "github.com/raaulc/shared-tasks/internal/app/store/profiles"
	workspacestore "github.com/raaulc/shared-tasks/internal/app/store/workspaces"
	"github.com/raaulc/shared-tasks/internal/app/system/timeouts"
)

// ConnectDB establishes the app's MongoDB connection and returns it
// bundled in DBDeps for the rest of the lifecycle hooks.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, timeouts.Ping())
	defer cancelPing()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates the collection indexes every store relies on:
// unique profile emails, unique invite codes, the compound membership
// key, and the TTL cleanup on OAuth state. Index creation is idempotent,
// so running it on every startup is safe.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	for name, fn := range map[string]func(context.Context) error{
		"profiles":    profilestore.New(db).EnsureIndexes,
		"workspaces":  workspacestore.New(db).EnsureIndexes,
		"memberships": membershipstore.New(db).EnsureIndexes,
		"categories":  categorystore.New(db).EnsureIndexes,
		"items":       itemstore.New(db).EnsureIndexes,
		"oauth_state": oauthstate.New(db).EnsureIndexes,
	} {
		if err := fn(ctx); err != nil {
			logger.Error("index creation failed", zap.String("collection", name), zap.Error(err))
			return fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}

	logger.Info("database indexes ensured")
	return nil
}
