// internal/app/feed/changestream.go

// Package feed bridges Mongo change streams to the session engine's event
// channels, plus an in-process advisory broadcast for item deletions.
package feed

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/raaulc/shared-tasks/internal/app/engine"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// ChangeFeed subscribes to per-collection change streams scoped to one
// workspace. Each Subscribe opens its own stream so teardown of one
// workspace view never disturbs another.
type ChangeFeed struct {
	db  *mongo.Database
	log *zap.Logger
}

func NewChangeFeed(db *mongo.Database, logger *zap.Logger) *ChangeFeed {
	return &ChangeFeed{db: db, log: logger}
}

// rawChange is the wire shape of a change stream document, narrowed to
// the fields the engine needs.
type rawChange struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument"`
}

// Subscribe opens a change stream on the collection behind table,
// filtered to the workspace where the payload allows it. Delete events
// carry no document, so they pass the server-side filter unscoped and
// the consumer re-checks the workspace. The returned channel closes when
// ctx ends or the stream dies; the caller resubscribes by reloading the
// workspace.
func (f *ChangeFeed) Subscribe(ctx context.Context, workspaceID primitive.ObjectID, table engine.Table) (<-chan engine.Event, error) {
	coll := f.db.Collection(string(table))

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"$or": bson.A{
				bson.M{"fullDocument.workspace_id": workspaceID},
				bson.M{"operationType": "delete"},
			},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", table, err)
	}

	out := make(chan engine.Event, 64)
	go func() {
		defer close(out)
		defer cs.Close(context.Background())

		for cs.Next(ctx) {
			var raw rawChange
			if err := cs.Decode(&raw); err != nil {
				f.log.Warn("undecodable change event",
					zap.String("table", string(table)),
					zap.Error(err))
				continue
			}
			ev, ok := f.translate(table, raw)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			f.log.Warn("change stream ended",
				zap.String("table", string(table)),
				zap.String("workspace_id", workspaceID.Hex()),
				zap.Error(err))
		}
	}()
	return out, nil
}

func (f *ChangeFeed) translate(table engine.Table, raw rawChange) (engine.Event, bool) {
	switch raw.OperationType {
	case "insert", "update", "replace":
		op := engine.OpInsert
		if raw.OperationType != "insert" {
			op = engine.OpUpdate
		}
		// Update events without a looked-up document cannot be applied;
		// the next full reload reconciles them.
		if len(raw.FullDocument) == 0 {
			f.log.Debug("change event without document, dropped",
				zap.String("table", string(table)),
				zap.String("op", raw.OperationType))
			return engine.Event{}, false
		}
		switch table {
		case engine.TableCategories:
			var c models.Category
			if err := bson.Unmarshal(raw.FullDocument, &c); err != nil {
				f.log.Warn("bad category payload", zap.Error(err))
				return engine.Event{}, false
			}
			return engine.Event{Op: op, Table: table, Category: &c, WorkspaceID: c.WorkspaceID}, true
		case engine.TableItems:
			var it models.Item
			if err := bson.Unmarshal(raw.FullDocument, &it); err != nil {
				f.log.Warn("bad item payload", zap.Error(err))
				return engine.Event{}, false
			}
			return engine.Event{Op: op, Table: table, Item: &it, WorkspaceID: it.WorkspaceID}, true
		}
		return engine.Event{}, false
	case "delete":
		return engine.Event{Op: engine.OpDelete, Table: table, DeletedID: raw.DocumentKey.ID}, true
	default:
		return engine.Event{}, false
	}
}
