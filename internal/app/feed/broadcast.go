// internal/app/feed/broadcast.go

package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Broadcast is the in-process advisory fan-out for item deletions. It
// shaves the change-stream round trip for sessions in the same process;
// the primary feed remains the source of truth, so delivery here is
// best-effort and a full channel drops rather than blocks.
type Broadcast struct {
	mu   sync.Mutex
	subs map[string]*broadcastSub
	log  *zap.Logger
}

type broadcastSub struct {
	workspaceID primitive.ObjectID
	ch          chan primitive.ObjectID
}

func NewBroadcast(logger *zap.Logger) *Broadcast {
	return &Broadcast{subs: make(map[string]*broadcastSub), log: logger}
}

// Publish fans an item deletion out to every subscriber of the workspace.
func (b *Broadcast) Publish(workspaceID, itemID primitive.ObjectID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.workspaceID != workspaceID {
			continue
		}
		select {
		case sub.ch <- itemID:
		default:
			b.log.Debug("broadcast subscriber full, delete dropped",
				zap.String("workspace_id", workspaceID.Hex()))
		}
	}
}

// Subscribe registers for delete notices in one workspace. The channel
// closes when ctx ends.
func (b *Broadcast) Subscribe(ctx context.Context, workspaceID primitive.ObjectID) <-chan primitive.ObjectID {
	sub := &broadcastSub{workspaceID: workspaceID, ch: make(chan primitive.ObjectID, 16)}
	key := uuid.NewString()

	b.mu.Lock()
	b.subs[key] = sub
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, key)
		b.mu.Unlock()
		close(sub.ch)
	}()
	return sub.ch
}
