package feed_test

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/raaulc/shared-tasks/internal/app/feed"
)

func TestBroadcast_FanOut(t *testing.T) {
	b := feed.NewBroadcast(zap.NewNop())
	wsID := primitive.NewObjectID()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch1 := b.Subscribe(ctx, wsID)
	ch2 := b.Subscribe(ctx, wsID)
	other := b.Subscribe(ctx, primitive.NewObjectID())

	itemID := primitive.NewObjectID()
	b.Publish(wsID, itemID)

	for i, ch := range []<-chan primitive.ObjectID{ch1, ch2} {
		select {
		case got := <-ch:
			if got != itemID {
				t.Errorf("subscriber %d: got %v, want %v", i, got, itemID)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: no delivery", i)
		}
	}

	select {
	case got := <-other:
		t.Errorf("foreign workspace received %v", got)
	default:
	}
}

func TestBroadcast_SubscriptionClosesOnCancel(t *testing.T) {
	b := feed.NewBroadcast(zap.NewNop())
	wsID := primitive.NewObjectID()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx, wsID)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel, got a value")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after teardown reaches nobody and must not panic.
	b.Publish(wsID, primitive.NewObjectID())
}

func TestBroadcast_FullSubscriberDoesNotBlock(t *testing.T) {
	b := feed.NewBroadcast(zap.NewNop())
	wsID := primitive.NewObjectID()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Subscribe(ctx, wsID) // never read

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.Publish(wsID, primitive.NewObjectID())
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
