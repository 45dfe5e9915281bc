package engine

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

// testEnv bundles a running session with its fakes.
type testEnv struct {
	s           *Session
	profiles    *fakeProfiles
	workspaces  *fakeWorkspaces
	memberships *fakeMemberships
	categories  *fakeCategories
	items       *fakeItems
	feed        *fakeFeed
	broadcast   *fakeBroadcast
	invites     *fakeInvites
	prefs       *fakePrefs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		profiles:    newFakeProfiles(),
		workspaces:  newFakeWorkspaces(),
		memberships: newFakeMemberships(),
		categories:  newFakeCategories(),
		items:       newFakeItems(),
		feed:        newFakeFeed(),
		broadcast:   newFakeBroadcast(),
		invites:     &fakeInvites{},
		prefs:       newFakePrefs(),
	}
	env.s = New(Config{
		Profiles:    env.profiles,
		Workspaces:  env.workspaces,
		Memberships: env.memberships,
		Categories:  env.categories,
		Items:       env.items,
		Feed:        env.feed,
		Broadcast:   env.broadcast,
		Invites:     env.invites,
		Prefs:       env.prefs,
		BaseURL:     "https://tasks.example.com",
		Logger:      zap.NewNop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go env.s.Run(ctx)
	return env
}

// newSessionSharing builds a second running session against the same
// fakes, simulating another signed-in device.
func newSessionSharing(t *testing.T, env *testEnv) *Session {
	t.Helper()
	s := New(Config{
		Profiles:    env.profiles,
		Workspaces:  env.workspaces,
		Memberships: env.memberships,
		Categories:  env.categories,
		Items:       env.items,
		Feed:        env.feed,
		Broadcast:   env.broadcast,
		Invites:     env.invites,
		Prefs:       newFakePrefs(),
		BaseURL:     "https://tasks.example.com",
		Logger:      zap.NewNop(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func startSession(t *testing.T, s *Session, id, email, name string) {
	t.Helper()
	if err := s.Start(context.Background(), Identity{ID: id, Email: email, Name: name}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
}

func (env *testEnv) mustStart(t *testing.T, id, email, name string) {
	t.Helper()
	if err := env.s.Start(context.Background(), Identity{ID: id, Email: email, Name: name}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
}

func (env *testEnv) mustCreateWorkspace(t *testing.T, name string) {
	t.Helper()
	if _, err := env.s.CreateWorkspace(context.Background(), name); err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}
}

// waitFor polls cond until it holds or the deadline passes. Used where
// the observed effect crosses the feed forwarder goroutines.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

// settle gives queued feed events time to flow through the mailbox, for
// asserting that something did NOT happen.
func (env *testEnv) settle() {
	time.Sleep(50 * time.Millisecond)
	env.s.Drain()
}
