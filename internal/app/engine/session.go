// Package engine is the client-side synchronization and membership
// engine: it resolves the caller's profile, tracks workspace membership,
// applies optimistic mutations to an in-memory view of the active
// workspace, and reconciles that view against the push change feed.
//
// One goroutine (Run) owns all state. Commands, feed events, and remote
// write completions are delivered through a single mailbox and run to
// completion one at a time, so handlers always observe a consistent
// snapshot and no lock guards the collections.
package engine

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/raaulc/shared-tasks/internal/app/system/normalize"
	"github.com/raaulc/shared-tasks/internal/app/system/timeouts"
	profilestore "github.com/raaulc/shared-tasks/internal/app/store/profiles"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

var errSessionStopped = errors.New("session stopped")

// Identity is the authenticated principal handed to Start.
type Identity struct {
	ID    string // auth provider subject, stable
	Email string
	Name  string // display name hint, may be empty
}

// Config carries the session's collaborators.
type Config struct {
	Profiles    ProfileStore
	Workspaces  WorkspaceStore
	Memberships MembershipStore
	Categories  CategoryStore
	Items       ItemStore
	Feed        Feed
	Broadcast   DeleteBroadcast
	Invites     InviteSender
	Prefs       Prefs

	BaseURL              string
	DefaultWorkspaceName string

	Logger *zap.Logger
}

// Session is one client's engine instance. Construct with New, start the
// loop with Run, then call the operation methods from any goroutine.
type Session struct {
	cfg Config
	log *zap.Logger

	mailbox chan func()
	stopped chan struct{}
	once    sync.Once

	// writes tracks spawned remote mutations so Drain can wait for
	// their completions to be posted.
	writes sync.WaitGroup

	// Everything below is owned by the Run goroutine.
	state      sessionState
	epoch      uint64
	feedCancel context.CancelFunc
	tokens     map[primitive.ObjectID]uint64
	nextToken  uint64

	errs chan error
}

func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DefaultWorkspaceName == "" {
		cfg.DefaultWorkspaceName = models.DefaultWorkspaceName
	}
	return &Session{
		cfg:     cfg,
		log:     cfg.Logger,
		mailbox: make(chan func(), 256),
		stopped: make(chan struct{}),
		tokens:  make(map[primitive.ObjectID]uint64),
		errs:    make(chan error, 16),
	}
}

// Run executes the session loop until ctx ends. Call exactly once.
func (s *Session) Run(ctx context.Context) {
	defer s.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.mailbox:
			fn()
		}
	}
}

func (s *Session) shutdown() {
	s.once.Do(func() {
		if s.feedCancel != nil {
			s.feedCancel()
			s.feedCancel = nil
		}
		close(s.stopped)
	})
}

// Errors delivers asynchronous failures (remote write errors after
// rollback, feed problems). Best-effort: full buffer drops, every error
// is also logged.
func (s *Session) Errors() <-chan error {
	return s.errs
}

// Drain blocks until all in-flight remote writes have completed and their
// completions have been applied. Intended for tests and shutdown.
func (s *Session) Drain() {
	s.writes.Wait()
	_ = s.do(func() {})
}

// do runs fn on the session loop and waits for it to finish.
func (s *Session) do(fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case s.mailbox <- wrapped:
	case <-s.stopped:
		return errSessionStopped
	}
	select {
	case <-done:
		return nil
	case <-s.stopped:
		return errSessionStopped
	}
}

// post enqueues fn without waiting. Used by feed forwarders and write
// completions; dropped once the session has stopped.
func (s *Session) post(fn func()) {
	select {
	case s.mailbox <- fn:
	case <-s.stopped:
	}
}

func (s *Session) notify(err error) {
	s.log.Warn("session error", zap.Error(err))
	select {
	case s.errs <- err:
	default:
	}
}

// claimToken marks a new in-flight mutation for the entity. A rollback
// whose token is no longer current belongs to a superseded mutation and
// must be discarded.
func (s *Session) claimToken(id primitive.ObjectID) uint64 {
	s.nextToken++
	s.tokens[id] = s.nextToken
	return s.nextToken
}

func (s *Session) tokenCurrent(id primitive.ObjectID, token uint64) bool {
	return s.tokens[id] == token
}

// spawnWrite issues a remote mutation off the loop. On failure the
// rollback closure is posted back to the loop before the error surfaces.
func (s *Session) spawnWrite(op string, write func(context.Context) error, rollback func()) {
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
		defer cancel()
		if err := write(ctx); err != nil {
			s.post(func() {
				if rollback != nil {
					rollback()
				}
				s.notify(&RemoteWriteError{Op: op, Err: err})
			})
		}
	}()
}

// Snapshot returns a read-only copy of the current state.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	_ = s.do(func() { snap = s.state.snapshot() })
	return snap
}

// Start resolves the identity into a profile and, when the profile has an
// active workspace, loads it and subscribes its feeds. A persistence
// failure during resolution returns ProfileResolutionError and leaves the
// session unauthenticated so the next Start retries cleanly.
func (s *Session) Start(ctx context.Context, ident Identity) error {
	var opErr error
	if err := s.do(func() { opErr = s.startLocked(ctx, ident) }); err != nil {
		return err
	}
	return opErr
}

func (s *Session) startLocked(ctx context.Context, ident Identity) error {
	if ident.ID == "" || ident.Email == "" {
		return ErrNotAuthenticated
	}

	p, err := s.resolveProfileLocked(ctx, ident)
	if err != nil {
		s.state.profile = nil
		return &ProfileResolutionError{Err: err}
	}
	s.state.profile = &p

	if err := s.refreshKnownLocked(ctx); err != nil {
		return &ProfileResolutionError{Err: err}
	}

	if p.ActiveWorkspaceID != nil {
		if err := s.loadWorkspaceLocked(ctx, *p.ActiveWorkspaceID); err != nil {
			// Non-fatal: the session stays usable without a workspace.
			s.teardownLocked()
			s.notify(err)
		}
	}
	return nil
}

// resolveProfileLocked is the one create-or-update write per resolution:
// create on first sight, else backfill a missing display name.
func (s *Session) resolveProfileLocked(ctx context.Context, ident Identity) (models.Profile, error) {
	email := normalize.Email(ident.Email)
	name := normalize.Name(ident.Name)
	if name == "" {
		name = normalize.DisplayNameFromEmail(email)
	}

	p, err := s.cfg.Profiles.Get(ctx, ident.ID)
	if errors.Is(err, profilestore.ErrNotFound) {
		return s.cfg.Profiles.Create(ctx, models.Profile{
			ID:       ident.ID,
			Email:    email,
			FullName: name,
		})
	}
	if err != nil {
		return models.Profile{}, err
	}

	if p.FullName == "" && name != "" {
		if err := s.cfg.Profiles.SetFullName(ctx, p.ID, name); err != nil {
			return models.Profile{}, err
		}
		p.FullName = name
	}
	return p, nil
}

// refreshKnownLocked reloads the profile's workspace list.
func (s *Session) refreshKnownLocked(ctx context.Context) error {
	ms, err := s.cfg.Memberships.ListByProfile(ctx, s.state.profile.ID)
	if err != nil {
		return err
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.WorkspaceID)
	}
	known, err := s.cfg.Workspaces.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	s.state.known = known
	return nil
}

// refreshMembersLocked reloads the active workspace's member list and
// recomputes display values and colors.
func (s *Session) refreshMembersLocked(ctx context.Context) error {
	ms, err := s.cfg.Memberships.ListByWorkspace(ctx, s.state.workspace.ID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ProfileID)
	}
	profiles, err := s.cfg.Profiles.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	s.state.members = BuildMembers(profiles)
	return nil
}

// rebuildMembersLocked recomputes the member list from the profiles
// already in memory, without a remote read.
func (s *Session) rebuildMembersLocked() {
	profiles := make([]models.Profile, 0, len(s.state.members))
	for _, m := range s.state.members {
		profiles = append(profiles, m.Profile)
	}
	s.state.members = BuildMembers(profiles)
}

// teardownLocked cancels the previous workspace's subscriptions, bumps
// the epoch so queued events from it are discarded, and clears the view.
// Always runs before a new workspace's data is loaded.
func (s *Session) teardownLocked() {
	if s.feedCancel != nil {
		s.feedCancel()
		s.feedCancel = nil
	}
	s.epoch++
	s.state.clearWorkspace()
}

// loadWorkspaceLocked performs the fresh load half of a workspace
// transition: workspace row, members, categories, saved category filter,
// items, then feed subscriptions.
func (s *Session) loadWorkspaceLocked(ctx context.Context, id primitive.ObjectID) error {
	ws, err := s.cfg.Workspaces.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.state.workspace = &ws

	if err := s.refreshMembersLocked(ctx); err != nil {
		return err
	}

	cats, err := s.cfg.Categories.ListByWorkspace(ctx, id)
	if err != nil {
		return err
	}
	s.state.categories = cats

	if s.cfg.Prefs != nil {
		if saved := s.cfg.Prefs.LastCategory(id.Hex()); saved != "" {
			if oid, err := primitive.ObjectIDFromHex(saved); err == nil && s.state.categoryIndex(oid) >= 0 {
				s.state.categoryFilter = &oid
			}
		}
	}

	items, err := s.cfg.Items.ListByWorkspace(ctx, id, s.state.categoryFilter)
	if err != nil {
		return err
	}
	s.state.items = items

	s.subscribeLocked(id)
	return nil
}

// subscribeLocked opens one feed subscription per watched table plus the
// advisory delete channel, each forwarded into the mailbox stamped with
// the current epoch.
func (s *Session) subscribeLocked(workspaceID primitive.ObjectID) {
	ctx, cancel := context.WithCancel(context.Background())
	s.feedCancel = cancel
	epoch := s.epoch

	if s.cfg.Feed != nil {
		for _, table := range []Table{TableCategories, TableItems} {
			ch, err := s.cfg.Feed.Subscribe(ctx, workspaceID, table)
			if err != nil {
				s.notify(err)
				continue
			}
			go s.forwardEvents(epoch, ch)
		}
	}
	if s.cfg.Broadcast != nil {
		go s.forwardDeletes(epoch, s.cfg.Broadcast.Subscribe(ctx, workspaceID))
	}
}

func (s *Session) forwardEvents(epoch uint64, ch <-chan Event) {
	for ev := range ch {
		ev := ev
		s.post(func() { s.applyEvent(epoch, ev) })
	}
}

func (s *Session) forwardDeletes(epoch uint64, ch <-chan primitive.ObjectID) {
	for id := range ch {
		id := id
		s.post(func() { s.applyBroadcastDelete(epoch, id) })
	}
}
