package engine

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/raaulc/shared-tasks/internal/app/system/htmlsanitize"
	"github.com/raaulc/shared-tasks/internal/app/system/invitecode"
	membershipstore "github.com/raaulc/shared-tasks/internal/app/store/memberships"
	workspacestore "github.com/raaulc/shared-tasks/internal/app/store/workspaces"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// maxInviteCodeAttempts bounds invite code regeneration when creation
// collides with an existing code. Collisions are vanishingly rare; the
// bound exists so a broken random source cannot loop forever.
const maxInviteCodeAttempts = 5

// CreateWorkspace creates a workspace, adds the caller as its first
// member, and makes it the caller's active workspace, in that order. A
// failure partway leaves the active-workspace pointer untouched so a
// retry starts clean rather than pointing at a half-created workspace.
func (s *Session) CreateWorkspace(ctx context.Context, name string) (models.Workspace, error) {
	var (
		ws    models.Workspace
		opErr error
	)
	if err := s.do(func() { ws, opErr = s.createWorkspaceLocked(ctx, name) }); err != nil {
		return models.Workspace{}, err
	}
	return ws, opErr
}

func (s *Session) createWorkspaceLocked(ctx context.Context, name string) (models.Workspace, error) {
	if s.state.profile == nil {
		return models.Workspace{}, ErrNotAuthenticated
	}
	name = htmlsanitize.Strip(name)
	if name == "" {
		name = s.cfg.DefaultWorkspaceName
	}

	var (
		ws  models.Workspace
		err error
	)
	for attempt := 0; attempt < maxInviteCodeAttempts; attempt++ {
		var code string
		code, err = invitecode.New()
		if err != nil {
			return models.Workspace{}, &RemoteWriteError{Op: "create workspace", Err: err}
		}
		ws, err = s.cfg.Workspaces.Create(ctx, models.Workspace{Name: name, InviteCode: code})
		if errors.Is(err, workspacestore.ErrDuplicateInviteCode) {
			continue
		}
		break
	}
	if err != nil {
		return models.Workspace{}, &RemoteWriteError{Op: "create workspace", Err: err}
	}

	if _, err := s.cfg.Memberships.Add(ctx, ws.ID, s.state.profile.ID); err != nil &&
		!errors.Is(err, membershipstore.ErrDuplicateMembership) {
		return models.Workspace{}, &RemoteWriteError{Op: "create membership", Err: err}
	}

	if err := s.cfg.Profiles.SetActiveWorkspace(ctx, s.state.profile.ID, &ws.ID); err != nil {
		return models.Workspace{}, &RemoteWriteError{Op: "activate workspace", Err: err}
	}
	s.state.profile.ActiveWorkspaceID = &ws.ID
	s.state.known = append(s.state.known, ws)

	s.teardownLocked()
	if err := s.loadWorkspaceLocked(ctx, ws.ID); err != nil {
		s.teardownLocked()
		return ws, &RemoteWriteError{Op: "load workspace", Err: err}
	}
	return ws, nil
}

// SwitchWorkspace makes the given workspace active. The previous
// workspace's subscriptions and caches are torn down before any of the
// new workspace's data loads; the transition is never a diff.
func (s *Session) SwitchWorkspace(ctx context.Context, id primitive.ObjectID) error {
	var opErr error
	if err := s.do(func() { opErr = s.switchWorkspaceLocked(ctx, id) }); err != nil {
		return err
	}
	return opErr
}

func (s *Session) switchWorkspaceLocked(ctx context.Context, id primitive.ObjectID) error {
	if s.state.profile == nil {
		return ErrNotAuthenticated
	}
	if s.state.workspace != nil && s.state.workspace.ID == id {
		return nil
	}

	ok, err := s.cfg.Memberships.Exists(ctx, id, s.state.profile.ID)
	if err != nil {
		return &RemoteWriteError{Op: "switch workspace", Err: err}
	}
	if !ok {
		return &ValidationError{Field: "workspace", Msg: "not a member"}
	}

	s.teardownLocked()

	if err := s.cfg.Profiles.SetActiveWorkspace(ctx, s.state.profile.ID, &id); err != nil {
		return &RemoteWriteError{Op: "switch workspace", Err: err}
	}
	s.state.profile.ActiveWorkspaceID = &id

	if err := s.loadWorkspaceLocked(ctx, id); err != nil {
		s.teardownLocked()
		return &RemoteWriteError{Op: "load workspace", Err: err}
	}
	return nil
}

// RemoveMembership removes a member from a workspace. The membership
// delete is the primary step; reassigning the member's active workspace
// and unassigning their items are best-effort secondary steps reported as
// PartialFailure so the caller knows the member is out even when a
// derived effect is stale.
func (s *Session) RemoveMembership(ctx context.Context, profileID string, workspaceID primitive.ObjectID) error {
	var opErr error
	if err := s.do(func() { opErr = s.removeMembershipLocked(ctx, profileID, workspaceID) }); err != nil {
		return err
	}
	return opErr
}

func (s *Session) removeMembershipLocked(ctx context.Context, profileID string, workspaceID primitive.ObjectID) error {
	if s.state.profile == nil {
		return ErrNotAuthenticated
	}

	if _, err := s.cfg.Memberships.Remove(ctx, workspaceID, profileID); err != nil {
		return &RemoteWriteError{Op: "remove membership", Err: err}
	}

	var partial *PartialFailure

	// Reassign the removed member's active workspace if it pointed here.
	removed, err := s.cfg.Profiles.Get(ctx, profileID)
	if err != nil {
		partial = &PartialFailure{Primary: "member removal", Cleanup: "active workspace reassignment", Err: err}
	} else if removed.ActiveWorkspaceID != nil && *removed.ActiveWorkspaceID == workspaceID {
		next, err := s.nextWorkspaceFor(ctx, profileID)
		if err != nil {
			partial = &PartialFailure{Primary: "member removal", Cleanup: "active workspace reassignment", Err: err}
		} else if err := s.cfg.Profiles.SetActiveWorkspace(ctx, profileID, next); err != nil {
			partial = &PartialFailure{Primary: "member removal", Cleanup: "active workspace reassignment", Err: err}
		} else if profileID == s.state.profile.ID {
			s.state.profile.ActiveWorkspaceID = next
		}
	}

	// Unassign the member's items. Failure degrades to stale assignments.
	if err == nil {
		value := AssigneeValue(removed)
		if _, uerr := s.cfg.Items.UnassignMember(ctx, workspaceID, value); uerr != nil {
			s.log.Warn("unassign removed member failed",
				zap.String("profile_id", profileID),
				zap.Error(uerr))
			if partial == nil {
				partial = &PartialFailure{Primary: "member removal", Cleanup: "item unassignment", Err: uerr}
			}
		}
	}

	if profileID == s.state.profile.ID {
		s.dropKnownLocked(workspaceID)
		if s.state.workspace != nil && s.state.workspace.ID == workspaceID {
			s.teardownLocked()
			if s.state.profile.ActiveWorkspaceID != nil {
				if err := s.loadWorkspaceLocked(ctx, *s.state.profile.ActiveWorkspaceID); err != nil {
					s.teardownLocked()
					s.notify(err)
				}
			}
		}
	} else if s.state.workspace != nil && s.state.workspace.ID == workspaceID {
		if err := s.refreshMembersLocked(ctx); err != nil {
			s.notify(err)
		}
	}

	if partial != nil {
		return partial
	}
	return nil
}

// Leave removes the caller's own membership in the active workspace.
func (s *Session) Leave(ctx context.Context) error {
	var (
		profileID   string
		workspaceID primitive.ObjectID
	)
	if err := s.do(func() {
		if s.state.profile != nil {
			profileID = s.state.profile.ID
		}
		if s.state.workspace != nil {
			workspaceID = s.state.workspace.ID
		}
	}); err != nil {
		return err
	}
	if profileID == "" {
		return ErrNotAuthenticated
	}
	if workspaceID.IsZero() {
		return ErrNoActiveWorkspace
	}
	return s.RemoveMembership(ctx, profileID, workspaceID)
}

// nextWorkspaceFor picks the remaining workspace a removed member falls
// back to, or nil when none remain.
func (s *Session) nextWorkspaceFor(ctx context.Context, profileID string) (*primitive.ObjectID, error) {
	ms, err := s.cfg.Memberships.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, nil
	}
	id := ms[0].WorkspaceID
	return &id, nil
}

func (s *Session) dropKnownLocked(id primitive.ObjectID) {
	for i := range s.state.known {
		if s.state.known[i].ID == id {
			s.state.known = append(s.state.known[:i], s.state.known[i+1:]...)
			return
		}
	}
}
