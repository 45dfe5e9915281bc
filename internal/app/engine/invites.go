package engine

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	membershipstore "github.com/raaulc/shared-tasks/internal/app/store/memberships"
	"github.com/raaulc/shared-tasks/internal/app/system/invitecode"
	workspacestore "github.com/raaulc/shared-tasks/internal/app/store/workspaces"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// InviteLink returns the join link for the active workspace. Purely
// derived from the configured base address and the invite code.
func (s *Session) InviteLink() (string, error) {
	var (
		link  string
		opErr error
	)
	if err := s.do(func() {
		if s.state.workspace == nil {
			opErr = ErrNoActiveWorkspace
			return
		}
		link = invitecode.Link(s.cfg.BaseURL, s.state.workspace.InviteCode)
	}); err != nil {
		return "", err
	}
	return link, opErr
}

// RedeemInvite joins the caller to the workspace the code maps to and
// makes it active. Redemption is idempotent: redeeming a code for a
// workspace the caller already belongs to adds nothing and still
// activates that workspace. Extraction tolerates plain codes, full URLs,
// and bare query strings.
func (s *Session) RedeemInvite(ctx context.Context, rawInput string) (models.Workspace, error) {
	var (
		ws    models.Workspace
		opErr error
	)
	if err := s.do(func() { ws, opErr = s.redeemInviteLocked(ctx, rawInput) }); err != nil {
		return models.Workspace{}, err
	}
	return ws, opErr
}

func (s *Session) redeemInviteLocked(ctx context.Context, rawInput string) (models.Workspace, error) {
	if s.state.profile == nil {
		return models.Workspace{}, ErrNotAuthenticated
	}

	code := invitecode.Extract(rawInput)
	if code == "" {
		return models.Workspace{}, ErrInvalidInviteCode
	}

	ws, err := s.cfg.Workspaces.GetByInviteCode(ctx, code)
	if errors.Is(err, workspacestore.ErrNotFound) {
		return models.Workspace{}, ErrInvalidInviteCode
	}
	if err != nil {
		return models.Workspace{}, &RemoteWriteError{Op: "redeem invite", Err: err}
	}

	if _, err := s.cfg.Memberships.Add(ctx, ws.ID, s.state.profile.ID); err != nil &&
		!errors.Is(err, membershipstore.ErrDuplicateMembership) {
		return models.Workspace{}, &RemoteWriteError{Op: "redeem invite", Err: err}
	}

	if err := s.cfg.Profiles.SetActiveWorkspace(ctx, s.state.profile.ID, &ws.ID); err != nil {
		return models.Workspace{}, &RemoteWriteError{Op: "activate workspace", Err: err}
	}
	s.state.profile.ActiveWorkspaceID = &ws.ID
	if !s.knownContains(ws.ID) {
		s.state.known = append(s.state.known, ws)
	}

	s.teardownLocked()
	if err := s.loadWorkspaceLocked(ctx, ws.ID); err != nil {
		s.teardownLocked()
		return ws, &RemoteWriteError{Op: "load workspace", Err: err}
	}
	return ws, nil
}

func (s *Session) knownContains(id primitive.ObjectID) bool {
	for _, ws := range s.state.known {
		if ws.ID == id {
			return true
		}
	}
	return false
}

// SendInviteEmail validates the recipient, confirms the caller holds a
// membership in the active workspace, and delegates to the mail
// collaborator. Never retried automatically; a failure surfaces for
// manual retry.
func (s *Session) SendInviteEmail(ctx context.Context, recipient string) error {
	recipient = strings.TrimSpace(recipient)
	if _, err := mail.ParseAddress(recipient); err != nil {
		return &ValidationError{Field: "email", Msg: "invalid email address"}
	}

	var (
		link   string
		wsName string
		opErr  error
	)
	if err := s.do(func() {
		if s.state.profile == nil {
			opErr = ErrNotAuthenticated
			return
		}
		if s.state.workspace == nil {
			opErr = ErrNoActiveWorkspace
			return
		}
		ok, err := s.cfg.Memberships.Exists(ctx, s.state.workspace.ID, s.state.profile.ID)
		if err != nil {
			opErr = &RemoteWriteError{Op: "send invite", Err: err}
			return
		}
		if !ok {
			opErr = &ValidationError{Field: "workspace", Msg: "not a member"}
			return
		}
		link = invitecode.Link(s.cfg.BaseURL, s.state.workspace.InviteCode)
		wsName = s.state.workspace.Name
	}); err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}

	if s.cfg.Invites == nil {
		return &ValidationError{Field: "mail", Msg: "mail delivery is not configured"}
	}
	// Delivery runs off the loop so a slow SMTP exchange cannot stall
	// feed processing.
	if err := s.cfg.Invites.SendInvite(recipient, link, wsName); err != nil {
		return &RemoteWriteError{Op: "send invite", Err: err}
	}
	return nil
}
