// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/raaulc/shared-tasks/internal/app/features/join"
	membershipstore "github.com/raaulc/shared-tasks/internal/app/store/memberships"
	"github.com/raaulc/shared-tasks/internal/app/store/oauthstate"
	profilestore "github.com/raaulc/shared-tasks/internal/app/store/profiles"
	workspacestore "github.com/raaulc/shared-tasks/internal/app/store/workspaces"
	"github.com/raaulc/shared-tasks/internal/app/system/auth"
	"github.com/raaulc/shared-tasks/internal/app/system/normalize"
	"github.com/raaulc/shared-tasks/internal/app/system/timeouts"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// Handler handles Google OAuth authentication. Google is the only
// credential in the system; a first successful callback creates the
// profile record.
type Handler struct {
	Profiles    *profilestore.Store
	Workspaces  *workspacestore.Store
	Memberships *membershipstore.Store
	StateStore  *oauthstate.Store
	SessionMgr  *auth.SessionManager
	Log         *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. "https://tasks.example.com/auth/google/callback"
}

func NewHandler(
	ps *profilestore.Store,
	ws *workspacestore.Store,
	ms *membershipstore.Store,
	states *oauthstate.Store,
	sm *auth.SessionManager,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Profiles:     ps,
		Workspaces:   ws,
		Memberships:  ms,
		StateStore:   states,
		SessionMgr:   sm,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

// ServeLogin handles GET /auth/google: generates a CSRF state, persists
// it, and redirects to Google's consent screen.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}

	returnURL := r.URL.Query().Get("return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	if err := h.StateStore.Save(ctx, state, returnURL, expiresAt); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}

	url := h.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// ServeCallback handles GET /auth/google/callback: validates the state,
// exchanges the code, resolves (or creates) the profile, signs the
// session in, and replays a pending invite code if one was stashed
// before sign-in.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		http.Redirect(w, r, "/?error=google_denied", http.StatusSeeOther)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		http.Redirect(w, r, "/?error=invalid_state", http.StatusSeeOther)
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	returnURL, valid, err := h.StateStore.Validate(ctxTimeout, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		http.Redirect(w, r, "/?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		http.Redirect(w, r, "/?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Redirect(w, r, "/?error=token_exchange", http.StatusSeeOther)
		return
	}

	googleUser, err := fetchGoogleUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		http.Redirect(w, r, "/?error=user_info", http.StatusSeeOther)
		return
	}

	profile, err := h.resolveProfile(ctxTimeout, googleUser)
	if err != nil {
		h.Log.Error("profile resolution failed",
			zap.String("google_id", googleUser.ID),
			zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:    profile.ID,
		Email: profile.Email,
		Name:  profile.FullName,
	}); err != nil {
		h.Log.Error("sign-in failed", zap.String("profile_id", profile.ID), zap.Error(err))
		http.Redirect(w, r, "/?error=session", http.StatusSeeOther)
		return
	}

	h.Log.Info("signed in via Google",
		zap.String("profile_id", profile.ID),
		zap.String("email", profile.Email))

	// Replay a deferred invite redemption from before sign-in.
	if stashed, err := h.SessionMgr.PopInviteCode(w, r); err == nil && stashed != "" {
		if err := join.Redeem(ctxTimeout, h.Workspaces, h.Memberships, h.Profiles, profile.ID, stashed); err != nil {
			h.Log.Warn("deferred invite redemption failed",
				zap.String("profile_id", profile.ID),
				zap.Error(err))
			http.Redirect(w, r, "/?error=invalid_invite", http.StatusSeeOther)
			return
		}
	}

	dest := "/"
	if returnURL != "" && returnURL[0] == '/' {
		dest = returnURL
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// resolveProfile maps a Google identity to a profile record, creating it
// on first sight and backfilling a missing name on later sign-ins. The
// profile id is the provider-scoped subject, so a Google account always
// resolves to the same record.
func (h *Handler) resolveProfile(ctx context.Context, info *googleUserInfo) (models.Profile, error) {
	id := "google|" + info.ID
	email := normalize.Email(info.Email)
	name := normalize.Name(info.Name)

	profile, err := h.Profiles.Get(ctx, id)
	if err == nil {
		if profile.FullName == "" && name != "" {
			if err := h.Profiles.SetFullName(ctx, id, name); err != nil {
				h.Log.Warn("name backfill failed", zap.String("profile_id", id), zap.Error(err))
			} else {
				profile.FullName = name
			}
		}
		return profile, nil
	}
	if err != profilestore.ErrNotFound {
		return models.Profile{}, err
	}

	if name == "" {
		name = normalize.DisplayNameFromEmail(email)
	}
	created, err := h.Profiles.Create(ctx, models.Profile{
		ID:       id,
		Email:    email,
		FullName: name,
	})
	if err == profilestore.ErrDuplicateProfile {
		// Lost a race with another device; the record exists now.
		return h.Profiles.Get(ctx, id)
	}
	return created, err
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// fetchGoogleUserInfo retrieves user information from Google's userinfo endpoint.
func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
