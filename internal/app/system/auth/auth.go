package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey    = "is_authenticated"
	profileIDKey = "profile_id"
	emailKey     = "email"
	nameKey      = "full_name"

	// pendingInviteKey stashes an invite code that arrived on /join before a
	// profile was resolved; it is replayed after sign-in completes.
	pendingInviteKey = "pending_invite_code"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is what we cache in the session & inject into r.Context().
// ID is the opaque identity id (the Profile _id).
type SessionUser struct {
	ID    string
	Email string
	Name  string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser injects a user into the request context for handler tests,
// bypassing the session middleware.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager wraps the cookie session store used by the HTTP surface.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewSessionManager builds a cookie-backed session manager. The `secure`
// flag controls whether cookies are marked Secure and which SameSite mode is
// used: None for cross-site HTTPS in production, Lax for local dev.
func NewSessionManager(sessionKey, sessionName, domain string, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	return &SessionManager{store: store, name: sessionName, log: logger}, nil
}

// GetSession returns the request's session, or a fresh one if the cookie is
// missing or fails to decode. Decode failures (rotated keys, tampering) are
// tolerated: the caller still gets a usable session.
func (m *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
			m.log.Warn("session cookie invalid, using fresh session", zap.Error(err))
			return sess, nil
		}
		return sess, err
	}
	return sess, nil
}

// SignIn records the user in the session.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, err := m.GetSession(r)
	if err != nil {
		return err
	}
	sess.Values[isAuthKey] = true
	sess.Values[profileIDKey] = u.ID
	sess.Values[emailKey] = u.Email
	sess.Values[nameKey] = u.Name
	return sess.Save(r, w)
}

// SignOut clears the session.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := m.GetSession(r)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	sess.Values = map[interface{}]interface{}{}
	return sess.Save(r, w)
}

// LoadSessionUser injects the user into context if they are logged in.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := m.GetSession(r)
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			u := &SessionUser{
				ID:    getString(sess, profileIDKey),
				Email: getString(sess, emailKey),
				Name:  getString(sess, nameKey),
			}
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// Browser requests are redirected to sign-in; API callers get a plain 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		if wantsHTML(r) {
			http.Redirect(w, r, "/auth/google", http.StatusSeeOther)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Deferred invite code                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// StashInviteCode remembers an invite code for replay after authentication.
func (m *SessionManager) StashInviteCode(w http.ResponseWriter, r *http.Request, code string) error {
	sess, err := m.GetSession(r)
	if err != nil {
		return err
	}
	sess.Values[pendingInviteKey] = code
	return sess.Save(r, w)
}

// PopInviteCode returns a stashed invite code and removes it from the
// session. Returns "" when none is pending.
func (m *SessionManager) PopInviteCode(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := m.GetSession(r)
	if err != nil {
		return "", err
	}
	code := getString(sess, pendingInviteKey)
	if code == "" {
		return "", nil
	}
	delete(sess.Values, pendingInviteKey)
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return code, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func getString(sess *sessions.Session, key string) string {
	v, _ := sess.Values[key].(string)
	return v
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html")
}
