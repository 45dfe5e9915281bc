// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authgooglefeature "github.com/raaulc/shared-tasks/internal/app/features/authgoogle"
	healthfeature "github.com/raaulc/shared-tasks/internal/app/features/health"
	invitefeature "github.com/raaulc/shared-tasks/internal/app/features/invite"
	joinfeature "github.com/raaulc/shared-tasks/internal/app/features/join"
	logoutfeature "github.com/raaulc/shared-tasks/internal/app/features/logout"
	membershipstore "github.com/raaulc/shared-tasks/internal/app/store/memberships"
	"github.com/raaulc/shared-tasks/internal/app/store/oauthstate"
	profilestore "github.com/raaulc/shared-tasks/internal/app/store/profiles"
	workspacestore "github.com/raaulc/shared-tasks/internal/app/store/workspaces"
	"github.com/raaulc/shared-tasks/internal/app/system/auth"
	"github.com/raaulc/shared-tasks/internal/app/system/mailer"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// The server surface is small: a health endpoint, the invite join page,
// the invite email API, and Google sign-in. Everything else (items,
// categories, membership views) lives in the sync engine that clients
// run against the same database.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	profiles := profilestore.New(db)
	workspaces := workspacestore.New(db)
	memberships := membershipstore.New(db)
	states := oauthstate.New(db)

	// Invite email is optional; without SMTP the handler reports the
	// feature as unavailable and invites stay link-only.
	var sender invitefeature.Sender
	if appCfg.MailSMTPHost != "" {
		sender = mailer.New(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			User:     appCfg.MailSMTPUser,
			Pass:     appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
		}, logger)
	}

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Invite links land here: redeem immediately for signed-in users,
	// otherwise stash the code and bounce through sign-in.
	joinHandler := joinfeature.NewHandler(workspaces, memberships, profiles, sessionMgr, logger)
	r.Mount("/join", joinfeature.Routes(joinHandler))

	// Invite email API (signed-in members only)
	inviteHandler := invitefeature.NewHandler(workspaces, memberships, profiles, sender, appCfg.BaseURL, logger)
	r.Mount("/api/invite", invitefeature.Routes(inviteHandler))

	// Sign-out
	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Google sign-in
	googleHandler := authgooglefeature.NewHandler(
		profiles, workspaces, memberships, states, sessionMgr,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	return r, nil
}
