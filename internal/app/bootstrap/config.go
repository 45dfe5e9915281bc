// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Shared Tasks.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SHAREDTASKS_MONGO_URI, SHAREDTASKS_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "shared_tasks", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "sharedtasks-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Base URL for invite links and the OAuth callback
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for invite links and OAuth redirects"},

	// Email/SMTP configuration; blank host disables invite email
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank disables invite email)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@sharedtasks.app", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Shared Tasks", Desc: "From display name"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Workspace defaults
	{Name: "default_workspace_name", Default: "Our Home", Desc: "Name for workspaces created without one"},

	// Local UI preference persistence
	{Name: "prefs_path", Default: "", Desc: "Path of the local preferences YAML file (blank disables)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SHAREDTASKS_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SHAREDTASKS", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		BaseURL: appValues.String("base_url"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		DefaultWorkspaceName: appValues.String("default_workspace_name"),

		PrefsPath: appValues.String("prefs_path"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	// Invite email embeds links rooted at base_url, so mail without a base
	// URL would send dead links.
	if appCfg.MailSMTPHost != "" && appCfg.BaseURL == "" {
		return fmt.Errorf("mail_smtp_host is set but base_url is blank")
	}

	// A half-configured OAuth client is a deployment mistake, not a mode.
	if (appCfg.GoogleClientID == "") != (appCfg.GoogleClientSecret == "") {
		return fmt.Errorf("google_client_id and google_client_secret must be set together")
	}

	if appCfg.DefaultWorkspaceName == "" {
		return fmt.Errorf("default_workspace_name must not be blank")
	}

	return nil
}
