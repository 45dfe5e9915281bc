// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level and format, and request limits. AppConfig is
// where everything specific to this application lives.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connections in the driver pool
	MongoMinPoolSize uint64 // Min connections kept warm in the pool

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: sharedtasks-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Base URL for invite links and OAuth callbacks
	BaseURL string // e.g., "https://tasks.example.com" or "http://localhost:3000"

	// Email/SMTP configuration. Invite email is disabled when MailSMTPHost
	// is blank; the share-by-link flow still works.
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for unauthenticated relays)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@sharedtasks.app)
	MailFromName string // From display name (e.g., Shared Tasks)

	// Google OAuth configuration. Sign-in is unavailable until both are set.
	GoogleClientID     string
	GoogleClientSecret string

	// Name given to a workspace created without one
	DefaultWorkspaceName string

	// Path of the local YAML file holding per-workspace UI preferences.
	// Blank disables preference persistence.
	PrefsPath string
}
