// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/raaulc/shared-tasks/internal/app/localprefs"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// If a preferences file is configured, opening it here fails fast on an
// unwritable path instead of surfacing the error on first use.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.PrefsPath != "" {
		if _, err := localprefs.Open(appCfg.PrefsPath, logger); err != nil {
			return err
		}
	}

	if appCfg.GoogleClientID == "" {
		logger.Warn("Google OAuth not configured; sign-in is unavailable")
	}
	if appCfg.MailSMTPHost == "" {
		logger.Info("SMTP not configured; invites are link-only")
	}

	return nil
}
