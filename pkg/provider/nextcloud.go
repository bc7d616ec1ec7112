package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harrisonrobin/errands/pkg/config"
	"github.com/harrisonrobin/errands/pkg/nextcloud"
	"github.com/harrisonrobin/errands/pkg/remote"
)

// NewNextcloud builds the Nextcloud provider from the settings. It stays
// disabled or unconfigured according to cfg.
func NewNextcloud(cfg *config.Config, st Store, logger *slog.Logger) *Provider {
	return New(Options{
		Name:     "nextcloud",
		Enabled:  cfg.NCEnabled,
		ListName: cfg.ListName,
		Validate: func() error { return validateNextcloud(cfg) },
		Dial: func(ctx context.Context) (remote.Directory, error) {
			if logger != nil {
				logger.Info("connecting to Nextcloud", "url", cfg.NCURL, "user", cfg.NCUsername)
			}
			c, err := nextcloud.Dial(ctx, cfg.NCURL, cfg.NCUsername, cfg.NCPassword)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Store:   st,
		Binding: NextcloudBinding{},
		Logger:  logger,
	})
}

func validateNextcloud(cfg *config.Config) error {
	var missing []string
	if cfg.NCURL == "" {
		missing = append(missing, config.KeyNCURL)
	}
	if cfg.NCUsername == "" {
		missing = append(missing, config.KeyNCUsername)
	}
	if cfg.NCPassword == "" {
		missing = append(missing, config.KeyNCPassword)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}
