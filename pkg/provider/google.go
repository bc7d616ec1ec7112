package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harrisonrobin/errands/pkg/auth"
	"github.com/harrisonrobin/errands/pkg/config"
	"github.com/harrisonrobin/errands/pkg/google"
	"github.com/harrisonrobin/errands/pkg/index"
	"github.com/harrisonrobin/errands/pkg/remote"
)

// GoogleIndexFile holds the local id to Google task id mapping.
const GoogleIndexFile = "gtasks.json"

// NewGoogle builds the Google Tasks provider. It is unconfigured until the
// OAuth client secrets are in place.
func NewGoogle(cfg *config.Config, st Store, idx *index.Index, logger *slog.Logger) *Provider {
	return New(Options{
		Name:     "gtasks",
		Enabled:  cfg.GTasksEnabled,
		ListName: cfg.ListName,
		Validate: func() error {
			if err := auth.CheckClientSecrets(); err != nil {
				return fmt.Errorf("%w: %w", ErrNotConfigured, err)
			}
			return nil
		},
		Dial: func(ctx context.Context) (remote.Directory, error) {
			c, err := google.Dial(ctx)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Store:   st,
		Binding: IndexBinding{Index: idx},
		Logger:  logger,
	})
}
