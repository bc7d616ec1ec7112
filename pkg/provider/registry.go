package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/panics"
)

// Syncer is a sync provider as driven by the registry.
type Syncer interface {
	Name() string
	Connect(ctx context.Context) error
	Sync(ctx context.Context) (*Result, error)
}

// Registry holds the providers configured at startup and drives them one
// after another. Providers are independent: an error or panic in one does
// not stop the others.
type Registry struct {
	providers []Syncer
	log       *slog.Logger
}

func NewRegistry(logger *slog.Logger, providers ...Syncer) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{providers: providers, log: logger}
}

func (r *Registry) Register(p Syncer) {
	r.providers = append(r.providers, p)
}

func (r *Registry) Providers() []Syncer {
	return r.providers
}

// ConnectAll connects every provider once. The returned error joins the
// failures of all providers.
func (r *Registry) ConnectAll(ctx context.Context) error {
	var errs []error
	for _, p := range r.providers {
		if err := r.run(p.Name(), func() error { return p.Connect(ctx) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SyncAll runs one reconciliation cycle on every provider in order.
func (r *Registry) SyncAll(ctx context.Context) error {
	var errs []error
	for _, p := range r.providers {
		err := r.run(p.Name(), func() error {
			_, err := p.Sync(ctx)
			return err
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) run(name string, fn func() error) error {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = fn()
	})
	if rec := catcher.Recovered(); rec != nil {
		r.log.Error("sync provider panicked", "provider", name, "panic", rec.Value)
		return fmt.Errorf("provider %s: %w", name, rec.AsError())
	}
	if err != nil {
		return fmt.Errorf("provider %s: %w", name, err)
	}
	return nil
}
