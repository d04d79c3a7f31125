package capability

import (
	"context"

	"github.com/felixgeelhaar/rigup/internal/ports"
)

// DryRun wraps a provider so that detection still runs but every
// mutation is logged instead of executed.
type DryRun struct {
	inner  Provider
	logger ports.Logger
}

// NewDryRun decorates p. Detection calls pass through; Install and
// Remove report what would happen and succeed without side effects.
func NewDryRun(p Provider, logger ports.Logger) *DryRun {
	if logger == nil {
		logger = ports.NopLogger()
	}
	return &DryRun{inner: p, logger: logger}
}

func (d *DryRun) Kind() Kind {
	return d.inner.Kind()
}

func (d *DryRun) IsInstalled(ctx context.Context, item Item) (Status, error) {
	return d.inner.IsInstalled(ctx, item)
}

func (d *DryRun) Install(ctx context.Context, item Item) error {
	d.logger.Info("dry-run: would install",
		ports.F("kind", d.inner.Kind().String()),
		ports.F("item", item.Name))
	return nil
}

func (d *DryRun) Remove(ctx context.Context, item Item) error {
	d.logger.Info("dry-run: would remove",
		ports.F("kind", d.inner.Kind().String()),
		ports.F("item", item.Name))
	return nil
}
