// Package netdesign ties the coupler chain model to a design repository: it loads
// configuration, selects the remote or local backend and hands out editing sessions.
package netdesign

import (
	"context"
	"errors"
	"fmt"

	"github.com/fiberonix/netdesign/codec"
	"github.com/fiberonix/netdesign/domain"
	"github.com/fiberonix/netdesign/logger"
	"github.com/fiberonix/netdesign/observability"
)

// ErrNoRepository is returned by operations that need a backend when none was configured.
var ErrNoRepository = errors.New("no design repository configured")

// Designer holds the configuration, logger and repository shared by editing sessions.
type Designer struct {
	Config  Config
	Repo    domain.DesignRepository
	Logger  *logger.Logger
	Decoder *codec.Decoder
	Metrics *observability.Collector

	closers []func() error
}

// New creates a Designer with default configuration and applies options in order.
// Options that build a backend (WithBackend, WithRemote, WithDatabase) should come after
// WithConfigDir, WithLogger and WithMetrics.
func New(options ...func(*Designer) error) (*Designer, error) {
	d := &Designer{
		Config: DefaultConfig(),
		Logger: logger.NewNop(),
	}
	d.rebuildDecoder()
	if err := d.WithOptions(options...); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// rebuildDecoder replaces Decoder after the logger or the configuration changed. It only
// runs while options are applied, before the Designer is shared.
func (d *Designer) rebuildDecoder() {
	dec := codec.NewDecoder(d.Logger)
	dec.FiberLossDBPerKm = d.Config.Design.FiberLossDBPerKm
	d.Decoder = dec
}

// Designs lists every stored design.
func (d *Designer) Designs(ctx context.Context) ([]*domain.Chain, error) {
	if d.Repo == nil {
		return nil, ErrNoRepository
	}
	chains, err := d.Repo.ListDesigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing designs : %w", err)
	}
	return chains, nil
}

// Design fetches one stored design.
func (d *Designer) Design(ctx context.Context, id string) (*domain.Chain, error) {
	if d.Repo == nil {
		return nil, ErrNoRepository
	}
	chain, err := d.Repo.GetDesign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting design %s : %w", id, err)
	}
	return chain, nil
}

// Delete removes a stored design.
func (d *Designer) Delete(ctx context.Context, id string) error {
	if d.Repo == nil {
		return ErrNoRepository
	}
	if err := d.Repo.DeleteDesign(ctx, id); err != nil {
		return fmt.Errorf("deleting design %s : %w", id, err)
	}
	d.Logger.Info("design deleted", "design_id", id)
	return nil
}

// Close releases the resources opened by options, such as the local database.
func (d *Designer) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	d.Logger.Sync()
	return errors.Join(errs...)
}
