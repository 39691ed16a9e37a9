package netdesign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/fiberonix/netdesign/coupler"
	"github.com/fiberonix/netdesign/domain"
	"github.com/fiberonix/netdesign/export"
	"github.com/fiberonix/netdesign/logger"
	"github.com/google/uuid"
)

// ErrSuperseded is returned by Load when Close, Reset or another Load happened while the
// design was being fetched. The fetched design is discarded.
var ErrSuperseded = errors.New("design load superseded")

// Editor is one editing session over a single chain. Structural edits (adding and
// removing stages) are only possible on a design that has not been stored yet; a loaded
// design accepts field edits only.
type Editor struct {
	ID uuid.UUID

	designer   *Designer
	log        *logger.Logger
	generation atomic.Uint64

	mu    sync.Mutex
	chain *domain.Chain
}

// NewEditor starts a session on a new, empty design.
func (d *Designer) NewEditor() *Editor {
	e := &Editor{
		ID:       uuid.New(),
		designer: d,
	}
	e.log = d.Logger.With("session_id", e.ID.String())
	e.chain = e.blank()
	return e
}

func (e *Editor) blank() *domain.Chain {
	return domain.NewChain("", e.designer.Config.Design.InputPowerDBm)
}

func (e *Editor) withSession(ctx context.Context) context.Context {
	return domain.ContextWithSessionID(ctx, e.ID)
}

// Load replaces the session's chain with the stored design id.
func (e *Editor) Load(ctx context.Context, id string) error {
	repo := e.designer.Repo
	if repo == nil {
		return ErrNoRepository
	}
	gen := e.generation.Add(1)

	chain, err := repo.GetDesign(e.withSession(ctx), id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation.Load() != gen {
		e.log.Debug("discarding stale design", "design_id", id)
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("loading design %s : %w", id, err)
	}
	e.chain = chain
	return nil
}

// Reset discards the current chain and starts a new design.
func (e *Editor) Reset() {
	e.generation.Add(1)
	e.mu.Lock()
	e.chain = e.blank()
	e.mu.Unlock()
}

// Close ends the session. Pending loads are discarded.
func (e *Editor) Close() {
	e.Reset()
}

// Chain returns a copy of the edited chain.
func (e *Editor) Chain() *domain.Chain {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chain.Clone()
}

// Budget evaluates the edited chain.
func (e *Editor) Budget() []domain.StageBudget {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chain.Budget()
}

func (e *Editor) SetName(name string) {
	e.mu.Lock()
	e.chain.Name = name
	e.mu.Unlock()
}

func (e *Editor) SetDescription(description string) {
	e.mu.Lock()
	e.chain.Description = description
	e.mu.Unlock()
}

func (e *Editor) SetStatus(status domain.Status) {
	e.mu.Lock()
	e.chain.Status = status
	e.mu.Unlock()
}

// SetInitialPower changes the launch power; every stage is re-evaluated.
func (e *Editor) SetInitialPower(dbm float64) {
	e.mu.Lock()
	e.chain.SetInitialInputPower(dbm)
	e.mu.Unlock()
}

// AddStage appends a stage built from the configured defaults and options.
func (e *Editor) AddStage(options ...func(*domain.Stage) error) error {
	s := domain.NewStage(0, coupler.DefaultRatio, e.designer.Config.Design.FiberLossDBPerKm, 0, 0, nil)
	for _, option := range options {
		if err := option(s); err != nil {
			return fmt.Errorf("applying option on new stage : %w", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chain.AppendStage(s)
}

// RemoveStage drops stage i.
func (e *Editor) RemoveStage(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chain.RemoveStage(i)
}

// UpdateStage edits stage i; nothing changes unless every option succeeds.
func (e *Editor) UpdateStage(i int, options ...func(*domain.Stage) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chain.UpdateStage(i, options...)
}

// Save validates the chain and stores it: new designs are created, loaded ones updated.
// It returns the design id, which is empty when the backend did not report one. A chain
// replaced by Reset, Close, Load or Import while a create is in flight is left alone.
func (e *Editor) Save(ctx context.Context) (string, error) {
	repo := e.designer.Repo
	if repo == nil {
		return "", ErrNoRepository
	}

	e.mu.Lock()
	chain := e.chain.Clone()
	e.mu.Unlock()

	if err := chain.Validate(); err != nil {
		return "", err
	}
	ctx = e.withSession(ctx)

	if chain.ID != "" {
		if err := repo.UpdateDesign(ctx, chain); err != nil {
			return "", fmt.Errorf("saving design %s : %w", chain.ID, err)
		}
		e.log.Info("design updated", "design_id", chain.ID, "stages", chain.Len())
		return chain.ID, nil
	}

	gen := e.generation.Load()
	id, err := repo.CreateDesign(ctx, chain)
	if err != nil {
		return "", fmt.Errorf("saving design %s : %w", chain.Name, err)
	}
	e.log.Info("design created", "design_id", id, "stages", chain.Len())
	if id == "" {
		return "", nil
	}

	// The id sticks even when the reload below fails.
	e.mu.Lock()
	current := e.generation.Load() == gen
	if current {
		e.chain.ID = id
	}
	e.mu.Unlock()
	if !current {
		e.log.Debug("chain replaced while saving, keeping the session's chain", "design_id", id)
		return id, nil
	}

	stored, err := repo.GetDesign(ctx, id)
	if err != nil {
		return id, fmt.Errorf("reloading saved design %s : %w", id, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation.Load() != gen {
		e.log.Debug("discarding stale design", "design_id", id)
		return id, nil
	}
	e.chain = stored
	return id, nil
}

// Import replaces the chain with a new design read from data.
func (e *Editor) Import(data []byte) error {
	chain, err := export.Read(data, e.designer.Decoder)
	if err != nil {
		return fmt.Errorf("importing design : %w", err)
	}
	e.generation.Add(1)
	e.mu.Lock()
	e.chain = chain
	e.mu.Unlock()
	return nil
}

// Export writes the chain's budget report to w.
func (e *Editor) Export(w io.Writer, f export.Format) error {
	return export.Write(w, e.Chain(), f)
}
