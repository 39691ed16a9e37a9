package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrChainLocked is returned when adding or removing stages on a chain loaded from storage.
	ErrChainLocked = errors.New("chain structure is locked")
	// ErrStageIndex is returned when a stage index is out of range.
	ErrStageIndex = errors.New("stage index out of range")
	// ErrNameRequired is returned when a chain without a name is about to be persisted.
	ErrNameRequired = errors.New("design name is required")
)

// Status is the lifecycle label of a design.
type Status string

const (
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusDraft     Status = "Draft"
)

// ParseStatus maps a stored status onto a known Status, defaulting to StatusActive.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusActive, StatusCompleted, StatusDraft:
		return Status(s)
	default:
		return StatusActive
	}
}

// Chain is an ordered sequence of coupler stages along one fiber signal path.
// Stage order is the physical propagation order. The chain owns its stages: callers only
// ever see copies, and every mutation goes through a method that re-runs propagation.
type Chain struct {
	ID          string    // Backend identifier, empty until the design is persisted.
	Name        string    // Human-readable design name.
	Description string    // Optional free-form notes.
	CreatedAt   time.Time // Creation time as reported by storage.
	Status      Status    // Lifecycle status.

	initialInputPowerDBm float64
	stages               []*Stage
	editable             bool
}

// NewChain starts an unsaved design with no stages. Stages may be appended and removed.
func NewChain(name string, initialInputPowerDBm float64) *Chain {
	return &Chain{
		Name:                 name,
		CreatedAt:            time.Now(),
		Status:               StatusActive,
		initialInputPowerDBm: initialInputPowerDBm,
		editable:             true,
	}
}

// RestoreChain rebuilds a persisted design. The stages are copied and evaluated.
// A restored chain only allows field edits, not structural ones.
func RestoreChain(id, name string, createdAt time.Time, initialInputPowerDBm float64, status Status, stages []*Stage) *Chain {
	c := &Chain{
		ID:                   id,
		Name:                 name,
		CreatedAt:            createdAt,
		Status:               status,
		initialInputPowerDBm: initialInputPowerDBm,
		stages:               cloneStages(stages),
	}
	c.Evaluate()
	return c
}

// Editable reports whether stages may be appended or removed.
func (c *Chain) Editable() bool {
	return c.editable
}

// InitialInputPowerDBm is the power launched into the first stage.
func (c *Chain) InitialInputPowerDBm() float64 {
	return c.initialInputPowerDBm
}

// SetInitialInputPower changes the launch power and re-propagates.
func (c *Chain) SetInitialInputPower(dbm float64) {
	c.initialInputPowerDBm = dbm
	c.Evaluate()
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	return len(c.stages)
}

// Stages returns copies of the stages in propagation order.
func (c *Chain) Stages() []*Stage {
	return cloneStages(c.stages)
}

// Stage returns a copy of the stage at index i.
func (c *Chain) Stage(i int) (*Stage, bool) {
	if i < 0 || i >= len(c.stages) {
		return nil, false
	}
	return c.stages[i].Clone(), true
}

// Evaluate propagates power left to right: the first stage receives the initial power
// and every later stage receives the through output of its predecessor.
// An empty chain is valid and evaluates to nothing.
func (c *Chain) Evaluate() {
	power := c.initialInputPowerDBm
	for _, s := range c.stages {
		s.inputPowerDBm = power
		power = s.ThroughOutput()
	}
}

// AppendStage adds a copy of s at the end of the chain.
func (c *Chain) AppendStage(s *Stage) error {
	if !c.editable {
		return ErrChainLocked
	}
	c.stages = append(c.stages, s.Clone())
	c.Evaluate()
	return nil
}

// RemoveStage drops the stage at index i.
func (c *Chain) RemoveStage(i int) error {
	if !c.editable {
		return ErrChainLocked
	}
	if i < 0 || i >= len(c.stages) {
		return fmt.Errorf("removing stage %d of %d: %w", i, len(c.stages), ErrStageIndex)
	}
	c.stages = append(c.stages[:i], c.stages[i+1:]...)
	c.Evaluate()
	return nil
}

// UpdateStage applies options to a duplicate of stage i and only replaces the original
// when every option succeeded. Field edits are allowed on locked chains.
func (c *Chain) UpdateStage(i int, options ...func(*Stage) error) error {
	if i < 0 || i >= len(c.stages) {
		return fmt.Errorf("updating stage %d of %d: %w", i, len(c.stages), ErrStageIndex)
	}
	draft := c.stages[i].Clone()
	for _, option := range options {
		if err := option(draft); err != nil {
			return fmt.Errorf("applying option on stage %d : %w", i, err)
		}
	}
	c.stages[i] = draft
	c.Evaluate()
	return nil
}

// Validate checks what storage requires of a design.
func (c *Chain) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	return nil
}

// Clone returns a deep copy of the chain, including its editable flag.
func (c *Chain) Clone() *Chain {
	cp := *c
	cp.stages = cloneStages(c.stages)
	return &cp
}

// StageBudget is the evaluated power budget of one stage.
type StageBudget struct {
	Index         int
	Ratio         string
	InputDBm      float64
	TapLossDB     float64
	ThroughLossDB float64
	TapKm         float64
	ThroughKm     float64
	TapDBm        float64
	ThroughDBm    float64
}

// Budget reports every stage's input, losses and outputs in propagation order.
func (c *Chain) Budget() []StageBudget {
	out := make([]StageBudget, 0, len(c.stages))
	for i, s := range c.stages {
		b := StageBudget{
			Index:      i,
			Ratio:      s.Ratio,
			InputDBm:   s.inputPowerDBm,
			TapKm:      s.TapDistanceKm,
			ThroughKm:  s.ThroughDistanceKm,
			TapDBm:     s.TapOutput(),
			ThroughDBm: s.ThroughOutput(),
		}
		if spec, ok := s.Spec(); ok {
			b.TapLossDB = spec.TapLossDB
			b.ThroughLossDB = spec.ThroughLossDB
		}
		out = append(out, b)
	}
	return out
}

func cloneStages(stages []*Stage) []*Stage {
	out := make([]*Stage, len(stages))
	for i, s := range stages {
		out[i] = s.Clone()
	}
	return out
}
