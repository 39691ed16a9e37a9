package domain

import "github.com/fiberonix/netdesign/coupler"

// DefaultFiberLossDBPerKm is the attenuation assumed for a stage when none is given.
const DefaultFiberLossDBPerKm = 0.2

// Stage is one asymmetric coupler in a chain together with the fiber spans leaving its two ports.
// The model is a calculator, not a validator: negative or zero values are accepted as given.
type Stage struct {
	ID                *int64  // Backend identifier, nil for a stage that has never been saved.
	Ratio             string  // Coupler ratio label, resolved against the coupler catalog.
	FiberLossDBPerKm  float64 // Fiber attenuation applied to both spans.
	TapDistanceKm     float64 // Length of the span on the tap (drop) port.
	ThroughDistanceKm float64 // Length of the span on the through (continue) port.

	inputPowerDBm float64
}

// NewStage builds a stage fed with inputPowerDBm.
// Inside a Chain the input power is overwritten on every evaluation.
func NewStage(inputPowerDBm float64, ratio string, fiberLossDBPerKm, tapKm, throughKm float64, id *int64) *Stage {
	return &Stage{
		ID:                copyID(id),
		Ratio:             ratio,
		FiberLossDBPerKm:  fiberLossDBPerKm,
		TapDistanceKm:     tapKm,
		ThroughDistanceKm: throughKm,
		inputPowerDBm:     inputPowerDBm,
	}
}

// DefaultStage returns a 10/90 stage with 0.2 dB/km fiber and no spans.
func DefaultStage() *Stage {
	return NewStage(0, coupler.DefaultRatio, DefaultFiberLossDBPerKm, 0, 0, nil)
}

// Clone returns an independent copy that keeps the identifier.
func (s *Stage) Clone() *Stage {
	c := *s
	c.ID = copyID(s.ID)
	return &c
}

// InputPowerDBm is the optical power arriving at the stage.
func (s *Stage) InputPowerDBm() float64 {
	return s.inputPowerDBm
}

// Spec resolves the stage ratio against the coupler catalog.
func (s *Stage) Spec() (coupler.Spec, bool) {
	return coupler.Lookup(s.Ratio)
}

// TapOutput is the power leaving the tap port after the tap span.
// An unresolved ratio passes the input through unchanged.
func (s *Stage) TapOutput() float64 {
	spec, ok := s.Spec()
	if !ok {
		return s.inputPowerDBm
	}
	return s.inputPowerDBm - spec.TapLossDB - s.TapDistanceKm*s.FiberLossDBPerKm
}

// ThroughOutput is the power leaving the through port after the through span.
// This is the input of the next stage in a chain.
func (s *Stage) ThroughOutput() float64 {
	spec, ok := s.Spec()
	if !ok {
		return s.inputPowerDBm
	}
	return s.inputPowerDBm - spec.ThroughLossDB - s.ThroughDistanceKm*s.FiberLossDBPerKm
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
