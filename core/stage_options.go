// Package core provides fundamental utilities for editing coupler chains.
// This file contains option functions for changing a stage through domain.Chain.UpdateStage.
package core

import (
	"errors"
	"fmt"

	"github.com/fiberonix/netdesign/coupler"
	"github.com/fiberonix/netdesign/domain"
)

// ErrUnknownRatio is returned when a ratio selected in the editor does not name a catalog coupler.
var ErrUnknownRatio = errors.New("unknown coupler ratio")

// StageWithRatio is an option to change the coupler of a stage.
// The label is normalized, so "90:10" selects "10/90"; labels that only resolve to the default are rejected.
func StageWithRatio(ratio string) func(stage *domain.Stage) error {
	return func(stage *domain.Stage) error {
		label, res := coupler.Normalize(ratio)
		if res == coupler.ResolvedDefault {
			return fmt.Errorf("%w: %q", ErrUnknownRatio, ratio)
		}
		stage.Ratio = label
		return nil
	}
}

// StageWithFiberLoss is an option to set the fiber attenuation in dB/km.
func StageWithFiberLoss(dbPerKm float64) func(stage *domain.Stage) error {
	return func(stage *domain.Stage) error {
		stage.FiberLossDBPerKm = dbPerKm
		return nil
	}
}

// StageWithTapDistance is an option to set the tap span length in km.
func StageWithTapDistance(km float64) func(stage *domain.Stage) error {
	return func(stage *domain.Stage) error {
		stage.TapDistanceKm = km
		return nil
	}
}

// StageWithThroughDistance is an option to set the through span length in km.
func StageWithThroughDistance(km float64) func(stage *domain.Stage) error {
	return func(stage *domain.Stage) error {
		stage.ThroughDistanceKm = km
		return nil
	}
}

// StageWithDistances is an option to set both span lengths at once.
func StageWithDistances(tapKm, throughKm float64) func(stage *domain.Stage) error {
	return func(stage *domain.Stage) error {
		stage.TapDistanceKm = tapKm
		stage.ThroughDistanceKm = throughKm
		return nil
	}
}
