package domain

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestStage_Outputs(t *testing.T) {
	t.Run("should apply coupler and fiber loss on both ports", func(t *testing.T) {
		s := NewStage(8, "10/90", 0.2, 1, 5, nil)

		if got := s.TapOutput(); !almostEqual(got, -2.2) {
			t.Fatalf("\nwanted:\n-2.2\ngot:\n%v", got)
		}
		if got := s.ThroughOutput(); !almostEqual(got, 6.34) {
			t.Fatalf("\nwanted:\n6.34\ngot:\n%v", got)
		}
	})

	t.Run("should follow the formula exactly without clamping", func(t *testing.T) {
		cases := []struct {
			input, loss, tap, through float64
			ratio                     string
		}{
			{input: 3, loss: 0.35, tap: 12, through: 40, ratio: "05/95"},
			{input: -20, loss: 0.2, tap: 0, through: 0, ratio: "50/50"},
			{input: 0, loss: 0.4, tap: -3, through: -1, ratio: "25/75"},
			{input: 10, loss: 0, tap: 100, through: 100, ratio: "45/55"},
		}
		for _, c := range cases {
			s := NewStage(c.input, c.ratio, c.loss, c.tap, c.through, nil)
			spec, ok := s.Spec()
			if !ok {
				t.Fatalf("ratio %s not resolved", c.ratio)
			}
			wantTap := c.input - spec.TapLossDB - c.tap*c.loss
			wantThrough := c.input - spec.ThroughLossDB - c.through*c.loss
			if !almostEqual(s.TapOutput(), wantTap) || !almostEqual(s.ThroughOutput(), wantThrough) {
				t.Fatalf("\nwanted:\n%v %v\ngot:\n%v %v", wantTap, wantThrough, s.TapOutput(), s.ThroughOutput())
			}
		}
	})

	t.Run("should pass input through for an unresolved ratio", func(t *testing.T) {
		s := NewStage(4.5, "99/1", 0.2, 10, 20, nil)
		if s.TapOutput() != 4.5 || s.ThroughOutput() != 4.5 {
			t.Fatalf("\nwanted:\n4.5 4.5\ngot:\n%v %v", s.TapOutput(), s.ThroughOutput())
		}
	})

	t.Run("should not panic on pathological values", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("\nwanted:\nno panic\ngot:\n%v", r)
			}
		}()
		s := NewStage(math.Inf(1), "10/90", math.NaN(), -1, math.MaxFloat64, nil)
		_ = s.TapOutput()
		_ = s.ThroughOutput()
	})
}

func TestStage_Defaults(t *testing.T) {
	s := DefaultStage()
	if s.Ratio != "10/90" || s.FiberLossDBPerKm != 0.2 || s.TapDistanceKm != 0 || s.ThroughDistanceKm != 0 {
		t.Fatalf("\nwanted:\n10/90 0.2 0 0\ngot:\n%+v", s)
	}
	if s.ID != nil || s.InputPowerDBm() != 0 {
		t.Fatalf("\nwanted:\nnil id, 0 input\ngot:\n%v %v", s.ID, s.InputPowerDBm())
	}
}

func TestStage_Clone(t *testing.T) {
	t.Run("should keep the identifier but share nothing", func(t *testing.T) {
		id := int64(42)
		original := NewStage(8, "30/70", 0.2, 1, 2, &id)

		clone := original.Clone()
		if clone.ID == nil || *clone.ID != 42 {
			t.Fatalf("\nwanted:\n42\ngot:\n%v", clone.ID)
		}

		*clone.ID = 7
		clone.Ratio = "50/50"
		clone.TapDistanceKm = 9

		if *original.ID != 42 || original.Ratio != "30/70" || original.TapDistanceKm != 1 {
			t.Fatalf("\nwanted:\noriginal untouched\ngot:\n%+v id=%d", original, *original.ID)
		}
	})

	t.Run("should not alias the caller's id", func(t *testing.T) {
		id := int64(5)
		s := NewStage(0, "10/90", 0.2, 0, 0, &id)
		id = 6
		if *s.ID != 5 {
			t.Fatalf("\nwanted:\n5\ngot:\n%d", *s.ID)
		}
	})
}
