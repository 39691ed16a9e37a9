package coupler

import (
	"testing"
)

func TestLookup(t *testing.T) {
	t.Run("should resolve every catalog ratio", func(t *testing.T) {
		want := map[string][2]float64{
			"50/50": {3.2, 3.2},
			"45/55": {3.7, 2.8},
			"40/60": {4.2, 2.4},
			"35/65": {4.8, 2.1},
			"30/70": {5.4, 1.8},
			"25/75": {6.2, 1.5},
			"20/80": {7.7, 1.3},
			"15/85": {8.4, 0.91},
			"10/90": {10.0, 0.66},
			"05/95": {13.0, 0.42},
		}
		for ratio, losses := range want {
			got, ok := Lookup(ratio)
			if !ok {
				t.Fatalf("\nwanted:\n%s found\ngot:\nmiss", ratio)
			}
			if got.TapLossDB != losses[0] || got.ThroughLossDB != losses[1] {
				t.Fatalf("\nwanted:\n%v\ngot:\n%+v", losses, got)
			}
		}
		if len(Specs()) != len(want) {
			t.Fatalf("\nwanted:\n%d specs\ngot:\n%d", len(want), len(Specs()))
		}
	})

	t.Run("should treat reversed labels as distinct entries", func(t *testing.T) {
		if _, ok := Lookup("90/10"); ok {
			t.Fatalf("\nwanted:\nmiss for 90/10\ngot:\nhit")
		}
		if _, ok := Lookup(""); ok {
			t.Fatalf("\nwanted:\nmiss for empty label\ngot:\nhit")
		}
	})

	t.Run("should not expose the backing table", func(t *testing.T) {
		s := Specs()
		s[0].TapLossDB = 99
		got, _ := Lookup("50/50")
		if got.TapLossDB != 3.2 {
			t.Fatalf("\nwanted:\n3.2\ngot:\n%v", got.TapLossDB)
		}
	})

	t.Run("should keep losses non-negative and labels unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, s := range Specs() {
			if seen[s.Ratio] {
				t.Fatalf("duplicate ratio %s", s.Ratio)
			}
			seen[s.Ratio] = true
			if s.TapLossDB < 0 || s.ThroughLossDB < 0 {
				t.Fatalf("negative loss in %+v", s)
			}
		}
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantRes Resolution
	}{
		{name: "canonical label is unchanged", raw: "30/70", want: "30/70", wantRes: ResolvedExact},
		{name: "colon separator", raw: "10:90", want: "10/90", wantRes: ResolvedExact},
		{name: "reversed pair", raw: "70/30", want: "30/70", wantRes: ResolvedReversed},
		{name: "reversed pair with colon", raw: "95:05", want: "05/95", wantRes: ResolvedReversed},
		{name: "unknown pair", raw: "99/1", want: DefaultRatio, wantRes: ResolvedDefault},
		{name: "no separator", raw: "splitter", want: DefaultRatio, wantRes: ResolvedDefault},
		{name: "empty label", raw: "", want: DefaultRatio, wantRes: ResolvedDefault},
		{name: "surrounding spaces", raw: " 50/50 ", want: "50/50", wantRes: ResolvedExact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := Normalize(tt.raw)
			if got != tt.want || res != tt.wantRes {
				t.Fatalf("\nwanted:\n%s (%s)\ngot:\n%s (%s)", tt.want, tt.wantRes, got, res)
			}
		})
	}

	t.Run("should be idempotent", func(t *testing.T) {
		for _, raw := range []string{"70/30", "10:90", "99/1", "45/55"} {
			once, _ := Normalize(raw)
			twice, res := Normalize(once)
			if once != twice || res != ResolvedExact {
				t.Fatalf("\nwanted:\n%s (exact)\ngot:\n%s (%s)", once, twice, res)
			}
		}
	})
}

func TestSplitters(t *testing.T) {
	t.Run("should accept alternate multiplication signs", func(t *testing.T) {
		for _, name := range []string{"1x8", "1X8", "1×8", " 1x8 "} {
			got, ok := LookupSplitter(name)
			if !ok || got.Ports != 8 || got.LossDB != 9.5 {
				t.Fatalf("\nwanted:\n1x8 9.5dB\ngot:\n%+v (%v) for %q", got, ok, name)
			}
		}
	})

	t.Run("should subtract splitter loss from input", func(t *testing.T) {
		got, ok := SplitterOutput(2.54, "1x16")
		if !ok {
			t.Fatalf("\nwanted:\nok\ngot:\nmiss")
		}
		want := 2.54 - 12.5
		if got != want {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})

	t.Run("should pass input through for unknown splitters", func(t *testing.T) {
		got, ok := SplitterOutput(-3, "2x2")
		if ok || got != -3 {
			t.Fatalf("\nwanted:\n-3 miss\ngot:\n%v %v", got, ok)
		}
		if len(Splitters()) != 6 {
			t.Fatalf("\nwanted:\n6\ngot:\n%d", len(Splitters()))
		}
	})
}
