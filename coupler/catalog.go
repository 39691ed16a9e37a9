// Package coupler holds the fixed optical component tables used by the power-budget engine:
// the asymmetric (fused biconic taper) coupler catalog and the PLC splitter catalog.
//
// Both tables are immutable. Lookups never fail loudly; a miss is reported through the
// boolean result so callers decide how to degrade.
package coupler

// DefaultRatio is the ratio label used when a stage is created without one,
// and the fallback when a stored label cannot be resolved.
const DefaultRatio = "10/90"

// Spec describes one asymmetric coupler by its nominal split ratio label and
// the insertion loss of each output port.
// The tap side carries the smaller share of power by convention, so "10/90" taps 10%.
type Spec struct {
	Ratio         string  // Nominal split label, e.g. "10/90".
	TapLossDB     float64 // Insertion loss on the tap (drop) port in dB.
	ThroughLossDB float64 // Insertion loss on the through (continue) port in dB.
}

var specs = []Spec{
	{Ratio: "50/50", TapLossDB: 3.2, ThroughLossDB: 3.2},
	{Ratio: "45/55", TapLossDB: 3.7, ThroughLossDB: 2.8},
	{Ratio: "40/60", TapLossDB: 4.2, ThroughLossDB: 2.4},
	{Ratio: "35/65", TapLossDB: 4.8, ThroughLossDB: 2.1},
	{Ratio: "30/70", TapLossDB: 5.4, ThroughLossDB: 1.8},
	{Ratio: "25/75", TapLossDB: 6.2, ThroughLossDB: 1.5},
	{Ratio: "20/80", TapLossDB: 7.7, ThroughLossDB: 1.3},
	{Ratio: "15/85", TapLossDB: 8.4, ThroughLossDB: 0.91},
	{Ratio: "10/90", TapLossDB: 10.0, ThroughLossDB: 0.66},
	{Ratio: "05/95", TapLossDB: 13.0, ThroughLossDB: 0.42},
}

var specsByRatio = func() map[string]Spec {
	m := make(map[string]Spec, len(specs))
	for _, s := range specs {
		m[s.Ratio] = s
	}
	return m
}()

// Lookup returns the coupler registered under ratio.
// Labels are matched verbatim; use Normalize for labels coming from storage.
func Lookup(ratio string) (Spec, bool) {
	s, ok := specsByRatio[ratio]
	return s, ok
}

// Specs returns the catalog in display order, strongest tap first.
func Specs() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}
