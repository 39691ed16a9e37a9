package coupler

import "strings"

// Splitter is a planar lightwave circuit splitter dividing power evenly across Ports outputs.
type Splitter struct {
	Name   string  // Canonical name, e.g. "1x8".
	Ports  int     // Number of output ports.
	LossDB float64 // Typical insertion loss per output port in dB.
}

var splitters = []Splitter{
	{Name: "1x4", Ports: 4, LossDB: 6.5},
	{Name: "1x8", Ports: 8, LossDB: 9.5},
	{Name: "1x16", Ports: 16, LossDB: 12.5},
	{Name: "1x32", Ports: 32, LossDB: 15.5},
	{Name: "1x64", Ports: 64, LossDB: 18.5},
	{Name: "1x128", Ports: 128, LossDB: 21.5},
}

// Splitters returns the PLC splitter catalog ordered by port count.
func Splitters() []Splitter {
	out := make([]Splitter, len(splitters))
	copy(out, splitters)
	return out
}

// LookupSplitter finds a splitter by name. "1x8", "1X8" and "1×8" are equivalent.
func LookupSplitter(name string) (Splitter, bool) {
	canonical := strings.ToLower(strings.TrimSpace(name))
	canonical = strings.ReplaceAll(canonical, "×", "x")
	for _, s := range splitters {
		if s.Name == canonical {
			return s, true
		}
	}
	return Splitter{}, false
}

// SplitterOutput returns the power at each output port of the named splitter when fed inputDBm.
func SplitterOutput(inputDBm float64, name string) (float64, bool) {
	s, ok := LookupSplitter(name)
	if !ok {
		return inputDBm, false
	}
	return inputDBm - s.LossDB, true
}
