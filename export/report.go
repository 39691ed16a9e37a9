// Package export writes a design's power budget as JSON, YAML or XML and reads such
// files, or stored design records, back into an editable chain.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/fiberonix/netdesign/domain"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXML  Format = "xml"
)

// ParseFormat accepts a format name or a file extension such as ".yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xml":
		return FormatXML, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Report is the exported view of a chain: the stored fields plus every stage's budget.
type Report struct {
	ID            string        `json:"id,omitempty" yaml:"id,omitempty"`
	Name          string        `json:"name" yaml:"name"`
	Description   string        `json:"description,omitempty" yaml:"description,omitempty"`
	Status        string        `json:"status" yaml:"status"`
	CreatedAt     string        `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	InputPowerDBm float64       `json:"input_power" yaml:"input_power"`
	FinalDBm      float64       `json:"final_through_dbm" yaml:"final_through_dbm"`
	Stages        []StageReport `json:"stages" yaml:"stages"`
}

// StageReport is one stage of a Report.
type StageReport struct {
	Index            int     `json:"index" yaml:"index"`
	Ratio            string  `json:"coupler_ratio" yaml:"coupler_ratio"`
	InputDBm         float64 `json:"input_dbm" yaml:"input_dbm"`
	TapLossDB        float64 `json:"tap_loss_db" yaml:"tap_loss_db"`
	ThroughLossDB    float64 `json:"through_loss_db" yaml:"through_loss_db"`
	FiberLossDBPerKm float64 `json:"fiber_loss_db_per_km" yaml:"fiber_loss_db_per_km"`
	TapKm            float64 `json:"tap_km" yaml:"tap_km"`
	ThroughKm        float64 `json:"throughput_km" yaml:"throughput_km"`
	TapOutputDBm     float64 `json:"tap_output_dbm" yaml:"tap_output_dbm"`
	ThroughOutputDBm float64 `json:"through_output_dbm" yaml:"through_output_dbm"`
}

// NewReport evaluates c's budget into a Report. FinalDBm is the through output of the
// last stage, or the input power of an empty chain.
func NewReport(c *domain.Chain) Report {
	r := Report{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Status:        string(c.Status),
		InputPowerDBm: c.InitialInputPowerDBm(),
		FinalDBm:      c.InitialInputPowerDBm(),
		Stages:        make([]StageReport, 0, c.Len()),
	}
	if !c.CreatedAt.IsZero() {
		r.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	stages := c.Stages()
	for _, b := range c.Budget() {
		r.Stages = append(r.Stages, StageReport{
			Index:            b.Index,
			Ratio:            b.Ratio,
			InputDBm:         b.InputDBm,
			TapLossDB:        b.TapLossDB,
			ThroughLossDB:    b.ThroughLossDB,
			FiberLossDBPerKm: stages[b.Index].FiberLossDBPerKm,
			TapKm:            b.TapKm,
			ThroughKm:        b.ThroughKm,
			TapOutputDBm:     b.TapDBm,
			ThroughOutputDBm: b.ThroughDBm,
		})
		r.FinalDBm = b.ThroughDBm
	}
	return r
}
