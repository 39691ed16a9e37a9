package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"
	"github.com/fiberonix/netdesign/domain"
	"gopkg.in/yaml.v3"
)

// Write encodes c's budget report to w in format f.
func Write(w io.Writer, c *domain.Chain, f Format) error {
	r := NewReport(c)
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing json report : %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing yaml report : %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flushing yaml report : %w", err)
		}
	case FormatXML:
		doc := reportDocument(r)
		doc.Indent(2)
		if _, err := doc.WriteTo(w); err != nil {
			return fmt.Errorf("writing xml report : %w", err)
		}
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
	return nil
}

func reportDocument(r Report) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	design := doc.CreateElement("design")
	if r.ID != "" {
		design.CreateAttr("id", r.ID)
	}
	design.CreateAttr("name", r.Name)
	design.CreateAttr("status", r.Status)
	if r.CreatedAt != "" {
		design.CreateAttr("created_at", r.CreatedAt)
	}
	design.CreateAttr("input_power", formatFloat(r.InputPowerDBm))
	design.CreateAttr("final_through_dbm", formatFloat(r.FinalDBm))
	if r.Description != "" {
		design.CreateElement("description").SetText(r.Description)
	}

	stages := design.CreateElement("stages")
	for _, s := range r.Stages {
		stage := stages.CreateElement("stage")
		stage.CreateAttr("index", strconv.Itoa(s.Index))
		stage.CreateAttr("coupler_ratio", s.Ratio)
		stage.CreateAttr("input_dbm", formatFloat(s.InputDBm))
		stage.CreateAttr("tap_loss_db", formatFloat(s.TapLossDB))
		stage.CreateAttr("through_loss_db", formatFloat(s.ThroughLossDB))
		stage.CreateAttr("fiber_loss_db_per_km", formatFloat(s.FiberLossDBPerKm))
		stage.CreateAttr("tap_km", formatFloat(s.TapKm))
		stage.CreateAttr("throughput_km", formatFloat(s.ThroughKm))
		stage.CreateAttr("tap_output_dbm", formatFloat(s.TapOutputDBm))
		stage.CreateAttr("through_output_dbm", formatFloat(s.ThroughOutputDBm))
	}
	return doc
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
