package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/fiberonix/netdesign/codec"
	"github.com/fiberonix/netdesign/domain"
	"github.com/gabriel-vasile/mimetype"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned by Read for blank input.
var ErrEmptyDocument = errors.New("empty design document")

// document is what an import accepts: an exported report, carrying stages, or a stored
// design record, carrying couplers.
// Stored records may carry numeric ids and string powers, so JSON decodes those two
// fields leniently.
type document struct {
	Report     `yaml:",inline"`
	ID         codec.ID            `json:"id" yaml:"-"`
	InputPower codec.Number        `json:"input_power" yaml:"-"`
	Couplers   []codec.StageRecord `json:"couplers" yaml:"couplers"`
}

// Detect sniffs the format of data. Anything that is neither JSON nor XML is treated as YAML.
func Detect(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	mtype := mimetype.Detect(trimmed)
	switch {
	case mtype.Is("application/json"):
		return FormatJSON
	case mtype.Is("text/xml") || mtype.Is("application/xml") || bytes.HasPrefix(trimmed, []byte("<")):
		return FormatXML
	}
	return FormatYAML
}

// Read parses data in any supported format into a new, editable chain without an id.
// Ratio labels are normalized by decoder; stages from a report keep their fiber loss.
func Read(data []byte, decoder *codec.Decoder) (*domain.Chain, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}
	if decoder == nil {
		decoder = codec.NewDecoder(nil)
	}

	var doc document
	switch f := Detect(data); f {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("reading json design : %w", err)
		}
		doc.InputPowerDBm = float64(doc.InputPower)
	case FormatXML:
		r, err := parseReportDocument(data)
		if err != nil {
			return nil, err
		}
		doc.Report = r
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("reading yaml design : %w", err)
		}
	}

	if doc.Couplers != nil {
		c, err := decoder.DecodeNewChain(codec.ChainRecord{
			Name:        doc.Name,
			Description: doc.Description,
			InputPower:  codec.Number(doc.InputPowerDBm),
			Couplers:    doc.Couplers,
			Status:      doc.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("importing design record : %w", err)
		}
		return c, nil
	}

	c := domain.NewChain(doc.Name, doc.InputPowerDBm)
	c.Description = doc.Description
	c.Status = domain.ParseStatus(doc.Status)
	for _, sr := range doc.Stages {
		s := decoder.DecodeStage(codec.StageRecord{
			CouplerRatio: sr.Ratio,
			TapKm:        codec.Number(sr.TapKm),
			ThroughputKm: codec.Number(sr.ThroughKm),
		})
		s.FiberLossDBPerKm = sr.FiberLossDBPerKm
		if err := c.AppendStage(s); err != nil {
			return nil, fmt.Errorf("importing stage %d : %w", sr.Index, err)
		}
	}
	return c, nil
}

func parseReportDocument(data []byte) (Report, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return Report{}, fmt.Errorf("reading xml design : %w", err)
	}
	design := doc.SelectElement("design")
	if design == nil {
		return Report{}, errors.New("reading xml design : missing <design> element")
	}

	r := Report{
		Name:          design.SelectAttrValue("name", ""),
		Status:        design.SelectAttrValue("status", ""),
		InputPowerDBm: floatAttr(design, "input_power"),
	}
	if desc := design.SelectElement("description"); desc != nil {
		r.Description = desc.Text()
	}
	if stages := design.SelectElement("stages"); stages != nil {
		for i, stage := range stages.SelectElements("stage") {
			r.Stages = append(r.Stages, StageReport{
				Index:            i,
				Ratio:            stage.SelectAttrValue("coupler_ratio", ""),
				FiberLossDBPerKm: floatAttrDefault(stage, "fiber_loss_db_per_km", domain.DefaultFiberLossDBPerKm),
				TapKm:            floatAttr(stage, "tap_km"),
				ThroughKm:        floatAttr(stage, "throughput_km"),
			})
		}
	}
	return r, nil
}

func floatAttr(e *etree.Element, key string) float64 {
	return floatAttrDefault(e, key, 0)
}

func floatAttrDefault(e *etree.Element, key string, def float64) float64 {
	v, err := strconv.ParseFloat(e.SelectAttrValue(key, ""), 64)
	if err != nil {
		return def
	}
	return v
}
