package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fiberonix/netdesign/coupler"
	"github.com/fiberonix/netdesign/domain"
	"github.com/fiberonix/netdesign/logger"
)

// EncodeStage serializes a stage, computing both output powers from its current input.
func EncodeStage(s *domain.Stage) StageRecord {
	r := StageRecord{
		CouplerRatio:     s.Ratio,
		TapKm:            Number(s.TapDistanceKm),
		TapOutputDBm:     Number(s.TapOutput()),
		ThroughputKm:     Number(s.ThroughDistanceKm),
		ThroughOutputDBm: Number(s.ThroughOutput()),
	}
	if s.ID != nil {
		r.ID = ID(strconv.FormatInt(*s.ID, 10))
	}
	return r
}

// EncodeChain serializes the fields a client sends: name, input power, stages and status.
// An empty chain yields an empty, non-nil couplers list.
func EncodeChain(c *domain.Chain) ChainRecord {
	couplers := make([]StageRecord, 0, c.Len())
	for _, s := range c.Stages() {
		couplers = append(couplers, EncodeStage(s))
	}
	return ChainRecord{
		Name:        c.Name,
		Description: c.Description,
		InputPower:  Number(c.InitialInputPowerDBm()),
		Couplers:    couplers,
		Status:      string(c.Status),
	}
}

// EncodeChainWithMeta serializes a stored chain including its id and creation time.
func EncodeChainWithMeta(c *domain.Chain) ChainRecord {
	r := EncodeChain(c)
	r.ID = ID(c.ID)
	if !c.CreatedAt.IsZero() {
		r.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return r
}

// Decoder rebuilds domain values from records.
type Decoder struct {
	Logger           *logger.Logger   // Receives warnings about reinterpreted ratio labels.
	Now              func() time.Time // Used when created_at is missing or unparseable.
	FiberLossDBPerKm float64          // Attenuation given to decoded stages; records do not carry it.
}

// NewDecoder returns a Decoder with the default fiber loss and the wall clock.
func NewDecoder(log *logger.Logger) *Decoder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Decoder{
		Logger:           log,
		Now:              time.Now,
		FiberLossDBPerKm: domain.DefaultFiberLossDBPerKm,
	}
}

// DecodeStage rebuilds a stage with a normalized ratio label. The input power is left at 0
// for the owning chain to propagate.
func (d *Decoder) DecodeStage(r StageRecord) *domain.Stage {
	ratio, res := coupler.Normalize(r.CouplerRatio)
	switch {
	case res == coupler.ResolvedExact:
	case r.CouplerRatio == "":
		d.Logger.Debug("stage without coupler ratio, using default", "ratio", ratio)
	default:
		d.Logger.Warn("coupler ratio reinterpreted",
			"stored_ratio", r.CouplerRatio,
			"ratio", ratio,
			"resolution", res.String(),
			"stage_id", string(r.ID),
		)
	}

	var id *int64
	if r.ID != "" {
		if v, err := strconv.ParseInt(string(r.ID), 10, 64); err == nil {
			id = &v
		} else {
			d.Logger.Warn("dropping non-numeric stage id", "stage_id", string(r.ID))
		}
	}

	return domain.NewStage(0, ratio, d.FiberLossDBPerKm, float64(r.TapKm), float64(r.ThroughputKm), id)
}

// DecodeChain rebuilds a stored chain. created_at falls back to now and status to Active.
func (d *Decoder) DecodeChain(r ChainRecord) *domain.Chain {
	stages := make([]*domain.Stage, 0, len(r.Couplers))
	for _, sr := range r.Couplers {
		stages = append(stages, d.DecodeStage(sr))
	}
	c := domain.RestoreChain(string(r.ID), r.Name, d.parseCreatedAt(r.CreatedAt), float64(r.InputPower), domain.ParseStatus(r.Status), stages)
	c.Description = r.Description
	return c
}

// DecodeNewChain rebuilds a chain received for creation. Unlike DecodeChain the result is
// editable and any id in the record is ignored.
func (d *Decoder) DecodeNewChain(r ChainRecord) (*domain.Chain, error) {
	c := domain.NewChain(r.Name, float64(r.InputPower))
	c.Description = r.Description
	c.Status = domain.ParseStatus(r.Status)
	for i, sr := range r.Couplers {
		if err := c.AppendStage(d.DecodeStage(sr)); err != nil {
			return nil, fmt.Errorf("decoding stage %d : %w", i, err)
		}
	}
	return c, nil
}

// ApplyPatch returns a copy of c with the fields present in p replaced.
func (d *Decoder) ApplyPatch(c *domain.Chain, p ChainPatch) *domain.Chain {
	name := c.Name
	if p.Name != nil {
		name = *p.Name
	}
	input := c.InitialInputPowerDBm()
	if p.InputPower != nil {
		input = float64(*p.InputPower)
	}
	status := c.Status
	if p.Status != nil {
		status = domain.ParseStatus(*p.Status)
	}
	stages := c.Stages()
	if p.Couplers != nil {
		stages = make([]*domain.Stage, 0, len(*p.Couplers))
		for _, sr := range *p.Couplers {
			stages = append(stages, d.DecodeStage(sr))
		}
	}

	patched := domain.RestoreChain(c.ID, name, c.CreatedAt, input, status, stages)
	patched.Description = c.Description
	if p.Description != nil {
		patched.Description = *p.Description
	}
	return patched
}

func (d *Decoder) parseCreatedAt(raw string) time.Time {
	if raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t
		}
		d.Logger.Debug("unparseable created_at, using now", "created_at", raw)
	}
	return d.Now()
}

// UnmarshalChain parses one chain record.
func UnmarshalChain(data []byte) (ChainRecord, error) {
	var r ChainRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return ChainRecord{}, fmt.Errorf("decoding chain record : %w", err)
	}
	return r, nil
}

// UnmarshalChains parses an array of chain records.
func UnmarshalChains(data []byte) ([]ChainRecord, error) {
	var rs []ChainRecord
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decoding chain records : %w", err)
	}
	return rs, nil
}
