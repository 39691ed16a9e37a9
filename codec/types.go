package codec

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a float64 that decodes from a JSON number or a numeric string.
// Anything else, including null, NaN and infinities, decodes to 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
	} else {
		s = string(data)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = Number(f)
	return nil
}

// ID is an identifier that decodes from a JSON number or string. It encodes as a number
// only when it is the canonical decimal form of an int64, so "007" stays a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(data)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if v, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(v, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// StageRecord is the wire shape of one coupler stage.
type StageRecord struct {
	ID               ID     `json:"id,omitempty" yaml:"id,omitempty"`
	CouplerRatio     string `json:"coupler_ratio" yaml:"coupler_ratio"`
	TapKm            Number `json:"tap_km" yaml:"tap_km"`
	TapOutputDBm     Number `json:"tap_output_dbm" yaml:"tap_output_dbm"`
	ThroughputKm     Number `json:"throughput_km" yaml:"throughput_km"`
	ThroughOutputDBm Number `json:"through_output_dbm" yaml:"through_output_dbm"`
}

// ChainRecord is the wire shape of a design.
type ChainRecord struct {
	ID          ID            `json:"id,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	InputPower  Number        `json:"input_power"`
	Couplers    []StageRecord `json:"couplers"`
	Status      string        `json:"status"`
	CreatedAt   string        `json:"created_at,omitempty"`
}

// ChainPatch is a partial chain record; nil fields were absent from the request body.
type ChainPatch struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	InputPower  *Number        `json:"input_power"`
	Couplers    *[]StageRecord `json:"couplers"`
	Status      *string        `json:"status"`
}
