package weights

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PreviewSize is how many weights are shown at each end of a preview
const PreviewSize = 5

// Package is the weight package served by the vault
type Package struct {
	OriginDocument string  `json:"origin_document"`
	ID             string  `json:"id"`
	Weights        Weights `json:"weights"`
	Format         string  `json:"format,omitempty"`
	AuditHash      string  `json:"audit_hash,omitempty"`
}

// Weights is an ordered sequence of weight values
type Weights []float64

// Head returns the first n weights, or all of them when there are fewer
func (w Weights) Head(n int) Weights {
	if n < 0 {
		n = 0
	}
	if n > len(w) {
		n = len(w)
	}
	return w[:n]
}

// Tail returns the last n weights, or all of them when there are fewer
func (w Weights) Tail(n int) Weights {
	if n < 0 {
		n = 0
	}
	if n > len(w) {
		n = len(w)
	}
	return w[len(w)-n:]
}

// String renders the weights as a bracketed, comma separated list
func (w Weights) String() string {
	parts := make([]string, len(w))
	for i, v := range w {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// UnmarshalJSON accepts numbers as well as strings holding a number.
// The vault serves each weight pre-formatted to a fixed precision.
func (w *Weights) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("weights: expected array, got null")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("weights: expected array: %w", err)
	}
	out := make(Weights, 0, len(raw))
	for i, elem := range raw {
		v, err := decodeWeight(elem)
		if err != nil {
			return fmt.Errorf("weights[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	*w = out
	return nil
}

func decodeWeight(elem json.RawMessage) (float64, error) {
	var num float64
	if err := json.Unmarshal(elem, &num); err == nil {
		return num, nil
	}
	var s string
	if err := json.Unmarshal(elem, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(elem))
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a numeric string: %q", s)
	}
	return num, nil
}

// Encode serializes the weights as a plain JSON array of numbers
func (w Weights) Encode() ([]byte, error) {
	if w == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]float64(w))
}
