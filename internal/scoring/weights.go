package scoring

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hooplab/goatindex/internal/contracts"
)

// Weights is the caller-supplied weight vector folding per-field z-scores
// into the composite. Weights need not sum to 1; the rescale step absorbs
// the overall scale.
type Weights struct {
	Meta   WeightsMeta        `yaml:"meta" json:"meta"`
	Fields map[string]float64 `yaml:"fields" json:"fields"`
}

// WeightsMeta identifies a weight vector.
type WeightsMeta struct {
	WeightsID string `yaml:"weights_id" json:"weights_id"`
}

// LoadWeights reads a YAML weight vector. Unknown fields fail at load.
func LoadWeights(path string) (*Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}

	var w Weights
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode weights %s: %w", path, err)
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}

	return &w, nil
}

// Validate checks the weight vector is usable.
func (w *Weights) Validate() error {
	if w.Meta.WeightsID == "" {
		return fmt.Errorf("weights_id is required")
	}
	if len(w.Fields) == 0 {
		return fmt.Errorf("weight vector is empty")
	}
	for field, weight := range w.Fields {
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			return fmt.Errorf("weight for %s is not finite", field)
		}
	}
	return nil
}

// Hash generates a SHA-256 hash of the weight vector from canonical JSON.
// encoding/json sorts map keys, so identical vectors hash identically.
// Every Score records this hash so a gold snapshot is traceable to the
// exact weights that produced it.
func (w *Weights) Hash() (string, error) {
	jsonBytes, err := json.Marshal(w)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// DefaultWeights is the built-in GOAT weight vector, used when no weights
// file is configured.
func DefaultWeights() *Weights {
	return &Weights{
		Meta: WeightsMeta{WeightsID: "goat_default"},
		Fields: map[string]float64{
			contracts.StatPoints:    0.25,
			contracts.StatWinShares: 0.20,
			contracts.StatPER:       0.15,
			contracts.StatBPM:       0.15,
			contracts.StatRebounds:  0.05,
			contracts.StatAssists:   0.05,
			contracts.StatTitles:    0.10,
			contracts.StatMVP:       0.05,
		},
	}
}
