package validation

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hooplab/goatindex/internal/contracts"
)

// Ruleset is an ordered list of rules applied at a tier boundary. Rules
// evaluate in declaration order so reports are reproducible.
type Ruleset struct {
	Meta  RulesetMeta `yaml:"meta" json:"meta"`
	Rules []Rule      `yaml:"rules" json:"rules"`
}

// RulesetMeta identifies a ruleset.
type RulesetMeta struct {
	RulesetID string `yaml:"ruleset_id" json:"ruleset_id"`
}

// Load reads a YAML ruleset. KnownFields(true) makes typos and unused
// fields fail at load time instead of silently passing records.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}

	var rs Ruleset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("decode ruleset %s: %w", path, err)
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}

	return &rs, nil
}

// Validate checks structural soundness and applies defaults.
func (rs *Ruleset) Validate() error {
	if rs.Meta.RulesetID == "" {
		return fmt.Errorf("ruleset_id is required")
	}

	seen := make(map[string]bool, len(rs.Rules))
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if err := r.validate(); err != nil {
			return err
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule id: %s", r.ID)
		}
		seen[r.ID] = true

		if r.Kind != KindCohortSize && r.Severity == SeverityRejectSnapshot && r.MaxViolationRatio == 0 {
			r.MaxViolationRatio = DefaultMaxViolationRatio
		}
	}

	return nil
}

// Hash generates a SHA-256 hash of the ruleset from its canonical JSON
// encoding. Struct marshaling keeps field order fixed, so identical
// rulesets always hash identically.
func (rs *Ruleset) Hash() (string, error) {
	jsonBytes, err := json.Marshal(rs)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// DefaultSilver is the built-in bronze-to-silver ruleset, used when no
// ruleset file is configured. Mirrors the structural guarantees the
// scoring engine relies on.
func DefaultSilver(minCohortSize int) *Ruleset {
	one := 1.0
	rs := &Ruleset{
		Meta: RulesetMeta{RulesetID: "silver_builtin"},
		Rules: []Rule{
			{ID: "games-required", Kind: KindField, Severity: SeverityRejectSnapshot, Field: contracts.StatGames, Check: CheckRequired},
			{ID: "points-required", Kind: KindField, Severity: SeverityRejectRecord, Field: contracts.StatPoints, Check: CheckRequired},
			{ID: "games-positive", Kind: KindField, Severity: SeverityRejectRecord, Field: contracts.StatGames, Check: CheckMin, Min: &one},
			{ID: "points-nonnegative", Kind: KindField, Severity: SeverityRejectRecord, Field: contracts.StatPoints, Check: CheckNonNegative},
			{ID: "rebounds-nonnegative", Kind: KindField, Severity: SeverityWarn, Field: contracts.StatRebounds, Check: CheckNonNegative},
			{ID: "assists-nonnegative", Kind: KindField, Severity: SeverityWarn, Field: contracts.StatAssists, Check: CheckNonNegative},
			{ID: "cohort-minimum", Kind: KindCohortSize, Severity: SeverityWarn, MinSize: minCohortSize},
		},
	}
	// Built in and static; cannot fail structural validation.
	_ = rs.Validate()
	return rs
}
