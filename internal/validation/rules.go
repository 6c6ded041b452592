package validation

import (
	"fmt"

	"github.com/hooplab/goatindex/internal/contracts"
)

// Kind is the closed set of rule variants. The evaluation loop switches
// exhaustively over these; a new kind is a compile-time-visible addition.
type Kind string

const (
	// KindField checks a single statistical field of one record.
	KindField Kind = "field"
	// KindCrossField checks a relation between two fields of one record.
	KindCrossField Kind = "cross_field"
	// KindCohortSize checks the sample size of a season cohort. Runs once
	// per cohort, after all per-record rules.
	KindCohortSize Kind = "cohort_size"
)

// Severity controls what a violation does to the commit.
type Severity string

const (
	// SeverityWarn passes the record through; the violation is retained
	// in the report for observability.
	SeverityWarn Severity = "warn"
	// SeverityRejectRecord removes only the offending record from the
	// accepted set.
	SeverityRejectRecord Severity = "reject_record"
	// SeverityRejectSnapshot aborts the whole commit. For per-record
	// rules (field and cross_field) the abort triggers when the
	// violating share of records exceeds the rule's MaxViolationRatio.
	SeverityRejectSnapshot Severity = "reject_snapshot"
)

// Check is the predicate of a field rule.
type Check string

const (
	CheckRequired    Check = "required"
	CheckMin         Check = "min"
	CheckMax         Check = "max"
	CheckRange       Check = "range"
	CheckNonNegative Check = "nonnegative"
)

// Op is the comparison of a cross-field rule, applied as "left op right".
type Op string

const (
	OpLE Op = "le"
	OpGE Op = "ge"
	OpLT Op = "lt"
	OpGT Op = "gt"
)

// DefaultMaxViolationRatio is applied to reject_snapshot field rules that
// do not set their own threshold.
const DefaultMaxViolationRatio = 0.5

// Rule is one deterministic, pure check. Exactly one variant's parameters
// are used, selected by Kind.
type Rule struct {
	ID       string   `yaml:"id" json:"id"`
	Kind     Kind     `yaml:"kind" json:"kind"`
	Severity Severity `yaml:"severity" json:"severity"`

	// field
	Field string   `yaml:"field,omitempty" json:"field,omitempty"`
	Check Check    `yaml:"check,omitempty" json:"check,omitempty"`
	Min   *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max   *float64 `yaml:"max,omitempty" json:"max,omitempty"`

	// reject_snapshot per-record rules only
	MaxViolationRatio float64 `yaml:"max_violation_ratio,omitempty" json:"max_violation_ratio,omitempty"`

	// cross_field
	Left  string `yaml:"left,omitempty" json:"left,omitempty"`
	Op    Op     `yaml:"op,omitempty" json:"op,omitempty"`
	Right string `yaml:"right,omitempty" json:"right,omitempty"`

	// cohort_size
	MinSize int `yaml:"min_size,omitempty" json:"min_size,omitempty"`
}

// validate checks the rule is structurally sound.
func (r *Rule) validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}

	switch r.Severity {
	case SeverityWarn, SeverityRejectRecord, SeverityRejectSnapshot:
	default:
		return fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity)
	}

	switch r.Kind {
	case KindField:
		if r.Field == "" {
			return fmt.Errorf("rule %s: field is required", r.ID)
		}
		switch r.Check {
		case CheckRequired, CheckNonNegative:
		case CheckMin:
			if r.Min == nil {
				return fmt.Errorf("rule %s: min bound is required", r.ID)
			}
		case CheckMax:
			if r.Max == nil {
				return fmt.Errorf("rule %s: max bound is required", r.ID)
			}
		case CheckRange:
			if r.Min == nil || r.Max == nil {
				return fmt.Errorf("rule %s: range needs both min and max", r.ID)
			}
		default:
			return fmt.Errorf("rule %s: unknown check %q", r.ID, r.Check)
		}
	case KindCrossField:
		if r.Left == "" || r.Right == "" {
			return fmt.Errorf("rule %s: left and right fields are required", r.ID)
		}
		switch r.Op {
		case OpLE, OpGE, OpLT, OpGT:
		default:
			return fmt.Errorf("rule %s: unknown op %q", r.ID, r.Op)
		}
	case KindCohortSize:
		if r.MinSize < 1 {
			return fmt.Errorf("rule %s: min_size must be at least 1", r.ID)
		}
	default:
		return fmt.Errorf("rule %s: unknown kind %q", r.ID, r.Kind)
	}

	return nil
}

// subject names what a per-record rule checks, for violation reasons.
func (r *Rule) subject() string {
	if r.Kind == KindCrossField {
		return fmt.Sprintf("%s %s %s", r.Left, r.Op, r.Right)
	}
	return r.Field
}

// evalField evaluates a field rule against one record. It returns a
// non-empty reason on violation. Numeric checks skip absent fields; only
// the required check complains about absence.
func (r *Rule) evalField(rec contracts.Record) string {
	v, ok := rec.Stat(r.Field)

	switch r.Check {
	case CheckRequired:
		if !ok {
			return fmt.Sprintf("field %s missing", r.Field)
		}
	case CheckMin:
		if ok && v < *r.Min {
			return fmt.Sprintf("field %s = %g below min %g", r.Field, v, *r.Min)
		}
	case CheckMax:
		if ok && v > *r.Max {
			return fmt.Sprintf("field %s = %g above max %g", r.Field, v, *r.Max)
		}
	case CheckRange:
		if ok && (v < *r.Min || v > *r.Max) {
			return fmt.Sprintf("field %s = %g outside [%g, %g]", r.Field, v, *r.Min, *r.Max)
		}
	case CheckNonNegative:
		if ok && v < 0 {
			return fmt.Sprintf("field %s = %g is negative", r.Field, v)
		}
	}

	return ""
}

// evalCrossField evaluates a cross-field rule against one record. Absent
// operands skip the check.
func (r *Rule) evalCrossField(rec contracts.Record) string {
	left, lok := rec.Stat(r.Left)
	right, rok := rec.Stat(r.Right)
	if !lok || !rok {
		return ""
	}

	holds := false
	switch r.Op {
	case OpLE:
		holds = left <= right
	case OpGE:
		holds = left >= right
	case OpLT:
		holds = left < right
	case OpGT:
		holds = left > right
	}

	if !holds {
		return fmt.Sprintf("%s (%g) %s %s (%g) does not hold", r.Left, left, r.Op, r.Right, right)
	}
	return ""
}
