package validation

import (
	"encoding/json"
	"fmt"

	"github.com/hooplab/goatindex/internal/contracts"
)

// Violation records one rule hit. Every excluded or flagged record
// appears as a violation with a reason; nothing is dropped silently.
type Violation struct {
	RuleID    string `json:"rule_id"`
	RecordKey string `json:"record_key,omitempty"`
	Cohort    string `json:"cohort,omitempty"`
	Reason    string `json:"reason"`
}

// Report is the full outcome of validating a record set against a
// ruleset. Validation is deterministic: identical input and ruleset
// produce a byte-identical encoded report.
type Report struct {
	RulesetID   string `json:"ruleset_id"`
	RulesetHash string `json:"ruleset_hash"`
	Total       int    `json:"total"`

	Accepted []contracts.Record `json:"accepted"`
	Rejected []Violation        `json:"rejected,omitempty"`
	Warnings []Violation        `json:"warnings,omitempty"`

	// Snapshot holds snapshot-level violations. Non-empty means the
	// commit aborts and no version is materialized.
	Snapshot []Violation `json:"snapshot,omitempty"`

	// DeferredCohorts lists seasons flagged by a warn-level cohort size
	// rule. The scoring engine excludes them from normalization.
	DeferredCohorts []string `json:"deferred_cohorts,omitempty"`
}

// SnapshotRejected reports whether the commit must abort.
func (r *Report) SnapshotRejected() bool {
	return len(r.Snapshot) > 0
}

// Encode renders the canonical byte representation of the report.
func (r *Report) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Summary is the compact form stored in partition manifests.
type Summary struct {
	RulesetID        string `json:"ruleset_id,omitempty"`
	RulesetHash      string `json:"ruleset_hash,omitempty"`
	Total            int    `json:"total"`
	Accepted         int    `json:"accepted"`
	Rejected         int    `json:"rejected"`
	Warnings         int    `json:"warnings"`
	SnapshotRejected bool   `json:"snapshot_rejected,omitempty"`
}

// Summary collapses the report for manifest storage.
func (r *Report) Summarize() Summary {
	return Summary{
		RulesetID:        r.RulesetID,
		RulesetHash:      r.RulesetHash,
		Total:            r.Total,
		Accepted:         len(r.Accepted),
		Rejected:         len(r.Rejected),
		Warnings:         len(r.Warnings),
		SnapshotRejected: r.SnapshotRejected(),
	}
}

// Error aborts a snapshot commit. It carries the full report so callers
// can inspect every violation.
type Error struct {
	Report *Report
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Report == nil || len(e.Report.Snapshot) == 0 {
		return "validation failed"
	}
	first := e.Report.Snapshot[0]
	return fmt.Sprintf("validation failed: %d snapshot violation(s), first: %s (%s)",
		len(e.Report.Snapshot), first.RuleID, first.Reason)
}
