package validation

import (
	"fmt"
	"sort"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/pkg/logger"
)

// Engine evaluates rulesets against record sets. Rules are pure, so the
// engine holds no state beyond a logger.
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a validation engine.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Validate applies the ruleset to the record set and produces the full
// report. Per-record rules run first, independently per record; cohort
// rules run once per season cohort over the records still accepted.
// Records are processed in sorted order and rules in declaration order,
// so re-running on identical input yields a byte-identical report.
func (e *Engine) Validate(records []contracts.Record, rs *Ruleset) *Report {
	hash, err := rs.Hash()
	if err != nil {
		// Hash only fails on unmarshalable rules, which Load rejects.
		hash = ""
	}

	report := &Report{
		RulesetID:   rs.Meta.RulesetID,
		RulesetHash: hash,
		Total:       len(records),
		Accepted:    make([]contracts.Record, 0, len(records)),
	}

	sorted := make([]contracts.Record, len(records))
	copy(sorted, records)
	contracts.SortRecords(sorted)

	// Per-rule violation counts for reject_snapshot threshold rules.
	structuralHits := make(map[string]int)

	for _, rec := range sorted {
		rejected := false

		for i := range rs.Rules {
			rule := &rs.Rules[i]

			var reason string
			switch rule.Kind {
			case KindField:
				reason = rule.evalField(rec)
			case KindCrossField:
				reason = rule.evalCrossField(rec)
			case KindCohortSize:
				continue // evaluated per cohort below
			}
			if reason == "" {
				continue
			}

			v := Violation{RuleID: rule.ID, RecordKey: rec.Key(), Reason: reason}
			switch rule.Severity {
			case SeverityRejectRecord:
				if !rejected {
					rejected = true
					report.Rejected = append(report.Rejected, v)
				}
			case SeverityRejectSnapshot:
				// Structural rules abort on ratio, not per record.
				// Below the threshold the hit is kept as a warning.
				structuralHits[rule.ID]++
				report.Warnings = append(report.Warnings, v)
			case SeverityWarn:
				report.Warnings = append(report.Warnings, v)
			}
		}

		if !rejected {
			report.Accepted = append(report.Accepted, rec)
		}
	}

	// Threshold check for structural per-record rules (field and
	// cross_field alike).
	for i := range rs.Rules {
		rule := &rs.Rules[i]
		if rule.Kind == KindCohortSize || rule.Severity != SeverityRejectSnapshot {
			continue
		}
		hits := structuralHits[rule.ID]
		if report.Total == 0 || hits == 0 {
			continue
		}
		ratio := float64(hits) / float64(report.Total)
		if ratio > rule.MaxViolationRatio {
			report.Snapshot = append(report.Snapshot, Violation{
				RuleID: rule.ID,
				Reason: fmt.Sprintf("%d of %d records (%.0f%%) violate %s, above %.0f%%",
					hits, report.Total, ratio*100, rule.subject(), rule.MaxViolationRatio*100),
			})
		}
	}

	e.applyCohortRules(report, rs)

	e.logger.WithFields(map[string]interface{}{
		"ruleset":  rs.Meta.RulesetID,
		"total":    report.Total,
		"accepted": len(report.Accepted),
		"rejected": len(report.Rejected),
		"warnings": len(report.Warnings),
	}).Debug("Validation completed")

	return report
}

// applyCohortRules evaluates cohort_size rules over the accepted set.
func (e *Engine) applyCohortRules(report *Report, rs *Ruleset) {
	cohorts := contracts.Cohorts(report.Accepted)

	seasons := make([]string, 0, len(cohorts))
	for season := range cohorts {
		seasons = append(seasons, season)
	}
	sort.Strings(seasons)

	for i := range rs.Rules {
		rule := &rs.Rules[i]
		if rule.Kind != KindCohortSize {
			continue
		}

		for _, season := range seasons {
			members := cohorts[season]
			if len(members) >= rule.MinSize {
				continue
			}

			v := Violation{
				RuleID: rule.ID,
				Cohort: season,
				Reason: fmt.Sprintf("cohort %s has %d records, minimum is %d", season, len(members), rule.MinSize),
			}

			switch rule.Severity {
			case SeverityRejectSnapshot:
				report.Snapshot = append(report.Snapshot, v)
			case SeverityRejectRecord:
				report.Warnings = append(report.Warnings, v)
				report.Accepted = removeCohort(report.Accepted, season)
				for _, rec := range members {
					report.Rejected = append(report.Rejected, Violation{
						RuleID:    rule.ID,
						RecordKey: rec.Key(),
						Cohort:    season,
						Reason:    v.Reason,
					})
				}
			case SeverityWarn:
				report.Warnings = append(report.Warnings, v)
				report.DeferredCohorts = append(report.DeferredCohorts, season)
			}
		}
	}

	sort.Strings(report.DeferredCohorts)
}

func removeCohort(records []contracts.Record, season string) []contracts.Record {
	kept := records[:0]
	for _, r := range records {
		if r.Season != season {
			kept = append(kept, r)
		}
	}
	return kept
}
