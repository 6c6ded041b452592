package validation

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/pkg/logger"
)

func record(id, season string, stats map[string]float64) contracts.Record {
	return contracts.Record{
		PlayerID: id,
		Player:   id,
		Season:   season,
		Stats:    stats,
	}
}

// cohort builds n complete records for one season.
func cohort(season string, n int) []contracts.Record {
	recs := make([]contracts.Record, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, record(fmt.Sprintf("player%03d", i), season, map[string]float64{
			contracts.StatGames:    70,
			contracts.StatPoints:   10 + float64(i),
			contracts.StatRebounds: 5,
			contracts.StatAssists:  3,
		}))
	}
	return recs
}

func TestValidateRejectRecord(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	rs := DefaultSilver(10)

	recs := cohort("1996-97", 100)
	// Three records lose their points field.
	for _, i := range []int{3, 47, 91} {
		delete(recs[i].Stats, contracts.StatPoints)
	}

	report := engine.Validate(recs, rs)

	require.False(t, report.SnapshotRejected())
	assert.Equal(t, 100, report.Total)
	assert.Len(t, report.Accepted, 97)
	assert.Len(t, report.Rejected, 3)
	for _, v := range report.Rejected {
		assert.Equal(t, "points-required", v.RuleID)
	}
}

func TestValidateRejectSnapshotRatio(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	rs := DefaultSilver(10)

	// 60 of 100 records missing the structural games field: above the
	// 50% threshold, so the whole snapshot is rejected.
	recs := cohort("1996-97", 100)
	for i := 0; i < 60; i++ {
		delete(recs[i].Stats, contracts.StatGames)
	}

	report := engine.Validate(recs, rs)

	require.True(t, report.SnapshotRejected())
	require.Len(t, report.Snapshot, 1)
	assert.Equal(t, "games-required", report.Snapshot[0].RuleID)
}

func TestValidateStructuralBelowThresholdWarns(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	rs := DefaultSilver(10)

	recs := cohort("1996-97", 100)
	for i := 0; i < 10; i++ {
		delete(recs[i].Stats, contracts.StatGames)
	}

	report := engine.Validate(recs, rs)

	assert.False(t, report.SnapshotRejected())
	assert.Len(t, report.Accepted, 100)
	assert.GreaterOrEqual(t, len(report.Warnings), 10)
}

func TestValidateWarnPassesThrough(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	rs := DefaultSilver(10)

	recs := cohort("1996-97", 20)
	recs[5].Stats[contracts.StatRebounds] = -1

	report := engine.Validate(recs, rs)

	assert.False(t, report.SnapshotRejected())
	assert.Len(t, report.Accepted, 20)

	found := false
	for _, v := range report.Warnings {
		if v.RuleID == "rebounds-nonnegative" {
			found = true
		}
	}
	assert.True(t, found, "expected rebounds-nonnegative warning")
}

func TestValidateCohortDeferral(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	rs := DefaultSilver(10)

	recs := append(cohort("1996-97", 20), cohort("1997-98", 4)...)

	report := engine.Validate(recs, rs)

	assert.False(t, report.SnapshotRejected())
	assert.Len(t, report.Accepted, 24)
	assert.Equal(t, []string{"1997-98"}, report.DeferredCohorts)
}

func TestValidateCohortSizeRejectSnapshot(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	rs := &Ruleset{
		Meta: RulesetMeta{RulesetID: "strict"},
		Rules: []Rule{
			{ID: "cohort-hard", Kind: KindCohortSize, Severity: SeverityRejectSnapshot, MinSize: 10},
		},
	}
	require.NoError(t, rs.Validate())

	report := engine.Validate(cohort("1996-97", 4), rs)

	assert.True(t, report.SnapshotRejected())
}

func TestValidateCrossField(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	rs := &Ruleset{
		Meta: RulesetMeta{RulesetID: "cross"},
		Rules: []Rule{
			{ID: "ws48-le-ws", Kind: KindCrossField, Severity: SeverityRejectRecord,
				Left: contracts.StatWS48, Op: OpLE, Right: contracts.StatWinShares},
		},
	}
	require.NoError(t, rs.Validate())

	recs := []contracts.Record{
		record("ok", "1996-97", map[string]float64{contracts.StatWS48: 0.2, contracts.StatWinShares: 15}),
		record("bad", "1996-97", map[string]float64{contracts.StatWS48: 20, contracts.StatWinShares: 15}),
		record("partial", "1996-97", map[string]float64{contracts.StatWinShares: 15}),
	}

	report := engine.Validate(recs, rs)

	assert.Len(t, report.Accepted, 2)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "bad|1996-97", report.Rejected[0].RecordKey)
}

// A cross_field rule at reject_snapshot severity must abort the commit
// once the violating share crosses the threshold, exactly like a
// structural field rule.
func TestValidateCrossFieldRejectSnapshot(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	rs := &Ruleset{
		Meta: RulesetMeta{RulesetID: "structural_cross"},
		Rules: []Rule{
			{ID: "ws48-le-ws", Kind: KindCrossField, Severity: SeverityRejectSnapshot,
				Left: contracts.StatWS48, Op: OpLE, Right: contracts.StatWinShares},
		},
	}
	require.NoError(t, rs.Validate())
	// Validate applies the default abort threshold to cross_field rules
	// as well.
	assert.Equal(t, DefaultMaxViolationRatio, rs.Rules[0].MaxViolationRatio)

	recs := []contracts.Record{
		record("a", "1996-97", map[string]float64{contracts.StatWS48: 20, contracts.StatWinShares: 15}),
		record("b", "1996-97", map[string]float64{contracts.StatWS48: 30, contracts.StatWinShares: 15}),
	}

	report := engine.Validate(recs, rs)

	require.True(t, report.SnapshotRejected())
	require.Len(t, report.Snapshot, 1)
	assert.Equal(t, "ws48-le-ws", report.Snapshot[0].RuleID)

	// Below the threshold the hits stay warnings and the commit proceeds.
	recs = []contracts.Record{
		record("a", "1996-97", map[string]float64{contracts.StatWS48: 20, contracts.StatWinShares: 15}),
		record("b", "1996-97", map[string]float64{contracts.StatWS48: 0.2, contracts.StatWinShares: 15}),
		record("c", "1996-97", map[string]float64{contracts.StatWS48: 0.1, contracts.StatWinShares: 15}),
	}

	report = engine.Validate(recs, rs)
	assert.False(t, report.SnapshotRejected())
	assert.Len(t, report.Accepted, 3)
	assert.Len(t, report.Warnings, 1)
}

// Re-validating the same input must produce byte-identical reports,
// regardless of input ordering.
func TestValidateDeterministic(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	rs := DefaultSilver(10)

	recs := cohort("1996-97", 50)
	delete(recs[7].Stats, contracts.StatPoints)
	recs[12].Stats[contracts.StatAssists] = -2

	first := engine.Validate(recs, rs)
	a, err := first.Encode()
	require.NoError(t, err)

	// Shuffle deterministically by reversing.
	reversed := make([]contracts.Record, len(recs))
	for i, r := range recs {
		reversed[len(recs)-1-i] = r
	}
	second := engine.Validate(reversed, rs)
	b, err := second.Encode()
	require.NoError(t, err)

	assert.True(t, bytes.Equal(a, b), "reports differ across re-runs")
}
