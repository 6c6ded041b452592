package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/pkg/logger"
)

// Engine computes era-normalized composite scores from silver records.
// Inputs are read-only; the engine owns Score derivation and nothing
// else.
type Engine struct {
	weights       *Weights
	minCohortSize int
	rescaler      Rescaler
	logger        *logger.Logger
}

// NewEngine creates a scoring engine.
func NewEngine(weights *Weights, minCohortSize int, rescaler Rescaler, log *logger.Logger) *Engine {
	return &Engine{
		weights:       weights,
		minCohortSize: minCohortSize,
		rescaler:      rescaler,
		logger:        log,
	}
}

// cohortResult holds the outcome for one season. Composite carries the
// raw weighted z-score sum until the rescale pass.
type cohortResult struct {
	season string
	scores []contracts.Score
	scored bool
}

// Score normalizes every cohort, folds z-scores into raw composites,
// rescales across the full population of the run, and ranks. Cohorts
// below the minimum sample size are excluded from normalization; their
// players are emitted with the unscored status instead of a score of 0.
//
// Cohorts are independent, so they are scored in parallel; results merge
// in sorted season order, which keeps output deterministic.
func (e *Engine) Score(ctx context.Context, records []contracts.Record) ([]contracts.Score, error) {
	weightsHash, err := e.weights.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash weights: %w", err)
	}

	cohorts := contracts.Cohorts(records)
	seasons := make([]string, 0, len(cohorts))
	for season := range cohorts {
		seasons = append(seasons, season)
	}
	sort.Strings(seasons)

	results := make([]cohortResult, len(seasons))
	g, _ := errgroup.WithContext(ctx)
	for i, season := range seasons {
		i, season := i, season
		g.Go(func() error {
			results[i] = e.scoreCohort(season, cohorts[season], weightsHash)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Fit the rescale transform over every raw composite in the run.
	var raws []float64
	for _, res := range results {
		if !res.scored {
			continue
		}
		for _, s := range res.scores {
			raws = append(raws, s.Composite)
		}
	}
	e.rescaler.Fit(raws)

	var scored, unscored []contracts.Score
	for _, res := range results {
		if !res.scored {
			unscored = append(unscored, res.scores...)
			continue
		}
		for _, s := range res.scores {
			s.Composite = e.rescaler.Apply(s.Composite)
			scored = append(scored, s)
		}
	}

	rank(scored)

	out := append(scored, unscored...)
	contracts.SortScores(out)

	e.logger.WithFields(map[string]interface{}{
		"cohorts":  len(seasons),
		"scored":   len(scored),
		"unscored": len(unscored),
		"rescale":  e.rescaler.Name(),
	}).Info("Scoring run completed")

	return out, nil
}

// scoreCohort normalizes one season cohort.
func (e *Engine) scoreCohort(season string, members []contracts.Record, weightsHash string) cohortResult {
	sorted := make([]contracts.Record, len(members))
	copy(sorted, members)
	contracts.SortRecords(sorted)

	res := cohortResult{season: season}

	if len(sorted) < e.minCohortSize {
		for _, rec := range sorted {
			res.scores = append(res.scores, contracts.Score{
				PlayerID: rec.PlayerID,
				Player:   rec.Player,
				Season:   season,
				Status:   contracts.StatusUnscored,
			})
		}
		return res
	}
	res.scored = true

	fields := make([]string, 0, len(e.weights.Fields))
	for field := range e.weights.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	stats := make(map[string]fieldStats, len(fields))
	for _, field := range fields {
		stats[field] = cohortFieldStats(sorted, field)
	}

	for _, rec := range sorted {
		components := make(map[string]float64, len(fields))
		raw := 0.0
		for _, field := range fields {
			v, ok := rec.Stat(field)
			if !ok {
				continue
			}
			// stddev == 0 contributes exactly 0 for every member of the
			// cohort; defined, not an error.
			z := 0.0
			if s := stats[field]; s.stddev > 0 {
				z = (v - s.mean) / s.stddev
			}
			components[field] = z
			raw += e.weights.Fields[field] * z
		}

		res.scores = append(res.scores, contracts.Score{
			PlayerID:    rec.PlayerID,
			Player:      rec.Player,
			Season:      season,
			Status:      contracts.StatusScored,
			Composite:   raw,
			Components:  components,
			Weights:     e.weights.Fields,
			WeightsHash: weightsHash,
		})
	}

	return res
}

type fieldStats struct {
	mean, stddev float64
}

// cohortFieldStats computes the population mean and standard deviation of
// one field over the records that carry it.
func cohortFieldStats(records []contracts.Record, field string) fieldStats {
	var sum float64
	var n int
	for _, rec := range records {
		if v, ok := rec.Stat(field); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return fieldStats{}
	}
	mean := sum / float64(n)

	var ss float64
	for _, rec := range records {
		if v, ok := rec.Stat(field); ok {
			d := v - mean
			ss += d * d
		}
	}

	return fieldStats{mean: mean, stddev: math.Sqrt(ss / float64(n))}
}

// rank orders by descending composite with ties broken by ascending
// player id, then assigns 1-based ranks across the whole scored
// population of the run.
func rank(scored []contracts.Score) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Composite != scored[j].Composite {
			return scored[i].Composite > scored[j].Composite
		}
		return scored[i].PlayerID < scored[j].PlayerID
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}
}
