package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/internal/lake"
	"github.com/hooplab/goatindex/internal/scoring"
	"github.com/hooplab/goatindex/pkg/logger"
)

// Runner orchestrates the bronze -> silver -> gold flow. Each stage reads
// only from the previous tier and writes only to its own, always through
// the lake manager.
type Runner struct {
	lake   *lake.Manager
	scorer *scoring.Engine
	logger *logger.Logger
}

// NewRunner creates a pipeline runner.
func NewRunner(manager *lake.Manager, scorer *scoring.Engine, log *logger.Logger) *Runner {
	return &Runner{
		lake:   manager,
		scorer: scorer,
		logger: log,
	}
}

// PromoteSeason promotes the latest bronze snapshot of one season to the
// silver tier. Record-level rejections are recorded in the report and do
// not fail the promotion; a snapshot-level violation aborts it with the
// report attached.
func (r *Runner) PromoteSeason(ctx context.Context, season string) (*lake.CommitResult, error) {
	records, bronzeVersion, err := r.lake.LoadLatest(ctx, contracts.TierBronze, season)
	if err != nil {
		return nil, fmt.Errorf("load bronze %s: %w", season, err)
	}

	result, err := r.lake.Commit(ctx, contracts.TierSilver, season, records)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(map[string]interface{}{
		"season":         season,
		"bronze_version": bronzeVersion,
		"silver_version": result.Version,
		"accepted":       len(result.Report.Accepted),
		"rejected":       len(result.Report.Rejected),
	}).Info("Season promoted to silver")

	return result, nil
}

// PromoteAll promotes every season present in the bronze tier, in sorted
// order. A failed season does not stop the others; failures are reported
// together at the end.
func (r *Runner) PromoteAll(ctx context.Context) ([]*lake.CommitResult, error) {
	seasons, err := r.lake.Partitions(ctx, contracts.TierBronze)
	if err != nil {
		return nil, err
	}
	sort.Strings(seasons)

	var results []*lake.CommitResult
	var failed []string
	for _, season := range seasons {
		result, err := r.PromoteSeason(ctx, season)
		if err != nil {
			r.logger.WithError(err).WithField("season", season).Error("Promotion failed")
			failed = append(failed, season)
			continue
		}
		results = append(results, result)
	}

	if len(failed) > 0 {
		return results, fmt.Errorf("promotion failed for %d season(s): %v", len(failed), failed)
	}
	return results, nil
}

// Rebuild runs a full scoring pass: it loads the latest silver snapshot
// of every season, scores the whole population in one run (so the
// rescale transform spans all eras), and commits one gold snapshot per
// season. Partitions are processed in sorted order; results are
// deterministic for identical inputs and weights.
func (r *Runner) Rebuild(ctx context.Context) (map[string]*lake.CommitResult, error) {
	seasons, err := r.lake.Partitions(ctx, contracts.TierSilver)
	if err != nil {
		return nil, err
	}
	if len(seasons) == 0 {
		return nil, fmt.Errorf("no silver seasons to score")
	}
	sort.Strings(seasons)

	var population []contracts.Record
	for _, season := range seasons {
		records, _, err := r.lake.LoadLatest(ctx, contracts.TierSilver, season)
		if err != nil {
			return nil, fmt.Errorf("load silver %s: %w", season, err)
		}
		population = append(population, records...)
	}

	scores, err := r.scorer.Score(ctx, population)
	if err != nil {
		return nil, fmt.Errorf("score population: %w", err)
	}

	bySeason := make(map[string][]contracts.Score)
	for _, s := range scores {
		bySeason[s.Season] = append(bySeason[s.Season], s)
	}

	results := make(map[string]*lake.CommitResult, len(bySeason))
	for _, season := range seasons {
		seasonScores, ok := bySeason[season]
		if !ok {
			continue
		}
		result, err := r.lake.CommitScores(ctx, season, seasonScores)
		if err != nil {
			return results, fmt.Errorf("commit gold %s: %w", season, err)
		}
		results[season] = result
	}

	r.logger.WithFields(map[string]interface{}{
		"seasons": len(results),
		"players": len(scores),
	}).Info("Gold tier rebuilt")

	return results, nil
}
