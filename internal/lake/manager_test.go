package lake

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/internal/validation"
	"github.com/hooplab/goatindex/pkg/config"
	"github.com/hooplab/goatindex/pkg/logger"
	"github.com/hooplab/goatindex/pkg/redis"
	"github.com/hooplab/goatindex/pkg/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	store, err := storage.NewLocal(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	// Disabled redis client: cache calls become no-ops.
	rcli, err := redis.New(&config.Config{})
	require.NoError(t, err)
	cache := redis.NewCache(rcli, "goat_test")

	rulesets := map[contracts.Tier]*validation.Ruleset{
		contracts.TierSilver: validation.DefaultSilver(10),
	}
	return NewManager(store, rulesets, cache, 5*time.Second, logger.NewNop())
}

func seasonRecords(season string, n int) []contracts.Record {
	recs := make([]contracts.Record, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, contracts.Record{
			PlayerID: fmt.Sprintf("player%03d", i),
			Player:   fmt.Sprintf("Player %03d", i),
			Season:   season,
			Stats: map[string]float64{
				contracts.StatGames:    70,
				contracts.StatPoints:   10 + float64(i),
				contracts.StatRebounds: 5,
				contracts.StatAssists:  3,
			},
		})
	}
	return recs
}

func TestCommitAndLoadRoundtrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	recs := seasonRecords("1996-97", 20)
	res, err := m.Commit(ctx, contracts.TierBronze, "1996-97", recs)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	assert.Equal(t, 20, len(res.Report.Accepted))

	got, err := m.Load(ctx, contracts.TierBronze, "1996-97", 1)
	require.NoError(t, err)
	assert.Equal(t, len(recs), len(got))
	assert.Equal(t, "player000", got[0].PlayerID)
}

func TestCommitDropsRejectedRecords(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	recs := seasonRecords("1996-97", 20)
	delete(recs[4].Stats, contracts.StatPoints)
	delete(recs[11].Stats, contracts.StatPoints)

	res, err := m.Commit(ctx, contracts.TierSilver, "1996-97", recs)
	require.NoError(t, err)
	assert.Len(t, res.Report.Rejected, 2)

	got, err := m.Load(ctx, contracts.TierSilver, "1996-97", res.Version)
	require.NoError(t, err)
	assert.Len(t, got, 18)
	for _, r := range got {
		_, ok := r.Stat(contracts.StatPoints)
		assert.True(t, ok)
	}
}

func TestCommitVersionsAreMonotonic(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	recs := seasonRecords("1996-97", 20)

	first, err := m.Commit(ctx, contracts.TierBronze, "1996-97", recs)
	require.NoError(t, err)
	second, err := m.Commit(ctx, contracts.TierBronze, "1996-97", recs)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)

	versions, err := m.Versions(ctx, contracts.TierBronze, "1996-97")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 2, versions[1].Version)

	// Committing the same set twice yields two independently loadable
	// versions, not a dedup.
	a, err := m.Load(ctx, contracts.TierBronze, "1996-97", 1)
	require.NoError(t, err)
	b, err := m.Load(ctx, contracts.TierBronze, "1996-97", 2)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, latest, err := m.LoadLatest(ctx, contracts.TierBronze, "1996-97")
	require.NoError(t, err)
	assert.Equal(t, 2, latest)
}

func TestCommitRejectedSnapshotWritesNothing(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	// Most records missing the structural games field fails the whole
	// commit.
	recs := seasonRecords("1996-97", 20)
	for i := 0; i < 15; i++ {
		delete(recs[i].Stats, contracts.StatGames)
	}

	_, err := m.Commit(ctx, contracts.TierSilver, "1996-97", recs)
	require.Error(t, err)

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Report.SnapshotRejected())

	versions, err := m.Versions(ctx, contracts.TierSilver, "1996-97")
	require.NoError(t, err)
	assert.Empty(t, versions)

	_, _, err = m.LoadLatest(ctx, contracts.TierSilver, "1996-97")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadUnknownVersion(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Commit(ctx, contracts.TierBronze, "1996-97", seasonRecords("1996-97", 5))
	require.NoError(t, err)

	_, err = m.Load(ctx, contracts.TierBronze, "1996-97", 7)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = m.Load(ctx, contracts.TierBronze, "2003-04", 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCommitRejectsBadPartition(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Commit(ctx, contracts.TierBronze, "", nil)
	assert.Error(t, err)

	_, err = m.Commit(ctx, contracts.TierBronze, "1996/97", nil)
	assert.Error(t, err)
}

func TestReportPersisted(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	recs := seasonRecords("1996-97", 20)
	recs[3].Stats[contracts.StatRebounds] = -1

	res, err := m.Commit(ctx, contracts.TierSilver, "1996-97", recs)
	require.NoError(t, err)

	report, err := m.Report(ctx, contracts.TierSilver, "1996-97", res.Version)
	require.NoError(t, err)
	assert.Equal(t, 20, report.Total)
	assert.NotEmpty(t, report.Warnings)
	assert.Equal(t, res.Report.RulesetHash, report.RulesetHash)
}

func TestPartitions(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, season := range []string{"1996-97", "2015-16", "1985-86"} {
		_, err := m.Commit(ctx, contracts.TierBronze, season, seasonRecords(season, 5))
		require.NoError(t, err)
	}

	partitions, err := m.Partitions(ctx, contracts.TierBronze)
	require.NoError(t, err)
	assert.Equal(t, []string{"1985-86", "1996-97", "2015-16"}, partitions)

	empty, err := m.Partitions(ctx, contracts.TierSilver)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCommitScoresRoundtrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	scores := []contracts.Score{
		{PlayerID: "jordami01", Player: "Michael Jordan", Season: "1996-97", Status: contracts.StatusScored, Composite: 98.4, Rank: 1},
		{PlayerID: "malonka01", Player: "Karl Malone", Season: "1996-97", Status: contracts.StatusScored, Composite: 91.2, Rank: 2},
		{PlayerID: "rookie01", Player: "Some Rookie", Season: "1996-97", Status: contracts.StatusUnscored},
	}

	res, err := m.CommitScores(ctx, "1996-97", scores)
	require.NoError(t, err)
	assert.Equal(t, contracts.TierGold, res.Tier)
	assert.Equal(t, 1, res.Version)

	got, latest, err := m.LoadLatestScores(ctx, "1996-97")
	require.NoError(t, err)
	assert.Equal(t, 1, latest)
	require.Len(t, got, 3)
	assert.Equal(t, "jordami01", got[0].PlayerID)
	assert.Equal(t, contracts.StatusUnscored, got[2].Status)
}

func TestCommitScoresRejectsOutOfRange(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.CommitScores(ctx, "1996-97", []contracts.Score{
		{PlayerID: "p", Season: "1996-97", Status: contracts.StatusScored, Composite: 101},
	})
	assert.Error(t, err)

	_, err = m.CommitScores(ctx, "1996-97", []contracts.Score{
		{PlayerID: "p", Season: "1996-97", Status: contracts.StatusScored, Composite: -0.5},
	})
	assert.Error(t, err)

	// Unscored entries carry no composite; they never trip the range
	// check.
	_, err = m.CommitScores(ctx, "1996-97", []contracts.Score{
		{PlayerID: "p", Season: "1996-97", Status: contracts.StatusUnscored},
	})
	assert.NoError(t, err)
}
