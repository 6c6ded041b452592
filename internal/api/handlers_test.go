package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/internal/lake"
	"github.com/hooplab/goatindex/internal/validation"
	"github.com/hooplab/goatindex/pkg/config"
	"github.com/hooplab/goatindex/pkg/logger"
	"github.com/hooplab/goatindex/pkg/redis"
	"github.com/hooplab/goatindex/pkg/storage"
)

func newTestRouter(t *testing.T) (http.Handler, *lake.Manager) {
	t.Helper()

	store, err := storage.NewLocal(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rcli, err := redis.New(&config.Config{})
	require.NoError(t, err)
	cache := redis.NewCache(rcli, "goat_test")

	rulesets := map[contracts.Tier]*validation.Ruleset{
		contracts.TierSilver: validation.DefaultSilver(10),
	}
	manager := lake.NewManager(store, rulesets, cache, 5*time.Second, logger.NewNop())

	return NewRouter(NewHandler(manager, logger.NewNop()), logger.NewNop()), manager
}

func doGet(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doGet(t, router, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetRankings(t *testing.T) {
	router, manager := newTestRouter(t)

	scores := []contracts.Score{
		{PlayerID: "jordami01", Player: "Michael Jordan", Season: "1996-97", Status: contracts.StatusScored, Composite: 98.4, Rank: 1},
		{PlayerID: "malonka01", Player: "Karl Malone", Season: "1996-97", Status: contracts.StatusScored, Composite: 91.2, Rank: 2},
	}
	_, err := manager.CommitScores(context.Background(), "1996-97", scores)
	require.NoError(t, err)

	rr := doGet(t, router, "/api/v1/rankings/1996-97")
	require.Equal(t, http.StatusOK, rr.Code)

	var body rankingsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "1996-97", body.Season)
	assert.Equal(t, 1, body.Version)
	require.Len(t, body.Scores, 2)
	assert.Equal(t, "jordami01", body.Scores[0].PlayerID)
}

func TestGetRankingsUnknownSeason(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doGet(t, router, "/api/v1/rankings/1900-01")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetVersions(t *testing.T) {
	router, manager := newTestRouter(t)

	recs := []contracts.Record{
		{PlayerID: "jordami01", Season: "1996-97", Stats: map[string]float64{contracts.StatGames: 82}},
	}
	_, err := manager.Commit(context.Background(), contracts.TierBronze, "1996-97", recs)
	require.NoError(t, err)
	_, err = manager.Commit(context.Background(), contracts.TierBronze, "1996-97", recs)
	require.NoError(t, err)

	rr := doGet(t, router, "/api/v1/versions/bronze/1996-97")
	require.Equal(t, http.StatusOK, rr.Code)

	var body versionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "bronze", body.Tier)
	require.Len(t, body.Versions, 2)
	assert.Equal(t, 1, body.Versions[0].Version)
	assert.Equal(t, 2, body.Versions[1].Version)
}

func TestGetVersionsUnknownTier(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doGet(t, router, "/api/v1/versions/platinum/1996-97")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
