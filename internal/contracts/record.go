package contracts

import (
	"fmt"
	"sort"
	"time"
)

// Tier identifies a layer of the lake.
type Tier string

const (
	TierBronze Tier = "bronze" // raw, as delivered by the extractor
	TierSilver Tier = "silver" // validated and cleaned
	TierGold   Tier = "gold"   // aggregated scores
)

// ParseTier converts a string into a Tier.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierBronze, TierSilver, TierGold:
		return Tier(s), nil
	default:
		return "", fmt.Errorf("unknown tier: %q", s)
	}
}

// Record is one player-season observation. Records are immutable once
// committed to a tier; corrections produce a new snapshot version.
type Record struct {
	PlayerID   string             `json:"player_id"`
	Player     string             `json:"player,omitempty"`
	Season     string             `json:"season"`
	Stats      map[string]float64 `json:"stats"`
	Source     string             `json:"source,omitempty"`
	IngestedAt time.Time          `json:"ingested_at"`
}

// Key returns the stable identity of the observation within a snapshot.
func (r Record) Key() string {
	return r.PlayerID + "|" + r.Season
}

// Stat returns the named statistical field and whether it is present.
func (r Record) Stat(name string) (float64, bool) {
	v, ok := r.Stats[name]
	return v, ok
}

// SortRecords orders records by (Season, PlayerID). Every stage that
// iterates a record set sorts first so results are reproducible.
func SortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Season != records[j].Season {
			return records[i].Season < records[j].Season
		}
		return records[i].PlayerID < records[j].PlayerID
	})
}

// Cohorts groups records by season. Map iteration order is not stable;
// callers must sort the keys before ranging.
func Cohorts(records []Record) map[string][]Record {
	cohorts := make(map[string][]Record)
	for _, r := range records {
		cohorts[r.Season] = append(cohorts[r.Season], r)
	}
	return cohorts
}

// Canonical per-game and advanced stat field names, as published by the
// source tables.
const (
	StatGames      = "g"
	StatPoints     = "pts_per_g"
	StatRebounds   = "trb_per_g"
	StatAssists    = "ast_per_g"
	StatTrueShoot  = "ts_pct"
	StatPER        = "per"
	StatBPM        = "bpm"
	StatWinShares  = "ws"
	StatWS48       = "ws_per_48"
	StatVORP       = "vorp"
	StatTitles     = "championships"
	StatMVP        = "mvp"
	StatAllStar    = "all_star"
	StatAllNBA     = "all_nba"
	StatFinalsMVP  = "finals_mvp"
	StatDPOY       = "dpoy"
	StatAllDefense = "all_defensive"
	StatScoringTit = "scoring_titles"
)
