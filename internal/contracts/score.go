package contracts

import "sort"

// ScoreStatus marks whether a player-season received a composite score.
type ScoreStatus string

const (
	// StatusScored means the cohort was large enough to normalize.
	StatusScored ScoreStatus = "scored"
	// StatusUnscored means the cohort was below the minimum sample size.
	// Unscored players carry no composite and no rank.
	StatusUnscored ScoreStatus = "unscored"
)

// Score is the derived GOAT entity, one per (player, season) per gold
// version. Scores are append-only: a new weight vector or input snapshot
// produces a new gold version, never an in-place update.
type Score struct {
	PlayerID    string             `json:"player_id"`
	Player      string             `json:"player,omitempty"`
	Season      string             `json:"season"`
	Status      ScoreStatus        `json:"status"`
	Composite   float64            `json:"composite"` // bounded [0,100]
	Rank        int                `json:"rank,omitempty"`
	Components  map[string]float64 `json:"components,omitempty"` // per-field z-scores
	Weights     map[string]float64 `json:"weights,omitempty"`
	WeightsHash string             `json:"weights_hash,omitempty"`
}

// SortScores orders scores by rank, with unscored entries last sorted by
// player id. Used when ranking output is rendered or committed.
func SortScores(scores []Score) {
	sort.Slice(scores, func(i, j int) bool {
		si, sj := scores[i], scores[j]
		if (si.Status == StatusScored) != (sj.Status == StatusScored) {
			return si.Status == StatusScored
		}
		if si.Status == StatusScored {
			return si.Rank < sj.Rank
		}
		if si.Season != sj.Season {
			return si.Season < sj.Season
		}
		return si.PlayerID < sj.PlayerID
	})
}
