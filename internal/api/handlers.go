package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/internal/lake"
	"github.com/hooplab/goatindex/pkg/logger"
	"github.com/hooplab/goatindex/pkg/storage"
)

// Handler serves the consumption endpoints. It only ever loads committed
// snapshots through the lake manager.
type Handler struct {
	lake   *lake.Manager
	logger *logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(manager *lake.Manager, log *logger.Logger) *Handler {
	return &Handler{lake: manager, logger: log}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "goatindex-api",
	})
}

// rankingsResponse is the payload of GET /api/v1/rankings/{season}.
type rankingsResponse struct {
	Season  string            `json:"season"`
	Version int               `json:"version"`
	Scores  []contracts.Score `json:"scores"`
}

// GetRankings returns the latest gold snapshot for a season.
func (h *Handler) GetRankings(w http.ResponseWriter, r *http.Request) {
	season := mux.Vars(r)["season"]

	scores, version, err := h.lake.LoadLatestScores(r.Context(), season)
	if err != nil {
		h.writeError(w, season, err)
		return
	}

	writeJSON(w, http.StatusOK, rankingsResponse{
		Season:  season,
		Version: version,
		Scores:  scores,
	})
}

// versionsResponse is the payload of GET /api/v1/versions/{tier}/{partition}.
type versionsResponse struct {
	Tier      string             `json:"tier"`
	Partition string             `json:"partition"`
	Versions  []lake.VersionInfo `json:"versions"`
}

// GetVersions lists the committed versions of a partition.
func (h *Handler) GetVersions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	tier, err := contracts.ParseTier(vars["tier"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	versions, err := h.lake.Versions(r.Context(), tier, vars["partition"])
	if err != nil {
		h.writeError(w, vars["partition"], err)
		return
	}

	writeJSON(w, http.StatusOK, versionsResponse{
		Tier:      string(tier),
		Partition: vars["partition"],
		Versions:  versions,
	})
}

// writeError maps the storage taxonomy onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, partition string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	h.logger.WithError(err).WithField("partition", partition).Warn("Request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
