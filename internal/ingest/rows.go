package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hooplab/goatindex/internal/contracts"
)

// DecodeRows converts raw JSON rows delivered by the extractor into
// bronze records. The pipeline never fetches source pages itself; it
// only stamps provenance onto what it is handed.
func DecodeRows(data []byte, source string, now time.Time) ([]contracts.Record, error) {
	var records []contracts.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	for i := range records {
		if records[i].PlayerID == "" {
			return nil, fmt.Errorf("row %d: player_id is required", i)
		}
		if records[i].Season == "" {
			return nil, fmt.Errorf("row %d (%s): season is required", i, records[i].PlayerID)
		}
		if records[i].Source == "" {
			records[i].Source = source
		}
		records[i].IngestedAt = now
	}

	return records, nil
}
