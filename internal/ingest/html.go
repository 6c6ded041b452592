package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hooplab/goatindex/internal/contracts"
)

// Basketball-Reference hides secondary tables inside HTML comments to
// defeat naive DOM parsing. commentedTable matches a comment that wraps
// a whole table so it can be spliced back into the document before
// parsing.
var commentedTable = regexp.MustCompile(`(?s)<!--(.*?)-->`)

// statCells maps the source table's data-stat attributes onto canonical
// record fields.
var statCells = map[string]string{
	"g":         contracts.StatGames,
	"pts_per_g": contracts.StatPoints,
	"trb_per_g": contracts.StatRebounds,
	"ast_per_g": contracts.StatAssists,
	"ts_pct":    contracts.StatTrueShoot,
	"per":       contracts.StatPER,
	"bpm":       contracts.StatBPM,
	"ws":        contracts.StatWinShares,
	"ws_per_48": contracts.StatWS48,
	"vorp":      contracts.StatVORP,
}

// ParsePerGameTable parses a season per-game page (already fetched by the
// external extractor) into bronze records for that season partition.
func ParsePerGameTable(html []byte, season, source string, now time.Time) ([]contracts.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(uncommentTables(string(html))))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var records []contracts.Record
	seen := make(map[string]bool)

	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		// Header separator rows repeat inside long tables.
		if row.HasClass("thead") {
			return
		}

		playerCell := row.Find(`[data-stat="player"]`).First()
		if playerCell.Length() == 0 {
			return
		}

		playerID := playerIDFrom(playerCell)
		if playerID == "" || seen[playerID] {
			return
		}

		stats := make(map[string]float64)
		row.Find("td[data-stat]").Each(func(_ int, cell *goquery.Selection) {
			stat, _ := cell.Attr("data-stat")
			field, ok := statCells[stat]
			if !ok {
				return
			}
			text := strings.TrimSpace(cell.Text())
			if text == "" {
				return
			}
			if v, err := strconv.ParseFloat(text, 64); err == nil {
				stats[field] = v
			}
		})
		if len(stats) == 0 {
			return
		}

		seen[playerID] = true
		records = append(records, contracts.Record{
			PlayerID:   playerID,
			Player:     strings.TrimSpace(playerCell.Text()),
			Season:     season,
			Stats:      stats,
			Source:     source,
			IngestedAt: now,
		})
	})

	if len(records) == 0 {
		return nil, fmt.Errorf("no player rows found for season %s", season)
	}

	return records, nil
}

// playerIDFrom extracts the stable player key. The source puts it in the
// data-append-csv attribute; older pages only carry the href.
func playerIDFrom(cell *goquery.Selection) string {
	if id, ok := cell.Attr("data-append-csv"); ok && id != "" {
		return id
	}

	href, ok := cell.Find("a").First().Attr("href")
	if !ok {
		return ""
	}
	// /players/j/jordami01.html -> jordami01
	base := href[strings.LastIndex(href, "/")+1:]
	return strings.TrimSuffix(base, ".html")
}

// uncommentTables splices commented-out tables back into the markup so
// goquery can see them. Comments without a table pass through untouched.
func uncommentTables(html string) string {
	return commentedTable.ReplaceAllStringFunc(html, func(m string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(m, "<!--"), "-->")
		if strings.Contains(inner, "<table") {
			return inner
		}
		return m
	})
}
