package ingest

import (
	"regexp"
	"strconv"

	"github.com/hooplab/goatindex/internal/contracts"
)

// Accolade extraction works on the raw "bling" markup of a player page
// (<ul id="bling">). The source renders multi-award entries as "6× Finals
// MVP" or "2x Def. POY" and single awards in year form ("1987-88 Def.
// POY") or bare ("Def. POY"), so each accolade needs a count pattern
// and, where the single forms occur, presence patterns.

var blingBlock = regexp.MustCompile(`(?is)<ul[^>]*id="bling"[^>]*>.*?</ul>`)

type accoladePattern struct {
	field string
	count *regexp.Regexp
	once  *regexp.Regexp // single-award year form, counts as 1
	bare  *regexp.Regexp // bare presence form, counts as 1; bling scope only
}

var accoladePatterns = []accoladePattern{
	{
		field: contracts.StatTitles,
		count: regexp.MustCompile(`(\d+)\s*[×x]\s*NBA\s+Champ`),
	},
	{
		field: contracts.StatMVP,
		count: regexp.MustCompile(`(\d+)\s*[×x]\s*MVP\b`),
	},
	{
		field: contracts.StatFinalsMVP,
		count: regexp.MustCompile(`(\d+)\s*[×x]\s*Finals\s+MVP`),
	},
	{
		field: contracts.StatAllStar,
		count: regexp.MustCompile(`(\d+)\s*[×x]\s*All[\s-]Star`),
	},
	{
		field: contracts.StatAllNBA,
		count: regexp.MustCompile(`(\d+)\s*[×x]\s*All-NBA`),
	},
	{
		field: contracts.StatAllDefense,
		count: regexp.MustCompile(`(\d+)\s*[×x]\s*All-Defensive`),
	},
	{
		field: contracts.StatDPOY,
		count: regexp.MustCompile(`(\d{1,2})\s*[×x]\s*(?:Def\.\s*POY|DPOY|Defensive\s+Player)`),
		once:  regexp.MustCompile(`\b\d{4}-\d{2}\s*Def\.\s*POY\b`),
		bare:  regexp.MustCompile(`\bDef\.\s*POY\b`),
	},
	{
		field: contracts.StatScoringTit,
		count: regexp.MustCompile(`(\d+)\s*[×x]\s*(?:NBA\s+)?Scoring\s+Champ`),
	},
}

// ParseAccolades extracts accolade counts from a player page. It prefers
// the bling block and falls back to the whole page when the block is
// missing (older page layouts). Absent accolades are simply not present
// in the result.
func ParseAccolades(html string) map[string]float64 {
	scope := html
	inBling := false
	if block := blingBlock.FindString(html); block != "" {
		scope = block
		inBling = true
	}

	accolades := make(map[string]float64)
	for _, p := range accoladePatterns {
		if m := p.count.FindStringSubmatch(scope); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				accolades[p.field] = float64(n)
				continue
			}
		}
		if p.once != nil && p.once.MatchString(scope) {
			accolades[p.field] = 1
			continue
		}
		// The bare form is too weak for a whole page: sitewide award
		// navigation would match it.
		if p.bare != nil && inBling && p.bare.MatchString(scope) {
			accolades[p.field] = 1
		}
	}

	return accolades
}

// MergeAccolades folds accolade counts into a record's stat map without
// overwriting fields the record already carries.
func MergeAccolades(rec *contracts.Record, accolades map[string]float64) {
	if rec.Stats == nil {
		rec.Stats = make(map[string]float64, len(accolades))
	}
	for field, v := range accolades {
		if _, exists := rec.Stats[field]; !exists {
			rec.Stats[field] = v
		}
	}
}
