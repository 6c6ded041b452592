package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hooplab/goatindex/internal/contracts"
)

const jordanBling = `
<div id="info">
<ul id="bling">
  <li><a href="/awards/">6× NBA Champ</a></li>
  <li><a href="/awards/">6× Finals MVP</a></li>
  <li><a href="/awards/">5× MVP</a></li>
  <li><a href="/awards/">14× All-Star</a></li>
  <li><a href="/awards/">11× All-NBA</a></li>
  <li><a href="/awards/">9× All-Defensive</a></li>
  <li><a href="/awards/">1987-88 Def. POY</a></li>
  <li><a href="/awards/">10× Scoring Champ</a></li>
</ul>
</div>
<p>290× mentions of MVP in the article body must not leak in.</p>
`

func TestParseAccoladesJordan(t *testing.T) {
	accolades := ParseAccolades(jordanBling)

	assert.Equal(t, 6.0, accolades[contracts.StatTitles])
	assert.Equal(t, 5.0, accolades[contracts.StatMVP])
	assert.Equal(t, 6.0, accolades[contracts.StatFinalsMVP])
	assert.Equal(t, 14.0, accolades[contracts.StatAllStar])
	assert.Equal(t, 11.0, accolades[contracts.StatAllNBA])
	assert.Equal(t, 9.0, accolades[contracts.StatAllDefense])
	assert.Equal(t, 10.0, accolades[contracts.StatScoringTit])

	// Single-year form counts as one award.
	assert.Equal(t, 1.0, accolades[contracts.StatDPOY])
}

func TestParseAccoladesMultiDPOY(t *testing.T) {
	html := `<ul id="bling"><li>2× NBA Champ</li><li>2x Def. POY</li></ul>`

	accolades := ParseAccolades(html)
	assert.Equal(t, 2.0, accolades[contracts.StatDPOY])
	assert.Equal(t, 2.0, accolades[contracts.StatTitles])
}

func TestParseAccoladesBareDPOY(t *testing.T) {
	// A bling entry with neither a count nor a year still counts as one
	// award.
	html := `<ul id="bling"><li>Def. POY</li></ul>`
	accolades := ParseAccolades(html)
	assert.Equal(t, 1.0, accolades[contracts.StatDPOY])

	// Outside the bling block the bare form is ignored; it would match
	// the sitewide award navigation on every player page.
	html = `<div id="nav"><a href="/awards/dpoy.html">Def. POY</a></div>`
	accolades = ParseAccolades(html)
	assert.Empty(t, accolades)
}

func TestParseAccoladesWholePageFallback(t *testing.T) {
	// Older layouts have no bling list.
	html := `<div id="info"><p>3× All-Star, 1995-96 Def. POY</p></div>`

	accolades := ParseAccolades(html)
	assert.Equal(t, 3.0, accolades[contracts.StatAllStar])
	assert.Equal(t, 1.0, accolades[contracts.StatDPOY])
}

func TestParseAccoladesAbsent(t *testing.T) {
	accolades := ParseAccolades(`<ul id="bling"><li>Hall of Fame</li></ul>`)
	assert.Empty(t, accolades)
}

func TestMergeAccolades(t *testing.T) {
	rec := contracts.Record{
		PlayerID: "jordami01",
		Season:   "1996-97",
		Stats: map[string]float64{
			contracts.StatPoints: 29.6,
			contracts.StatMVP:    4, // already present, must not be overwritten
		},
		IngestedAt: time.Now(),
	}

	MergeAccolades(&rec, map[string]float64{
		contracts.StatMVP:    5,
		contracts.StatTitles: 6,
	})

	assert.Equal(t, 4.0, rec.Stats[contracts.StatMVP])
	assert.Equal(t, 6.0, rec.Stats[contracts.StatTitles])
	assert.Equal(t, 29.6, rec.Stats[contracts.StatPoints])

	var empty contracts.Record
	MergeAccolades(&empty, map[string]float64{contracts.StatTitles: 1})
	assert.Equal(t, 1.0, empty.Stats[contracts.StatTitles])
}
