package lake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hooplab/goatindex/internal/contracts"
)

func TestManifestVersioning(t *testing.T) {
	m := &Manifest{Tier: contracts.TierBronze, Partition: "1996-97"}

	_, ok := m.Latest()
	assert.False(t, ok)
	assert.Equal(t, 1, m.NextVersion())
	assert.False(t, m.Has(1))

	m.Versions = append(m.Versions, VersionInfo{Version: 1, CreatedAt: time.Now()})
	m.Versions = append(m.Versions, VersionInfo{Version: 2, CreatedAt: time.Now()})

	latest, ok := m.Latest()
	assert.True(t, ok)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, 3, m.NextVersion())
	assert.True(t, m.Has(1))
	assert.False(t, m.Has(3))
}

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "silver/1996-97/v0003/data.json", dataKey(contracts.TierSilver, "1996-97", 3))
	assert.Equal(t, "silver/1996-97/v0003/report.json", reportKey(contracts.TierSilver, "1996-97", 3))
	assert.Equal(t, "gold/1996-97/manifest.json", manifestKey(contracts.TierGold, "1996-97"))
}
