package lake

import (
	"fmt"
	"time"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/internal/validation"
)

// VersionInfo describes one committed snapshot version.
type VersionInfo struct {
	Version   int                `json:"version"`
	Records   int                `json:"records"`
	CreatedAt time.Time          `json:"created_at"`
	Summary   validation.Summary `json:"summary"`
}

// Manifest lists the committed versions of one (tier, partition). The
// manifest rewrite is the commit point: a version is discoverable if and
// only if it appears here. Versions are ascending and monotonically
// increasing.
type Manifest struct {
	Tier      contracts.Tier `json:"tier"`
	Partition string         `json:"partition"`
	Versions  []VersionInfo  `json:"versions"`
}

// Latest returns the most recent committed version.
func (m *Manifest) Latest() (VersionInfo, bool) {
	if len(m.Versions) == 0 {
		return VersionInfo{}, false
	}
	return m.Versions[len(m.Versions)-1], true
}

// NextVersion returns the version number a new commit will take.
func (m *Manifest) NextVersion() int {
	if latest, ok := m.Latest(); ok {
		return latest.Version + 1
	}
	return 1
}

// Has reports whether a version is committed.
func (m *Manifest) Has(version int) bool {
	for _, v := range m.Versions {
		if v.Version == version {
			return true
		}
	}
	return false
}

// Logical key layout: <tier>/<partition>/v<NNNN>/data.json plus a
// manifest object per partition.

func dataKey(tier contracts.Tier, partition string, version int) string {
	return fmt.Sprintf("%s/%s/v%04d/data.json", tier, partition, version)
}

func reportKey(tier contracts.Tier, partition string, version int) string {
	return fmt.Sprintf("%s/%s/v%04d/report.json", tier, partition, version)
}

func manifestKey(tier contracts.Tier, partition string) string {
	return fmt.Sprintf("%s/%s/manifest.json", tier, partition)
}
