package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWeights(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadWeights(t *testing.T) {
	path := writeWeights(t, `
meta:
  weights_id: custom_v2
fields:
  pts_per_g: 0.4
  ws: 0.3
  championships: 0.3
`)

	w, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, "custom_v2", w.Meta.WeightsID)
	assert.Equal(t, 0.4, w.Fields["pts_per_g"])

	hash, err := w.Hash()
	require.NoError(t, err)
	assert.Len(t, hash, 64)
}

func TestLoadWeightsRejectsUnknownField(t *testing.T) {
	path := writeWeights(t, `
meta:
  weights_id: typo
fieldz:
  pts_per_g: 1.0
`)

	_, err := LoadWeights(path)
	assert.Error(t, err)
}

func TestLoadWeightsRejectsEmpty(t *testing.T) {
	path := writeWeights(t, `
meta:
  weights_id: empty
fields: {}
`)

	_, err := LoadWeights(path)
	assert.Error(t, err)
}

func TestDefaultWeightsValid(t *testing.T) {
	w := DefaultWeights()
	require.NoError(t, w.Validate())
}
