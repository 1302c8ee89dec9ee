package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/priority-risk-engine/internal/scoring"
)

func TestLoadWeightConfigs_Defaults(t *testing.T) {
	cfgs, err := loadWeightConfigs(nil, false)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	assert.Equal(t, scoring.KindTrainingNeed, cfgs[0].Kind)
	assert.Equal(t, scoring.KindScholar, cfgs[1].Kind)

	_, err = loadWeightConfigs(nil, true)
	assert.Error(t, err)
}

// The shipped YAML files must stay equivalent to the built-in defaults apart
// from their version labels.
func TestLoadWeightConfigs_ShippedFilesMatchDefaults(t *testing.T) {
	cfgs, err := loadWeightConfigs([]string{
		filepath.Join("..", "..", "configs", "training_need.yaml"),
		filepath.Join("..", "..", "configs", "scholar.yaml"),
	}, true)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	for _, got := range cfgs {
		want, err := scoring.DefaultConfig(got.Kind)
		require.NoError(t, err)
		assert.NotEqual(t, want.Version, got.Version)
		assert.Equal(t, scoring.ConfigHash(want), scoring.ConfigHash(got), "kind %s", got.Kind)
	}
}

func TestLoadWeightConfigs_RejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := loadWeightConfigs([]string{filepath.Join(dir, "absent.yaml")}, true)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("kind: scholar\nbands: []\nsurprise: 1\n"), 0o600))
	_, err = loadWeightConfigs([]string{bad}, true)
	assert.ErrorIs(t, err, scoring.ErrConfigInvalid)
}
