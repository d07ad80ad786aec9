package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voxelsiege.ai/internal/persistence/snapshot"
)

func TestGenerate_WritesReadableLevel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tuning.yaml"), []byte("field:\n  resolution: 20\n"), 0o644))

	opt := options{
		Seed:      3,
		Out:       filepath.Join(dir, "out", "level.json.zst"),
		ConfigDir: dir,
		Outer:     6,
		Inner:     4,
	}
	rep, err := generate(opt, zap.NewNop())
	require.NoError(t, err)

	lv, err := snapshot.Read(opt.Out)
	require.NoError(t, err)
	assert.Equal(t, 20*20*20, lv.Cells())
	assert.Len(t, lv.InnerTurrets, 4)
	assert.Equal(t, rep.Turrets, len(lv.Turrets)+len(lv.InnerTurrets))
}

func TestGenerate_BadTuningFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tuning.yaml"), []byte("field: [\n"), 0o644))
	_, err := generate(options{Seed: 1, Out: filepath.Join(dir, "l.json"), ConfigDir: dir}, zap.NewNop())
	assert.Error(t, err)
}
