package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "voxelsiege.ai/internal/persistence/log"
	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/sim/world"
)

func TestSummarizeLevel(t *testing.T) {
	ch := make([]float64, 27)
	ch[0], ch[5] = 1, 0.5
	lv := snapshot.LevelV1{
		Voxels:       [][]float64{ch, make([]float64, 27)},
		Turrets:      []snapshot.TurretV1{{Type: "basic"}, {Type: "basic"}, {Type: "standard"}},
		InnerTurrets: []snapshot.TurretV1{{Type: "tracking"}},
	}
	s := summarizeLevel(lv)
	assert.Equal(t, 3, s.Resolution)
	assert.Equal(t, []int{2, 0}, s.SolidCells)
	assert.Equal(t, map[string]int{"basic": 2, "standard": 1}, s.Turrets)
	assert.Equal(t, 1, s.InnerTurrets["tracking"])
}

func TestSummarizeEvents(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewTickLogger(dir, true)
	require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: 1, Phase: "EDITOR", Events: []world.Event{{Kind: world.EventPhase, Label: "COMBAT"}}}))
	require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: 2, Phase: "COMBAT", Events: []world.Event{{Kind: world.EventFired}, {Kind: world.EventFired}}}))
	require.NoError(t, l.WriteTick(world.TickLogEntry{Tick: 9, Phase: "COMBAT", Events: []world.Event{{Kind: world.EventOutcome, Label: world.OutcomeDefeat}}}))
	require.NoError(t, l.Close())

	events := filepath.Join(dir, "events")
	sum, err := summarizeEvents(events, 0, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sum.Files, 1)
	assert.Equal(t, 3, sum.Entries)
	assert.Equal(t, uint64(1), sum.FirstTick)
	assert.Equal(t, uint64(9), sum.LastTick)
	assert.Equal(t, 2, sum.Kinds[world.EventFired])
	assert.Equal(t, []string{"1:COMBAT"}, sum.Phases)
	assert.Equal(t, []string{"9:DEFEAT"}, sum.Outcomes)

	sum, err = summarizeEvents(events, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Entries)
	assert.Empty(t, sum.Outcomes)
}

func TestSummarizeEvents_MissingDir(t *testing.T) {
	_, err := summarizeEvents(filepath.Join(t.TempDir(), "nope"), 0, 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
