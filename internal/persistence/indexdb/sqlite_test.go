package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/sim/catalogs"
	"voxelsiege.ai/internal/sim/tuning"
	"voxelsiege.ai/internal/sim/world"
)

func openTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "siege.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSQLiteIndex_RunsRoundTrip(t *testing.T) {
	idx := openTest(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

	idx.RecordRun(world.RunRecord{
		RunID: "r1", SessionID: "SIEGE", Outcome: world.OutcomeDefeat,
		StartedAt: start, EndedAt: start.Add(30 * time.Second),
		StartTick: 10, EndTick: 1810, Elapsed: 30, LevelDigest: "abc",
		Stats: world.Stats{ShotsFired: 12, Kills: 1, DamageTaken: 100},
	})
	idx.RecordRun(world.RunRecord{
		RunID: "r2", SessionID: "SIEGE", Outcome: world.OutcomeVictory,
		StartedAt: start, EndedAt: start.Add(time.Minute),
		StartTick: 2000, EndTick: 5600, Elapsed: 60,
		Stats: world.Stats{ShotsFired: 80, Kills: 6, Pickups: 9, Destroyed: 12.5},
	})
	idx.RecordRun(world.RunRecord{Outcome: world.OutcomeVictory}) // no run id: ignored
	require.NoError(t, idx.Sync(ctx))

	all, err := idx.Runs(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r2", all[0].RunID)
	assert.Equal(t, 6, all[0].Stats.Kills)
	assert.InDelta(t, 12.5, all[0].Stats.Destroyed, 1e-9)
	assert.Equal(t, uint64(5600), all[0].EndTick)
	assert.True(t, all[1].EndedAt.Equal(start.Add(30*time.Second)))

	wins, err := idx.Runs(ctx, world.OutcomeVictory, 10)
	require.NoError(t, err)
	require.Len(t, wins, 1)
	assert.Equal(t, "r2", wins[0].RunID)
}

func TestSQLiteIndex_RunsReadableWithoutSync(t *testing.T) {
	idx := openTest(t)
	idx.RecordRun(world.RunRecord{RunID: "r1", SessionID: "SIEGE", Outcome: world.OutcomeAbandoned})
	time.Sleep(300 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	runs, err := idx.Runs(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].RunID)

	idx.RecordRun(world.RunRecord{RunID: "r2", SessionID: "SIEGE", Outcome: world.OutcomeVictory})
	assert.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		wins, err := idx.Runs(ctx, world.OutcomeVictory, 10)
		return err == nil && len(wins) == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestSQLiteIndex_TicksAndEvents(t *testing.T) {
	idx := openTest(t)
	ctx := context.Background()

	require.NoError(t, idx.WriteTick(world.TickLogEntry{Tick: 1, Phase: "OUTER", Digest: "d1"}))
	require.NoError(t, idx.WriteTick(world.TickLogEntry{Tick: 2, Phase: "OUTER", Digest: "d2", Events: []world.Event{
		{Kind: world.EventFired, Tick: 2},
		{Kind: world.EventTurretRemoved, Tick: 2},
	}}))
	require.NoError(t, idx.WriteTick(world.TickLogEntry{Tick: 9, Phase: "INNER", Digest: "d9", Events: []world.Event{
		{Kind: world.EventFired, Tick: 9},
	}}))
	require.NoError(t, idx.Sync(ctx))

	n, err := idx.EventCount(ctx, world.EventFired, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = idx.EventCount(ctx, world.EventFired, 3, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var ticks int
	require.NoError(t, idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticks`).Scan(&ticks))
	assert.Equal(t, 2, ticks, "quiet ticks are not indexed")
}

func TestSQLiteIndex_SnapshotsAndCatalogs(t *testing.T) {
	idx := openTest(t)
	ctx := context.Background()

	lv := snapshot.LevelV1{
		Voxels:       [][]float64{make([]float64, 8), make([]float64, 8)},
		Turrets:      []snapshot.TurretV1{{Type: "basic"}, {Type: "standard"}},
		InnerTurrets: []snapshot.TurretV1{{Type: "tracking"}},
	}
	idx.RecordSnapshot("/data/levels/level-120.json.zst", 120, lv)
	require.NoError(t, idx.Sync(ctx))

	snaps, err := idx.Snapshots(ctx, 5)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, SnapshotRow{
		Path: "/data/levels/level-120.json.zst", Tick: 120, Cells: 8, Channels: 2, Turrets: 2, InnerTurrets: 1,
		RecordedAt: snaps[0].RecordedAt,
	}, snaps[0])

	require.NoError(t, idx.UpsertCatalogs(catalogs.Defaults(), tuning.Defaults()))
	d, err := idx.CatalogDigest(ctx, "turrets")
	require.NoError(t, err)
	assert.Len(t, d, 64)
	d2, err := idx.CatalogDigest(ctx, "tuning")
	require.NoError(t, err)
	assert.NotEqual(t, d, d2)
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick}

	ev := []world.Event{{Kind: world.EventFired}}
	_ = s.WriteTick(world.TickLogEntry{Tick: 2, Events: ev})
	_ = s.WriteTick(world.TickLogEntry{Tick: 3}) // quiet, never queued
	s.RecordRun(world.RunRecord{RunID: "r"})
	s.RecordSnapshot("/tmp/l.json", 2, snapshot.LevelV1{})

	st := s.Stats()
	assert.Equal(t, uint64(1), st.DropTickTotal)
	assert.Equal(t, uint64(1), st.DropRunTotal)
	assert.Equal(t, uint64(1), st.DropSnapshotTotal)
	assert.Equal(t, 1, st.QueueDepth)
	assert.Equal(t, 1, st.QueueCapacity)
}
