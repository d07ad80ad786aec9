// Command levelgen writes a procedurally generated level file that the
// server (or admin load) can pick up.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"voxelsiege.ai/internal/config"
	"voxelsiege.ai/internal/observability"
	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/sim/catalogs"
	"voxelsiege.ai/internal/sim/tuning"
	"voxelsiege.ai/internal/sim/world"
)

type options struct {
	Seed       int64
	Out        string
	ConfigDir  string
	TuningPath string
	Outer      int
	Inner      int
	Radius     float64
}

func main() {
	var opt options
	flag.Int64Var(&opt.Seed, "seed", 1337, "generator seed")
	flag.StringVar(&opt.Out, "out", "./data/levels/level-generated.json.zst", "output level file (.json or .json.zst)")
	flag.StringVar(&opt.ConfigDir, "configs", "./configs", "catalog directory")
	flag.StringVar(&opt.TuningPath, "tuning", "", "tuning file (default: <configs>/tuning.yaml)")
	flag.IntVar(&opt.Outer, "outer", 8, "outer turret count")
	flag.IntVar(&opt.Inner, "inner", 4, "inner turret count")
	flag.Float64Var(&opt.Radius, "radius", 0, "planet radius (0 = generator default)")
	flag.Parse()

	logger, err := observability.NewLogger(config.LoggingConfig{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	rep, err := generate(opt, logger)
	if err != nil {
		logger.Fatal("levelgen", zap.Error(err))
	}
	logger.Info("level written", zap.String("path", opt.Out), zap.Int64("seed", opt.Seed), zap.Int("turrets", rep.Turrets))
}

func generate(opt options, logger *zap.Logger) (world.LoadReport, error) {
	cats, err := catalogs.Load(opt.ConfigDir)
	if errors.Is(err, os.ErrNotExist) {
		cats, err = catalogs.Defaults(), nil
	}
	if err != nil {
		return world.LoadReport{}, fmt.Errorf("load catalogs: %w", err)
	}

	tunePath := opt.TuningPath
	if tunePath == "" {
		tunePath = filepath.Join(opt.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tunePath)
	if errors.Is(err, os.ErrNotExist) {
		tune, err = tuning.Defaults(), nil
	}
	if err != nil {
		return world.LoadReport{}, fmt.Errorf("load tuning: %w", err)
	}

	sess, err := world.NewSession(world.Config{ID: "LEVELGEN", Seed: opt.Seed, Tuning: tune, Logger: logger}, cats)
	if err != nil {
		return world.LoadReport{}, err
	}
	gen := world.DefaultLevelGenOptions(opt.Seed)
	gen.OuterTurrets = opt.Outer
	gen.InnerTurrets = opt.Inner
	if opt.Radius > 0 {
		gen.Terrain.PlanetRadius = opt.Radius
	}
	rep, err := sess.GenerateLevel(gen)
	if err != nil {
		return rep, err
	}
	lv, err := sess.ExportLevel()
	if err != nil {
		return rep, err
	}
	if err := os.MkdirAll(filepath.Dir(opt.Out), 0o755); err != nil {
		return rep, err
	}
	return rep, snapshot.Write(opt.Out, lv)
}
