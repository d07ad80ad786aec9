package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voxelsiege.ai/internal/config"
	"voxelsiege.ai/internal/observability"
	"voxelsiege.ai/internal/persistence/indexdb"
	persistlog "voxelsiege.ai/internal/persistence/log"
	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/sim/catalogs"
	"voxelsiege.ai/internal/sim/tuning"
	"voxelsiege.ai/internal/sim/world"
	"voxelsiege.ai/internal/transport/ws"
)

func main() {
	configPath := flag.String("config", "./configs/server.yaml", "server config (a missing file means defaults plus VS_* env)")
	flag.Parse()

	path := *configPath
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	cats, err := loadCatalogs(cfg.Paths.Configs, logger)
	if err != nil {
		return err
	}
	tune, err := tuning.Load(cfg.Paths.TuningPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load tuning: %w", err)
		}
		logger.Info("tuning not found; using defaults", zap.String("path", cfg.Paths.TuningPath()))
		tune = tuning.Defaults()
	}

	sess, err := world.NewSession(world.Config{
		ID:     cfg.Server.SessionID,
		Seed:   cfg.Server.Seed,
		Tuning: tune,
		Logger: logger.Named("world"),
	}, cats)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := bootLevel(sess, cfg, logger); err != nil {
		return err
	}
	w := world.NewWorld(sess)

	var idx *indexdb.SQLiteIndex
	if cfg.Index.Enabled {
		idx, err = indexdb.OpenSQLite(cfg.IndexPath())
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Warn("index: upsert catalogs", zap.Error(err))
		}
	}
	closeLogs := wirePersistence(w, idx, cfg, logger)
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	a := &app{cfg: cfg, world: w, index: idx, log: logger, ws: ws.NewServer(w, logger)}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		if err := w.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("world: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("session", sess.ID()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func loadCatalogs(dir string, logger *zap.Logger) (*catalogs.Catalogs, error) {
	cats, err := catalogs.Load(dir)
	if err == nil {
		return cats, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("catalogs not found; using built-in defaults", zap.String("dir", dir))
		return catalogs.Defaults(), nil
	}
	return nil, fmt.Errorf("load catalogs: %w", err)
}

// bootLevel loads the configured level, else the newest saved one, else
// generates a planet from the server seed.
func bootLevel(sess *world.Session, cfg config.Config, logger *zap.Logger) error {
	path := cfg.Paths.Level
	if path == "" && cfg.Paths.LoadLatest {
		latest, err := snapshot.Latest(cfg.Paths.LevelsDir())
		if err != nil {
			return fmt.Errorf("find latest level: %w", err)
		}
		path = latest
	}
	if path == "" {
		rep, err := sess.GenerateLevel(world.DefaultLevelGenOptions(cfg.Server.Seed))
		if err != nil {
			return fmt.Errorf("generate level: %w", err)
		}
		logger.Info("generated level", zap.Int64("seed", cfg.Server.Seed), zap.Int("turrets", rep.Turrets))
		return nil
	}
	lv, err := snapshot.Read(path)
	if err != nil {
		return fmt.Errorf("read level: %w", err)
	}
	rep, err := sess.ImportLevel(lv)
	if err != nil {
		return fmt.Errorf("import level: %w", err)
	}
	logger.Info("loaded level", zap.String("path", path), zap.Ints("skipped", rep.Skipped), zap.Int("turrets", rep.Turrets))
	return nil
}

// wirePersistence attaches the event log and index to w. The returned func
// closes the logs and must run after the world loop has stopped.
func wirePersistence(w *world.World, idx *indexdb.SQLiteIndex, cfg config.Config, logger *zap.Logger) func() {
	var (
		ticks world.TickLogger
		runs  world.RunRecorder
	)
	closeLogs := func() {}
	if idx != nil {
		ticks, runs = idx, idx
	}
	if cfg.EventLog.Enabled {
		tickLog := persistlog.NewTickLogger(cfg.Paths.Data, cfg.EventLog.EventsOnly)
		runLog := persistlog.NewRunLogger(cfg.Paths.Data, runs, func(err error) {
			logger.Warn("run log", zap.Error(err))
		})
		ticks = multiTickLogger{tickLog, ticks}
		runs = runLog
		closeLogs = func() {
			if err := errors.Join(tickLog.Close(), runLog.Close()); err != nil {
				logger.Warn("close event logs", zap.Error(err))
			}
		}
	}
	if ticks != nil {
		w.SetTickLogger(ticks)
	}
	if runs != nil {
		w.SetRunRecorder(runs)
	}
	return closeLogs
}

// multiTickLogger fans one entry out to every sink; all sinks see the entry
// even when an earlier one fails.
type multiTickLogger []world.TickLogger

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	var errs []error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.WriteTick(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
