package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxelsiege.ai/internal/config"
	"voxelsiege.ai/internal/persistence/indexdb"
	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/protocol"
	"voxelsiege.ai/internal/sim/world"
	"voxelsiege.ai/internal/transport/ws"
)

const adminTimeout = 5 * time.Second

type app struct {
	cfg   config.Config
	world *world.World
	index *indexdb.SQLiteIndex
	log   *zap.Logger
	ws    *ws.Server
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", a.handleMetrics)
	mux.HandleFunc("/v1/ws", a.ws.Handler())
	mux.HandleFunc("/v1/level", a.ws.LevelHandler(a.cfg.Server.LevelLoopbackOnly))
	mux.HandleFunc("/v1/runs", a.handleRuns)

	if a.cfg.Server.AdminHTTP {
		mux.HandleFunc("/admin/v1/state", a.adminOnly(http.MethodGet, a.handleState))
		mux.HandleFunc("/admin/v1/level/save", a.adminOnly(http.MethodPost, a.handleSave))
		mux.HandleFunc("/admin/v1/level/load", a.adminOnly(http.MethodPost, a.handleLoad))
		mux.HandleFunc("/admin/v1/combat/enter", a.adminOnly(http.MethodPost, a.handleEnter))
		mux.HandleFunc("/admin/v1/combat/exit", a.adminOnly(http.MethodPost, a.handleExit))
		mux.HandleFunc("/admin/v1/combat/reset", a.adminOnly(http.MethodPost, a.handleReset))
	} else {
		a.log.Info("admin endpoints disabled")
	}
	if a.cfg.Server.PprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// adminOnly restricts h to loopback callers using method.
func (a *app) adminOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func (a *app) handleState(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()
	st, err := a.world.RequestState(ctx)
	if err != nil {
		a.writeError(rw, err)
		return
	}
	resp := struct {
		State   world.StateView    `json:"state"`
		Metrics world.WorldMetrics `json:"metrics"`
		Index   indexdb.Stats      `json:"index"`
	}{State: st, Metrics: a.world.Metrics(), Index: a.index.Stats()}
	writeJSON(rw, http.StatusOK, resp)
}

// handleSave writes the current level to <data>/levels; the file name
// sorts by tick so the newest save is picked up on the next boot.
func (a *app) handleSave(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()
	lv, err := a.world.RequestExportLevel(ctx)
	if err != nil {
		a.writeError(rw, err)
		return
	}
	tick := a.world.CurrentTick()
	path := filepath.Join(a.cfg.Paths.LevelsDir(), fmt.Sprintf("level-%012d.json.zst", tick))
	if err := snapshot.Write(path, lv); err != nil {
		a.log.Error("level save", zap.String("path", path), zap.Error(err))
		writeJSON(rw, http.StatusInternalServerError, errorBody(protocol.ErrInternal, err))
		return
	}
	a.index.RecordSnapshot(path, tick, lv)
	a.log.Info("level saved", zap.String("path", path), zap.Int("turrets", len(lv.Turrets)+len(lv.InnerTurrets)))
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": tick, "path": path})
}

// handleLoad accepts a level document in the body, or ?name= of a file in
// <data>/levels, or neither for the newest saved level.
func (a *app) handleLoad(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 256<<20))
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, errorBody(protocol.ErrBadRequest, err))
		return
	}

	var lv snapshot.LevelV1
	source := "body"
	switch name := r.URL.Query().Get("name"); {
	case len(bytes.TrimSpace(body)) > 0:
		lv, err = snapshot.Decode(bytes.NewReader(body))
	case name != "":
		source = filepath.Join(a.cfg.Paths.LevelsDir(), filepath.Base(name))
		lv, err = snapshot.Read(source)
	default:
		source, err = snapshot.Latest(a.cfg.Paths.LevelsDir())
		if err == nil && source == "" {
			writeJSON(rw, http.StatusNotFound, errorBody(protocol.ErrBadRequest, errors.New("no saved level")))
			return
		}
		if err == nil {
			lv, err = snapshot.Read(source)
		}
	}
	if err != nil {
		a.writeError(rw, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()
	rep, err := a.world.RequestImportLevel(ctx, lv)
	if err != nil {
		a.writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "source": source, "report": rep})
}

func (a *app) handleEnter(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()
	runID, err := a.world.RequestEnterCombat(ctx)
	if err != nil {
		a.writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "run_id": runID})
}

func (a *app) handleExit(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()
	if err := a.world.RequestExitCombat(ctx); err != nil {
		a.writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
}

func (a *app) handleReset(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()
	runID, err := a.world.RequestReset(ctx)
	if err != nil {
		a.writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "run_id": runID})
}

func (a *app) handleRuns(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if a.index == nil {
		writeJSON(rw, http.StatusServiceUnavailable, errorBody(protocol.ErrInternal, errors.New("index disabled")))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := a.index.Runs(r.Context(), strings.ToUpper(r.URL.Query().Get("outcome")), limit)
	if err != nil {
		a.writeError(rw, err)
		return
	}
	if runs == nil {
		runs = []world.RunRecord{}
	}
	writeJSON(rw, http.StatusOK, map[string]any{"runs": runs})
}

// writeError maps sim and snapshot errors to a status and protocol code.
func (a *app) writeError(rw http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, protocol.ErrInternal
	switch {
	case errors.Is(err, world.ErrCombatActive):
		status, code = http.StatusConflict, protocol.ErrCombatActive
	case errors.Is(err, world.ErrNotCombat):
		status, code = http.StatusConflict, protocol.ErrNotCombat
	case errors.Is(err, snapshot.ErrMalformed), errors.Is(err, world.ErrUnknownTurret):
		status, code = http.StatusBadRequest, protocol.ErrBadLevel
	case errors.Is(err, os.ErrNotExist):
		status, code = http.StatusNotFound, protocol.ErrBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		a.log.Warn("request failed", zap.Error(err))
	}
	writeJSON(rw, status, errorBody(code, err))
}

func errorBody(code string, err error) map[string]any {
	return map[string]any{"ok": false, "code": code, "error": err.Error()}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
