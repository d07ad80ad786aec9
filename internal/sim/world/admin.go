package world

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/protocol"
)

type adminOp uint8

const (
	opExportLevel adminOp = iota + 1
	opImportLevel
	opEnterCombat
	opExitCombat
	opReset
	opState
	opViewLevel
)

type adminReq struct {
	Op    adminOp
	Level *snapshot.LevelV1
	Resp  chan adminResp
}

type adminResp struct {
	Tick   uint64
	RunID  string
	Level  snapshot.LevelV1
	Report LoadReport
	State  StateView
	View   LevelView
	Err    error
}

// StateView is the admin summary of the running session.
type StateView struct {
	SessionID string         `json:"session_id"`
	RunID     string         `json:"run_id,omitempty"`
	Tick      uint64         `json:"tick"`
	Phase     string         `json:"phase"`
	Elapsed   float64        `json:"elapsed_s"`
	Player    Player         `json:"player"`
	Governor  WeaponGovernor `json:"governor"`
	Stats     Stats          `json:"stats"`
	Turrets   int            `json:"turrets"`
	Debris    int            `json:"debris"`
	Digest    string         `json:"digest"`
}

var errAdminUnavailable = errors.New("admin requests not available")

// request hands req to the world loop and waits for the tick boundary to
// serve it. It is safe to call from other goroutines.
func (w *World) request(ctx context.Context, req adminReq) (adminResp, error) {
	if w == nil || w.admin == nil {
		return adminResp{}, errAdminUnavailable
	}
	resp := make(chan adminResp, 1)
	req.Resp = resp

	select {
	case w.admin <- req:
	case <-ctx.Done():
		return adminResp{}, ctx.Err()
	}

	select {
	case r := <-resp:
		return r, r.Err
	case <-ctx.Done():
		return adminResp{}, ctx.Err()
	}
}

// RequestExportLevel captures the level for saving. Refused in combat.
func (w *World) RequestExportLevel(ctx context.Context) (snapshot.LevelV1, error) {
	r, err := w.request(ctx, adminReq{Op: opExportLevel})
	return r.Level, err
}

// RequestImportLevel replaces the level. Refused in combat.
func (w *World) RequestImportLevel(ctx context.Context, lv snapshot.LevelV1) (LoadReport, error) {
	r, err := w.request(ctx, adminReq{Op: opImportLevel, Level: &lv})
	return r.Report, err
}

// LevelView is what a renderer needs to draw the session from scratch.
type LevelView struct {
	Tick    uint64              `json:"tick"`
	Welcome protocol.WelcomeMsg `json:"welcome"`
	Level   snapshot.LevelV1    `json:"level"`
}

// RequestLevelView captures the live level in any phase, for renderers
// that attach mid-encounter. It is not a save.
func (w *World) RequestLevelView(ctx context.Context) (LevelView, error) {
	r, err := w.request(ctx, adminReq{Op: opViewLevel})
	return r.View, err
}

func (w *World) RequestEnterCombat(ctx context.Context) (runID string, err error) {
	r, err := w.request(ctx, adminReq{Op: opEnterCombat})
	return r.RunID, err
}

func (w *World) RequestExitCombat(ctx context.Context) error {
	_, err := w.request(ctx, adminReq{Op: opExitCombat})
	return err
}

// RequestReset restarts the encounter from the captured baseline.
func (w *World) RequestReset(ctx context.Context) (runID string, err error) {
	r, err := w.request(ctx, adminReq{Op: opReset})
	return r.RunID, err
}

func (w *World) RequestState(ctx context.Context) (StateView, error) {
	r, err := w.request(ctx, adminReq{Op: opState})
	return r.State, err
}

func (w *World) handleAdminRequests(reqs []adminReq) {
	for _, r := range reqs {
		resp := w.serveAdmin(r)
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- resp:
		default:
			// Client timed out; don't block the sim loop.
		}
	}
}

func (w *World) serveAdmin(r adminReq) adminResp {
	s := w.sess
	now := time.Now()
	resp := adminResp{Tick: s.Tick()}
	switch r.Op {
	case opExportLevel:
		resp.Level, resp.Err = s.ExportLevel()
	case opImportLevel:
		if r.Level == nil {
			resp.Err = errors.New("missing level")
			break
		}
		resp.Report, resp.Err = s.ImportLevel(*r.Level)
	case opEnterCombat:
		if resp.Err = s.EnterCombat(); resp.Err == nil {
			w.beginRun(now)
		}
	case opExitCombat:
		if s.phase.Combat() {
			w.abandonRun(now)
		}
		resp.Err = s.ExitCombat()
		w.releaseInput()
	case opReset:
		if s.phase.Combat() {
			w.abandonRun(now)
		}
		if resp.Err = s.Reset(); resp.Err == nil {
			w.beginRun(now)
		}
		w.releaseInput()
	case opState:
		resp.State = w.stateView()
	case opViewLevel:
		resp.View = LevelView{Tick: s.Tick(), Welcome: s.Welcome(), Level: s.captureLevel()}
	default:
		resp.Err = errors.New("unknown admin op")
	}
	resp.RunID = s.RunID()
	if resp.Err != nil {
		w.log.Warn("admin request refused", zap.Uint8("op", uint8(r.Op)), zap.Error(resp.Err))
	}
	return resp
}

func (w *World) stateView() StateView {
	s := w.sess
	return StateView{
		SessionID: s.ID(),
		RunID:     s.RunID(),
		Tick:      s.Tick(),
		Phase:     s.phase.String(),
		Elapsed:   s.Elapsed(),
		Player:    s.Player(),
		Governor:  s.Governor(),
		Stats:     s.Stats(),
		Turrets:   s.turrets.Len(),
		Debris:    s.debris.Len(),
		Digest:    s.Digest(),
	}
}
