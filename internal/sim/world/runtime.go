package world

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"voxelsiege.ai/internal/protocol"
)

// World runs one Session on a ticker and bridges it to presentation
// clients. All session state is touched only from the Run goroutine.
type World struct {
	sess *Session
	log  *zap.Logger

	tick atomic.Uint64

	inbox  chan InputEnvelope
	attach chan AttachRequest
	detach chan string
	admin  chan adminReq
	stop   chan struct{}

	clients    map[string]*clientState
	controller string
	input      TickInput
	pending    []Event

	nextClientNum atomic.Uint64
	framesDropped atomic.Uint64
	runsTotal     atomic.Uint64

	run runState

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	runRecorder RunRecorder

	metrics atomic.Value
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// RunRecorder receives one record per finished or abandoned combat run.
type RunRecorder interface {
	RecordRun(rec RunRecord)
}

type TickLogEntry struct {
	Tick   uint64         `json:"tick"`
	Phase  string         `json:"phase"`
	Inputs int            `json:"inputs,omitempty"`
	Input  *RecordedInput `json:"input,omitempty"`
	Events []Event        `json:"events,omitempty"`
	Digest string         `json:"digest"`
}

// RecordedInput is the non-pose part of a tick's input.
type RecordedInput struct {
	FireHeld    bool `json:"fire_held,omitempty"`
	FirePressed bool `json:"fire_pressed,omitempty"`
	Dig         bool `json:"dig,omitempty"`
	Fill        bool `json:"fill,omitempty"`
	Place       bool `json:"place,omitempty"`

	ToolCycle     int `json:"tool_cycle,omitempty"`
	BrushSteps    int `json:"brush_steps,omitempty"`
	StrengthSteps int `json:"strength_steps,omitempty"`
}

type RunRecord struct {
	RunID       string    `json:"run_id"`
	SessionID   string    `json:"session_id"`
	Outcome     string    `json:"outcome"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	StartTick   uint64    `json:"start_tick"`
	EndTick     uint64    `json:"end_tick"`
	Elapsed     float64   `json:"elapsed_s"`
	LevelDigest string    `json:"level_digest"`
	Stats       Stats     `json:"stats"`
}

// OutcomeAbandoned marks a run ended by exit or reset before a result.
const OutcomeAbandoned = "ABANDONED"

type runState struct {
	id          string
	startTick   uint64
	startedAt   time.Time
	levelDigest string
}

type InputEnvelope struct {
	ClientID string
	Msg      protocol.InputMsg
}

type AttachRequest struct {
	Name     string
	Observer bool
	Out      chan []byte
	Resp     chan AttachResponse
}

type AttachResponse struct {
	ClientID string
	Welcome  protocol.WelcomeMsg
	// ErrCode is a protocol error code when the attach was refused.
	ErrCode string
}

type clientState struct {
	Name     string
	Out      chan []byte
	Observer bool
}

func NewWorld(sess *Session) *World {
	return &World{
		sess:    sess,
		log:     sess.log,
		inbox:   make(chan InputEnvelope, 1024),
		attach:  make(chan AttachRequest, 16),
		detach:  make(chan string, 16),
		admin:   make(chan adminReq, 16),
		stop:    make(chan struct{}),
		clients: map[string]*clientState{},
	}
}

func (w *World) SetTickLogger(l TickLogger)   { w.tickLogger = l }
func (w *World) SetRunRecorder(r RunRecorder) { w.runRecorder = r }

func (w *World) Inbox() chan<- InputEnvelope  { return w.inbox }
func (w *World) Attach() chan<- AttachRequest { return w.attach }
func (w *World) Detach() chan<- string        { return w.detach }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }
func (w *World) ID() string          { return w.sess.ID() }
func (w *World) TickRateHz() int     { return w.sess.cfg.TickRateHz }

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.sess.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingAdmin []adminReq
	inputs := 0

	for {
		select {
		case <-ctx.Done():
			w.abandonRun(time.Now())
			return ctx.Err()
		case <-w.stop:
			w.abandonRun(time.Now())
			return nil
		case req := <-w.attach:
			w.handleAttach(req)
		case id := <-w.detach:
			w.handleDetach(id)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case env := <-w.inbox:
			if w.handleInput(env) {
				inputs++
			}
		case now := <-ticker.C:
			w.stepInternal(now, inputs)
			w.handleAdminRequests(pendingAdmin)
			pendingAdmin = pendingAdmin[:0]
			inputs = 0
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances a single tick with an explicit input, bypassing the
// inbox. Intended for tests and tools.
func (w *World) StepOnce(in TickInput) (tick uint64, events []Event) {
	tick = w.sess.Tick()
	w.input.Merge(in)
	events = w.stepInternal(in.Now, 1)
	return tick, events
}

func (w *World) stepInternal(now time.Time, inputs int) []Event {
	stepStart := time.Now()
	nowTick := w.sess.Tick()

	in := w.input
	in.Now = now
	events := w.sess.Step(in)
	w.input.ClearEdges()

	for _, e := range events {
		switch e.Kind {
		case EventReleaseInput:
			w.releaseInput()
		case EventOutcome:
			w.finishRun(e.Label, now)
		}
	}

	w.pending = append(w.pending, events...)
	every := uint64(max(1, w.sess.cfg.FrameEveryTicks))
	if nowTick%every == 0 {
		w.broadcastFrame()
	}

	if w.tickLogger != nil {
		entry := TickLogEntry{Tick: nowTick, Phase: w.sess.phase.String(), Inputs: inputs, Events: events, Digest: w.sess.Digest()}
		if inputs > 0 {
			entry.Input = &RecordedInput{
				FireHeld:    in.FireHeld,
				FirePressed: in.FirePressed,
				Dig:         in.Dig,
				Fill:        in.Fill,
				Place:       in.Place,
				ToolCycle:   in.ToolCycle,

				BrushSteps:    in.BrushSteps,
				StrengthSteps: in.StrengthSteps,
			}
		}
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.log.Warn("tick log", zap.Error(err))
		}
	}

	nextTick := w.sess.Tick()
	w.tick.Store(nextTick)
	w.storeMetrics(nextTick, float64(time.Since(stepStart).Microseconds())/1000.0)
	return events
}

func (w *World) broadcastFrame() {
	if len(w.clients) == 0 {
		w.pending = w.pending[:0]
		return
	}
	b, err := json.Marshal(w.sess.Frame(w.pending))
	w.pending = w.pending[:0]
	if err != nil {
		w.log.Error("marshal frame", zap.Error(err))
		return
	}
	for _, cl := range w.clients {
		if sendLatest(cl.Out, b) {
			w.framesDropped.Add(1)
		}
	}
}

// handleInput folds one client message into the pending tick input.
// Observer input and input from anyone but the controller is ignored.
func (w *World) handleInput(env InputEnvelope) bool {
	if env.ClientID == "" || env.ClientID != w.controller {
		return false
	}
	w.input.Merge(InputFromMsg(env.Msg, w.currentPose()))
	return true
}

func (w *World) currentPose() Pose {
	if w.input.Pose != nil {
		return *w.input.Pose
	}
	return w.sess.Pose()
}

// releaseInput drops every held control, as if the player let go.
func (w *World) releaseInput() {
	w.input.FireHeld = false
	w.input.Dig = false
	w.input.Fill = false
	w.input.ClearEdges()
}

func (w *World) handleAttach(req AttachRequest) {
	reply := func(r AttachResponse) {
		if req.Resp != nil {
			req.Resp <- r
		}
	}
	if req.Out == nil {
		reply(AttachResponse{ErrCode: protocol.ErrBadRequest})
		return
	}
	if !req.Observer && w.controller != "" {
		reply(AttachResponse{ErrCode: protocol.ErrSessionBusy})
		return
	}
	id := fmt.Sprintf("C%06d", w.nextClientNum.Add(1))
	w.clients[id] = &clientState{Name: req.Name, Out: req.Out, Observer: req.Observer}
	if !req.Observer {
		w.controller = id
	}
	w.log.Info("client attached", zap.String("client", id), zap.String("name", req.Name), zap.Bool("observer", req.Observer))
	reply(AttachResponse{ClientID: id, Welcome: w.sess.Welcome()})
}

func (w *World) handleDetach(id string) {
	if _, ok := w.clients[id]; !ok {
		return
	}
	delete(w.clients, id)
	if w.controller == id {
		w.controller = ""
		w.releaseInput()
	}
	w.log.Info("client detached", zap.String("client", id))
}

func (w *World) beginRun(now time.Time) {
	w.run = runState{
		id:          w.sess.RunID(),
		startTick:   w.sess.Tick(),
		startedAt:   now,
		levelDigest: w.sess.Field().Digest(),
	}
}

func (w *World) finishRun(outcome string, now time.Time) {
	if w.run.id == "" {
		return
	}
	rec := RunRecord{
		RunID:       w.run.id,
		SessionID:   w.sess.ID(),
		Outcome:     outcome,
		StartedAt:   w.run.startedAt,
		EndedAt:     now,
		StartTick:   w.run.startTick,
		EndTick:     w.sess.Tick(),
		Elapsed:     w.sess.Elapsed(),
		LevelDigest: w.run.levelDigest,
		Stats:       w.sess.Stats(),
	}
	w.run = runState{}
	w.runsTotal.Add(1)
	if w.runRecorder != nil {
		w.runRecorder.RecordRun(rec)
	}
}

func (w *World) abandonRun(now time.Time) { w.finishRun(OutcomeAbandoned, now) }

// sendLatest never blocks: when the client is behind, its oldest frame is
// dropped. It reports whether a frame was lost.
func sendLatest(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return false
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
	return true
}
