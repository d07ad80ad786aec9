package main

import (
	"fmt"
	"net/http"
)

// handleMetrics writes a minimal Prometheus exposition of the world and
// index counters.
func (a *app) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	id := a.cfg.Server.SessionID
	m := a.world.Metrics()
	tick := a.world.CurrentTick()
	if m.Tick != 0 {
		tick = m.Tick
	}

	gauge := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
	}
	counter := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s counter\n", name)
	}

	gauge("voxelsiege_session_tick", "Current session tick.")
	fmt.Fprintf(rw, "voxelsiege_session_tick{session=%q} %d\n", id, tick)

	gauge("voxelsiege_session_phase", "1 for the active encounter phase.")
	fmt.Fprintf(rw, "voxelsiege_session_phase{session=%q,phase=%q} 1\n", id, m.Phase)

	gauge("voxelsiege_session_clients", "Connected clients.")
	fmt.Fprintf(rw, "voxelsiege_session_clients{session=%q,role=%q} %d\n", id, "controller", m.Clients-m.Observers)
	fmt.Fprintf(rw, "voxelsiege_session_clients{session=%q,role=%q} %d\n", id, "observer", m.Observers)

	gauge("voxelsiege_session_entities", "Live entities by kind.")
	fmt.Fprintf(rw, "voxelsiege_session_entities{session=%q,kind=%q} %d\n", id, "turret", m.Turrets)
	fmt.Fprintf(rw, "voxelsiege_session_entities{session=%q,kind=%q} %d\n", id, "projectile", m.Projectiles)
	fmt.Fprintf(rw, "voxelsiege_session_entities{session=%q,kind=%q} %d\n", id, "hostile", m.Hostiles)
	fmt.Fprintf(rw, "voxelsiege_session_entities{session=%q,kind=%q} %d\n", id, "debris", m.Debris)

	gauge("voxelsiege_player", "Player vitals.")
	fmt.Fprintf(rw, "voxelsiege_player{session=%q,stat=%q} %.3f\n", id, "health", m.Health)
	fmt.Fprintf(rw, "voxelsiege_player{session=%q,stat=%q} %.3f\n", id, "energy", m.Energy)
	fmt.Fprintf(rw, "voxelsiege_player{session=%q,stat=%q} %.3f\n", id, "heat", m.Heat)

	gauge("voxelsiege_queue_depth", "Channel backlog depth.")
	fmt.Fprintf(rw, "voxelsiege_queue_depth{session=%q,queue=%q} %d\n", id, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(rw, "voxelsiege_queue_depth{session=%q,queue=%q} %d\n", id, "attach", m.QueueDepths.Attach)
	fmt.Fprintf(rw, "voxelsiege_queue_depth{session=%q,queue=%q} %d\n", id, "admin", m.QueueDepths.Admin)

	gauge("voxelsiege_step_ms", "Last tick step duration in milliseconds.")
	fmt.Fprintf(rw, "voxelsiege_step_ms{session=%q} %.3f\n", id, m.StepMS)

	counter("voxelsiege_frames_dropped_total", "Frames replaced before a slow client read them.")
	fmt.Fprintf(rw, "voxelsiege_frames_dropped_total{session=%q} %d\n", id, m.FramesDropped)

	counter("voxelsiege_runs_total", "Finished or abandoned combat runs.")
	fmt.Fprintf(rw, "voxelsiege_runs_total{session=%q} %d\n", id, m.RunsTotal)

	if a.index == nil {
		return
	}
	st := a.index.Stats()
	gauge("voxelsiege_index_queue_depth", "Index writer backlog.")
	fmt.Fprintf(rw, "voxelsiege_index_queue_depth %d\n", st.QueueDepth)
	counter("voxelsiege_index_dropped_total", "Index rows dropped under back-pressure.")
	fmt.Fprintf(rw, "voxelsiege_index_dropped_total{kind=%q} %d\n", "tick", st.DropTickTotal)
	fmt.Fprintf(rw, "voxelsiege_index_dropped_total{kind=%q} %d\n", "run", st.DropRunTotal)
	fmt.Fprintf(rw, "voxelsiege_index_dropped_total{kind=%q} %d\n", "snapshot", st.DropSnapshotTotal)
	counter("voxelsiege_index_write_fail_total", "Failed index transactions.")
	fmt.Fprintf(rw, "voxelsiege_index_write_fail_total %d\n", st.WriteFailTotal)
}
