package world

// WorldMetrics is a thread-safe read-only view of key runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick  uint64 `json:"tick"`
	Phase string `json:"phase"`
	RunID string `json:"run_id,omitempty"`

	Clients   int `json:"clients"`
	Observers int `json:"observers"`

	Turrets     int `json:"turrets"`
	Projectiles int `json:"projectiles"`
	Hostiles    int `json:"hostiles"`
	Debris      int `json:"debris"`

	Health float64 `json:"health"`
	Energy float64 `json:"energy"`
	Heat   float64 `json:"heat"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS        float64 `json:"step_ms"`
	FramesDropped uint64  `json:"frames_dropped"`
	RunsTotal     uint64  `json:"runs_total"`
}

type QueueDepths struct {
	Inbox  int `json:"inbox"`
	Attach int `json:"attach"`
	Admin  int `json:"admin"`
}

func (w *World) storeMetrics(tick uint64, stepMS float64) {
	s := w.sess
	observers := 0
	for _, c := range w.clients {
		if c.Observer {
			observers++
		}
	}
	turrets, projectiles, hostiles, debris := s.Counts()
	w.metrics.Store(WorldMetrics{
		Tick:        tick,
		Phase:       s.phase.String(),
		RunID:       s.RunID(),
		Clients:     len(w.clients),
		Observers:   observers,
		Turrets:     turrets,
		Projectiles: projectiles,
		Hostiles:    hostiles,
		Debris:      debris,
		Health:      s.player.Health,
		Energy:      s.governor.Energy,
		Heat:        s.governor.Heat,
		QueueDepths: QueueDepths{
			Inbox:  len(w.inbox),
			Attach: len(w.attach),
			Admin:  len(w.admin),
		},
		StepMS:        stepMS,
		FramesDropped: w.framesDropped.Load(),
		RunsTotal:     w.runsTotal.Load(),
	})
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
