// Command bot is a websocket autopilot: it orbits the level, aims at the
// nearest active turret and holds the trigger.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxelsiege.ai/internal/config"
	"voxelsiege.ai/internal/observability"
	"voxelsiege.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "client name")
		radius   = flag.Float64("orbit", 40, "orbit radius")
		period   = flag.Duration("period", 60*time.Second, "time for one full orbit")
		observer = flag.Bool("observer", false, "attach as observer (no input)")
		logLevel = flag.String("log_level", "info", "log level")
	)
	flag.Parse()

	logger, err := observability.NewLogger(config.LoggingConfig{Level: *logLevel, Format: "console"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *url, nil)
	if err != nil {
		logger.Fatal("dial", zap.Error(err))
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Observer:        *observer,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatal("send HELLO", zap.Error(err))
	}

	p := &pilot{orbit: *radius, period: period.Seconds()}
	var seq uint64
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("read", zap.Error(err))
			}
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Info("welcome",
				zap.String("session", w.SessionID),
				zap.String("phase", w.Phase),
				zap.Int("tick_rate_hz", w.TickRateHz),
				zap.Int("resolution", w.Field.Resolution),
			)
			if p.orbit <= 0 {
				p.orbit = w.Field.WorldSize * 0.6
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(msg, &e)
			logger.Error("server error", zap.String("code", e.Code), zap.String("message", e.Message))
			return

		case protocol.TypeFrame:
			var f protocol.FrameMsg
			if err := json.Unmarshal(msg, &f); err != nil {
				continue
			}
			for _, ev := range f.Events {
				if ev.Kind == "OUTCOME" || ev.Kind == "PHASE" {
					logger.Info("event", zap.Uint64("tick", f.Tick), zap.String("kind", ev.Kind), zap.String("label", ev.Label))
				}
			}
			if *observer {
				continue
			}
			seq++
			in := p.next(&f)
			in.Seq = seq
			_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
			if err := conn.WriteJSON(in); err != nil {
				logger.Warn("send INPUT", zap.Error(err))
				return
			}
		}
	}
}
