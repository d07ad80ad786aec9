package ws

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// LevelHandler serves the live level and session parameters so a renderer
// can build its meshes before the first frame. Clients that accept zstd get
// a compressed body.
func (s *Server) LevelHandler(loopbackOnly bool) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if loopbackOnly && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		view, err := s.world.RequestLevelView(ctx)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}

		rw.Header().Set("Content-Type", "application/json")
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "zstd") {
			_ = json.NewEncoder(rw).Encode(view)
			return
		}
		rw.Header().Set("Content-Encoding", "zstd")
		zw, err := zstd.NewWriter(rw)
		if err != nil {
			s.log.Warn("zstd writer", zap.Error(err))
			return
		}
		_ = json.NewEncoder(zw).Encode(view)
		_ = zw.Close()
	}
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
