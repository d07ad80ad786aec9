// Package ws bridges presentation clients to the world loop: one HELLO,
// then INPUT up and FRAME down until the socket closes.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxelsiege.ai/internal/protocol"
	"voxelsiege.ai/internal/sim/world"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
	frameQueue       = 8
)

type Server struct {
	world *world.World
	log   *zap.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world: w,
		log:   logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		clientID, out := s.handshake(r.Context(), conn)
		if clientID == "" {
			return
		}
		defer func() {
			select {
			case s.world.Detach() <- clientID:
			case <-time.After(time.Second):
				// World loop is stopping; nothing else to do.
			}
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		s.readLoop(ctx, conn, clientID)
		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeDone:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, clientID string) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeInput {
			continue
		}
		var in protocol.InputMsg
		if err := json.Unmarshal(msg, &in); err != nil {
			continue
		}
		if in.ProtocolVersion != protocol.Version {
			continue
		}
		select {
		case s.world.Inbox() <- world.InputEnvelope{ClientID: clientID, Msg: in}:
		case <-ctx.Done():
			return
		default:
			// Inbox full: the sim is behind, drop rather than stall the socket.
			s.log.Debug("input dropped", zap.String("client", clientID), zap.Uint64("seq", in.Seq))
		}
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (clientID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.refuse(conn, protocol.ErrProtoBadRequest, "expected HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		s.refuse(conn, protocol.ErrProtoBadRequest, "bad HELLO")
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		s.refuse(conn, protocol.ErrProtoVersion, "bad protocol_version")
		return "", nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	out = make(chan []byte, frameQueue)
	respCh := make(chan world.AttachResponse, 1)
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	select {
	case s.world.Attach() <- world.AttachRequest{Name: hello.ClientName, Observer: hello.Observer, Out: out, Resp: respCh}:
	case <-ctx.Done():
		s.refuse(conn, protocol.ErrInternal, "server busy")
		return "", nil
	}
	var resp world.AttachResponse
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		s.refuse(conn, protocol.ErrInternal, "server busy")
		return "", nil
	}
	if resp.ErrCode != "" {
		s.refuse(conn, resp.ErrCode, "attach refused")
		return "", nil
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Detach() <- resp.ClientID
		return "", nil
	}
	return resp.ClientID, out
}

// refuse sends an ERROR message and closes the socket.
func (s *Server) refuse(conn *websocket.Conn, code, message string) {
	s.log.Info("handshake refused", zap.String("code", code), zap.String("reason", message))
	_ = writeJSON(conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
