// Package stream carries realtime frames as newline-delimited JSON over a
// net.Conn, binding sockets to the delivery hub.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"

	"github.com/lockstitch/courier/realtime"
)

// maxFrameSize bounds a single wire frame.
const maxFrameSize = 256 * 1024

// AuthRequest is the payload of the mandatory first frame on a connection.
type AuthRequest struct {
	Token string `json:"token"`
}

// Server accepts socket connections and hands authenticated ones to the hub.
type Server struct {
	hub *realtime.Hub
	log *slog.Logger
}

// NewServer creates a new stream server.
func NewServer(hub *realtime.Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{hub: hub, log: log}
}

// Serve accepts connections from ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handle(ctx, conn)
	}
}

// handle runs one socket: the first frame must be an auth frame whose token
// verifies, otherwise the handshake is refused and the socket closed. After
// admission every inbound frame goes to the hub.
func (s *Server) handle(ctx context.Context, netConn net.Conn) {
	t := &sockTransport{conn: netConn}

	sc := bufio.NewScanner(netConn)
	sc.Buffer(make([]byte, 0, 4096), maxFrameSize)

	if !sc.Scan() {
		_ = netConn.Close()
		return
	}

	var first realtime.Frame
	if err := json.Unmarshal(sc.Bytes(), &first); err != nil || first.Type != realtime.FrameAuth {
		_ = t.Send(realtime.NewFrame(realtime.FrameError, realtime.ErrorData{Message: "authentication required"}))
		_ = netConn.Close()
		return
	}

	var auth AuthRequest
	_ = json.Unmarshal(first.Data, &auth)

	conn, err := s.hub.Connect(ctx, auth.Token, t)
	if err != nil {
		s.log.Info("handshake refused", "remote", netConn.RemoteAddr(), "err", err)
		_ = t.Send(realtime.NewFrame(realtime.FrameError, realtime.ErrorData{Message: "authentication failed"}))
		_ = netConn.Close()
		return
	}

	for sc.Scan() {
		var frame realtime.Frame
		if err := json.Unmarshal(sc.Bytes(), &frame); err != nil {
			_ = t.Send(realtime.NewFrame(realtime.FrameError, realtime.ErrorData{Message: "malformed frame"}))
			continue
		}
		s.hub.HandleFrame(ctx, conn, frame)
	}

	s.hub.Disconnect(ctx, conn)
}
