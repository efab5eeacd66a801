package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"github.com/lockstitch/courier/realtime"
)

// Dialer opens authenticated stream connections for the reconnection agent.
// OnFrame receives every inbound frame after the handshake; OnClose fires once
// when the link drops (wire it to Agent.ConnectionLost).
type Dialer struct {
	Addr    string
	OnFrame func(realtime.Frame)
	OnClose func()
	Log     *slog.Logger
}

// Dial connects, performs the auth-first handshake and starts the read loop.
func (d *Dialer) Dial(ctx context.Context, token string) (realtime.ClientTransport, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", d.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", d.Addr, err)
	}

	t := &sockTransport{conn: conn}
	if err := t.Send(realtime.NewFrame(realtime.FrameAuth, AuthRequest{Token: token})); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send auth frame: %w", err)
	}

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), maxFrameSize)

	if !sc.Scan() {
		_ = conn.Close()
		return nil, fmt.Errorf("connection closed during handshake")
	}

	var reply realtime.Frame
	if err := json.Unmarshal(sc.Bytes(), &reply); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("malformed handshake reply: %w", err)
	}
	if reply.Type != realtime.FrameAuth {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake refused")
	}

	go d.readLoop(sc, conn)
	return t, nil
}

func (d *Dialer) readLoop(sc *bufio.Scanner, conn net.Conn) {
	for sc.Scan() {
		var frame realtime.Frame
		if err := json.Unmarshal(sc.Bytes(), &frame); err != nil {
			continue
		}
		if d.OnFrame != nil {
			d.OnFrame(frame)
		}
	}
	_ = conn.Close()
	if d.OnClose != nil {
		d.OnClose()
	}
}

var _ realtime.Dialer = (*Dialer)(nil)
