package stream

import (
	"encoding/json"
	"net"
	"sync"

	"github.com/lockstitch/courier/realtime"
)

// sockTransport writes frames as one JSON document per line. A mutex keeps
// concurrent writers from interleaving lines.
type sockTransport struct {
	mu   sync.Mutex
	conn net.Conn
}

func (t *sockTransport) Send(f realtime.Frame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	raw = append(raw, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err = t.conn.Write(raw)
	return err
}

func (t *sockTransport) Close() error {
	return t.conn.Close()
}

var _ realtime.Transport = (*sockTransport)(nil)
