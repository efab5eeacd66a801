package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default reconnect/backoff parameters of the agent.
const (
	DefaultPingInterval = 30 * time.Second
	DefaultBaseDelay    = 1 * time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultMaxRetries   = 5
)

// ClientTransport is the client side of a live connection.
type ClientTransport interface {
	Send(Frame) error
	Close() error
}

// Dialer opens a live connection authenticated with the given bearer token.
type Dialer interface {
	Dial(ctx context.Context, token string) (ClientTransport, error)
}

// Agent maintains at most one live connection on the client side: periodic
// liveness pings while open, exponential-backoff reconnects on loss, and
// opportunistic reconnects when the execution context wakes up. An explicit
// Disconnect suppresses all automatic reconnection.
type Agent struct {
	dialer Dialer
	log    *slog.Logger

	pingEvery  time.Duration
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxRetries int

	mu         sync.Mutex
	token      string
	conn       ClientTransport
	dialing    bool
	stopped    bool
	retries    int
	retryTimer *time.Timer
	pingStop   chan struct{}
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithPingInterval overrides the liveness ping period.
func WithPingInterval(d time.Duration) AgentOption {
	return func(a *Agent) { a.pingEvery = d }
}

// WithBackoff overrides the reconnect backoff parameters.
func WithBackoff(base, max time.Duration, maxRetries int) AgentOption {
	return func(a *Agent) {
		a.baseDelay = base
		a.maxDelay = max
		a.maxRetries = maxRetries
	}
}

// WithAgentLogger overrides the agent logger.
func WithAgentLogger(log *slog.Logger) AgentOption {
	return func(a *Agent) { a.log = log }
}

// NewAgent creates a reconnection agent around dialer.
func NewAgent(dialer Dialer, opts ...AgentOption) *Agent {
	a := &Agent{
		dialer:     dialer,
		log:        slog.Default(),
		pingEvery:  DefaultPingInterval,
		baseDelay:  DefaultBaseDelay,
		maxDelay:   DefaultMaxDelay,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetAuthorization installs or clears the bearer token. A non-empty token
// re-arms the agent and triggers a connection attempt; an empty one drops the
// live connection and stops reconnecting.
func (a *Agent) SetAuthorization(token string) {
	a.mu.Lock()
	a.token = token
	if token == "" {
		a.dropLocked()
		a.mu.Unlock()
		return
	}
	a.stopped = false
	a.mu.Unlock()
	a.Connect()
}

// Connect attempts to open the connection now if the agent is authorized, not
// explicitly stopped and not already connected.
func (a *Agent) Connect() {
	a.mu.Lock()
	if a.stopped || a.token == "" || a.conn != nil || a.dialing {
		a.mu.Unlock()
		return
	}
	a.dialing = true
	token := a.token
	a.mu.Unlock()

	conn, err := a.dialer.Dial(context.Background(), token)

	a.mu.Lock()
	a.dialing = false
	if err != nil {
		a.mu.Unlock()
		a.log.Warn("connection attempt failed", "err", err)
		a.scheduleReconnect()
		return
	}
	if a.stopped || a.token == "" {
		a.mu.Unlock()
		_ = conn.Close()
		return
	}
	a.conn = conn
	a.retries = 0
	stop := make(chan struct{})
	a.pingStop = stop
	a.mu.Unlock()

	go a.pingLoop(conn, stop)
	a.log.Info("live connection open")
}

// ConnectionLost is invoked by the transport integration when the link drops.
// While the agent is still authorized and under the retry ceiling, a
// reconnect is scheduled after an exponentially growing delay.
func (a *Agent) ConnectionLost() {
	a.mu.Lock()
	a.stopPingLocked()
	a.conn = nil
	if a.stopped || a.token == "" {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()
	a.scheduleReconnect()
}

// Disconnect is the user-initiated close: it drops the connection, suppresses
// all further automatic reconnection and resets the retry counter.
func (a *Agent) Disconnect() {
	a.mu.Lock()
	a.stopped = true
	a.retries = 0
	a.dropLocked()
	a.mu.Unlock()
}

// WakeUp opportunistically reconnects when the execution context regains
// visibility or network connectivity, without waiting for the backoff timer.
func (a *Agent) WakeUp() {
	a.mu.Lock()
	if a.stopped || a.token == "" || a.conn != nil {
		a.mu.Unlock()
		return
	}
	if a.retryTimer != nil {
		a.retryTimer.Stop()
		a.retryTimer = nil
	}
	a.mu.Unlock()
	a.Connect()
}

// Connected reports whether the agent currently holds a live connection.
func (a *Agent) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil
}

func (a *Agent) scheduleReconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped || a.token == "" {
		return
	}
	if a.retries >= a.maxRetries {
		a.log.Warn("reconnect retry ceiling reached, giving up")
		return
	}

	delay := a.baseDelay << a.retries
	if delay > a.maxDelay {
		delay = a.maxDelay
	}
	a.retries++

	a.log.Info("scheduling reconnect", "attempt", a.retries, "delay", delay)
	a.retryTimer = time.AfterFunc(delay, a.Connect)
}

func (a *Agent) pingLoop(conn ClientTransport, stop chan struct{}) {
	ticker := time.NewTicker(a.pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.Send(NewFrame(FramePing, nil)); err != nil {
				a.onSendFailure(conn)
				return
			}
		}
	}
}

// onSendFailure treats a ping write error as a lost connection, but only if
// conn is still the current one.
func (a *Agent) onSendFailure(conn ClientTransport) {
	a.mu.Lock()
	current := a.conn == conn
	a.mu.Unlock()
	if current {
		a.ConnectionLost()
	}
}

func (a *Agent) dropLocked() {
	if a.retryTimer != nil {
		a.retryTimer.Stop()
		a.retryTimer = nil
	}
	a.stopPingLocked()
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
}

func (a *Agent) stopPingLocked() {
	if a.pingStop != nil {
		close(a.pingStop)
		a.pingStop = nil
	}
}
