// Package statusfeed is a Go client for the real-time status page feed. It
// dials the organization-scoped websocket endpoint, keeps a local State in
// sync with the events the server pushes, and transparently reconnects with
// exponential backoff when the connection drops.
package statusfeed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultMinReconnectWait is the backoff floor. It mirrors the server's
	// ping interval so a mass disconnect cannot turn into a reconnect storm
	// faster than the server's own heartbeat cadence.
	DefaultMinReconnectWait = 30 * time.Second

	// DefaultMaxReconnectWait caps the backoff growth.
	DefaultMaxReconnectWait = 5 * time.Minute

	// DefaultReadTimeout is how long the feed tolerates a silent server
	// before treating the connection as dead. Twice the server ping interval.
	DefaultReadTimeout = 60 * time.Second

	// writeWait bounds control-frame writes.
	writeWait = 10 * time.Second
)

// Config tunes a Feed.
type Config struct {
	// URL is the organization-bound websocket endpoint, for example
	// ws://host/api/v1/ws/4f8f…. Required.
	URL string

	// Logger receives connection lifecycle and decode-failure logs.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// MinReconnectWait is the first reconnect delay. Values below
	// DefaultMinReconnectWait are raised to it.
	MinReconnectWait time.Duration

	// MaxReconnectWait caps the doubling backoff.
	MaxReconnectWait time.Duration

	// ReadTimeout is the read deadline, refreshed on every server ping.
	ReadTimeout time.Duration

	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration

	// OnEvent, when set, is invoked after each event is merged into the
	// state. Called from the feed's read goroutine.
	OnEvent func(Event)
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.MinReconnectWait < DefaultMinReconnectWait {
		c.MinReconnectWait = DefaultMinReconnectWait
	}
	if c.MaxReconnectWait <= 0 {
		c.MaxReconnectWait = DefaultMaxReconnectWait
	}
	if c.MaxReconnectWait < c.MinReconnectWait {
		c.MaxReconnectWait = c.MinReconnectWait
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	return c
}

// Feed maintains one subscription to an organization's status feed across
// reconnects. Create it with NewFeed, drive it with Run, read the view
// through State, and tear it down with Close.
type Feed struct {
	cfg    Config
	state  *State
	dialer *websocket.Dialer
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	// done is closed by Close and observed by Run; closeOnce makes Close
	// safe to call any number of times, before or after Run.
	done      chan struct{}
	closeOnce sync.Once
}

// NewFeed validates the config and returns an unconnected feed.
func NewFeed(cfg Config) (*Feed, error) {
	if cfg.URL == "" {
		return nil, errors.New("statusfeed: URL is required")
	}
	cfg = cfg.withDefaults()

	return &Feed{
		cfg:   cfg,
		state: NewState(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: cfg.Logger.With("component", "statusfeed"),
		done:   make(chan struct{}),
	}, nil
}

// State returns the feed's local view. The view is valid (and keeps updating)
// across reconnects.
func (f *Feed) State() *State {
	return f.state
}

// Run connects and consumes events until ctx is cancelled or Close is called.
// Connection drops are not errors: Run backs off and redials, doubling the
// wait after each failed attempt and resetting it after a successful connect.
func (f *Feed) Run(ctx context.Context) error {
	wait := f.cfg.MinReconnectWait

	for {
		conn, err := f.dial(ctx)
		if err != nil {
			if f.stopped(ctx) {
				return ctx.Err()
			}
			f.logger.Warn("dial failed, will retry", "url", f.cfg.URL, "wait", wait, "error", err)
		} else {
			wait = f.cfg.MinReconnectWait
			readErr := f.readLoop(conn)
			f.setConn(nil)
			_ = conn.Close()
			if f.stopped(ctx) {
				return ctx.Err()
			}
			f.logger.Warn("connection lost, will reconnect", "wait", wait, "error", readErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(wait):
		}
		wait = nextWait(wait, f.cfg.MaxReconnectWait)
	}
}

// Close tears the feed down proactively: any blocked dial backoff is
// abandoned, the live connection (if any) is closed with a normal close
// frame, and Run returns nil. Safe to call repeatedly and concurrently.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		close(f.done)

		f.mu.Lock()
		conn := f.conn
		f.conn = nil
		f.mu.Unlock()

		if conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			_ = conn.Close()
		}
	})
	return nil
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := f.dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, errors.Join(err, errors.New("handshake status "+resp.Status))
		}
		return nil, err
	}

	f.setConn(conn)
	f.logger.Info("connected", "url", f.cfg.URL)
	return conn, nil
}

// readLoop consumes envelopes until the connection fails. The server drives
// the heartbeat; each ping refreshes our read deadline and is answered with a
// pong, so a dead server surfaces as a read timeout here.
func (f *Feed) readLoop(conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout)); err != nil {
		return err
	}
	conn.SetPingHandler(func(appData string) error {
		if err := conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout)); err != nil {
			return err
		}
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			return err
		}

		if err := f.state.Apply(event); err != nil {
			// Unknown kinds and malformed payloads are dropped at the decode
			// boundary; the feed itself stays up.
			f.logger.Warn("dropping event", "event_type", event.Type, "error", err)
			continue
		}

		if f.cfg.OnEvent != nil {
			f.cfg.OnEvent(event)
		}
	}
}

func (f *Feed) setConn(conn *websocket.Conn) {
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
}

// stopped reports whether teardown was requested via Close or ctx.
func (f *Feed) stopped(ctx context.Context) bool {
	select {
	case <-f.done:
		return true
	default:
	}
	return ctx.Err() != nil
}

// nextWait doubles the reconnect delay up to max.
func nextWait(wait, max time.Duration) time.Duration {
	wait *= 2
	if wait > max {
		return max
	}
	return wait
}
