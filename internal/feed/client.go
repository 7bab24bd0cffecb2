package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/novaavatar/internal/bus"
)

type Config struct {
	URL               string
	DialTimeout       time.Duration
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// Client maintains the websocket to the producer, reconnecting with
// exponential backoff until its context ends.
type Client struct {
	cfg      Config
	dispatch *Dispatcher
	log      zerolog.Logger
	id       string
	dialer   *websocket.Dialer

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	writeMu   sync.Mutex

	received atomic.Uint64
	rejected atomic.Uint64
}

func NewClient(cfg Config, d *Dispatcher, log zerolog.Logger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = cfg.ReconnectDelay
	}
	return &Client{
		cfg:      cfg,
		dispatch: d,
		log:      log,
		id:       uuid.NewString(),
		dialer:   &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
	}
}

// ID is the client id sent in the hello message.
func (c *Client) ID() string {
	return c.id
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Received reports how many messages were applied and how many were rejected.
func (c *Client) Received() (applied, rejected uint64) {
	return c.received.Load(), c.rejected.Load()
}

// Send writes one message to the producer.
func (c *Client) Send(msg Message) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Type, err)
	}
	return nil
}

// Run connects and reconnects until ctx is done. It always returns nil after
// cancellation so it can run under an errgroup.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.ReconnectDelay
	failures := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		connected, err := c.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = c.cfg.ReconnectDelay
			failures = 0
		} else {
			failures++
		}

		switch {
		case failures >= 3:
			if failures == 3 {
				c.log.Warn().Err(err).Int("failures", failures).Msg("feed unavailable, will retry less frequently")
			}
			backoff = c.cfg.MaxReconnectDelay
		default:
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("feed connection lost")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		if backoff < c.cfg.MaxReconnectDelay {
			backoff = min(backoff*2, c.cfg.MaxReconnectDelay)
		}
	}
}

// connect runs one connection until it fails. connected reports whether the
// handshake succeeded.
func (c *Client) connect(ctx context.Context) (connected bool, err error) {
	sess := c.dispatch.Session
	if err := sess.Connect(); err != nil {
		sess.Closed()
		_ = sess.Connect()
	}

	c.log.Info().Str("url", c.cfg.URL).Msg("connecting to feed")
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		sess.Closed()
		return false, fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	_ = sess.Opened()
	c.publish(bus.EventTypeConnected, map[string]any{"url": c.cfg.URL, "session_id": sess.ID()})
	c.log.Info().Str("session_id", sess.ID()).Msg("feed connected")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	defer func() {
		close(stop)
		wg.Wait()

		c.mu.Lock()
		c.conn = nil
		c.connected = false
		c.mu.Unlock()
		conn.Close()

		sess.Closed()
		c.dispatch.Handle.ClearNovaSignal()
		c.publish(bus.EventTypeDisconnected, map[string]any{"url": c.cfg.URL})
	}()

	if err := c.Send(Message{Type: TypeHello, ClientID: c.id}); err != nil {
		return true, err
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		c.handleMessage(raw)
	}
}

func (c *Client) handleMessage(raw []byte) {
	msg, err := Decode(raw)
	if err == nil {
		err = c.dispatch.Apply(msg)
	}
	if err != nil {
		c.rejected.Add(1)
		c.log.Debug().Err(err).Msg("feed message rejected")
		return
	}
	c.received.Add(1)
}

func (c *Client) publish(t bus.EventType, data map[string]any) {
	c.dispatch.publish(t, data)
}
