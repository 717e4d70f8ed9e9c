package doip

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the minimal logging interface used by this package.
// Satisfied by *logging.Logger; a nil logger disables logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Defaults for client configuration.
const (
	defaultPort           = 55957
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 30 * time.Second
	defaultWriteTimeout   = 5 * time.Second

	// readBufferSize is the socket read chunk size. Event runs are
	// short ASCII strings; 1 KiB comfortably holds a burst.
	readBufferSize = 1024

	// eventQueueSize bounds the decoded-event handoff between the
	// receive loop and the callback worker. Events are dropped (with a
	// counter) when the consumer cannot keep up.
	eventQueueSize = 100
)

// ClientConfig holds connection settings for the central unit.
type ClientConfig struct {
	// Host is the IP or hostname of the central unit. Required.
	Host string

	// Port is the DoIP TCP port. Defaults to 55957.
	Port int

	// ConnectTimeout bounds the TCP dial. Defaults to 10s.
	ConnectTimeout time.Duration

	// ReadTimeout is the per-read deadline of the receive loop. A
	// timeout is not an error; the loop re-arms and keeps reading.
	// Defaults to 30s.
	ReadTimeout time.Duration

	// WriteTimeout bounds each frame write. Defaults to 5s.
	WriteTimeout time.Duration

	// Logger receives connection lifecycle and decode diagnostics.
	// Optional.
	Logger Logger
}

func (cfg *ClientConfig) applyDefaults() {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
}

// ClientStats is a snapshot of transport counters.
type ClientStats struct {
	Connected     bool
	FramesSent    uint64
	EventsDecoded uint64
	EventsDropped uint64
	BytesDropped  uint64
	WriteErrors   uint64
	LastActivity  time.Time
}

// closeOnce wraps a channel that must only be closed once.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Client is a single persistent TCP connection to a Teletask central
// unit. It owns a receive loop that feeds the frame scanner and hands
// decoded events to the registered callback via a bounded queue.
//
// The client connects once and stays connected until Close; it does
// not reconnect on its own. Reconnection policy belongs to the caller.
//
// Thread safety: all exported methods are safe for concurrent use.
type Client struct {
	cfg    ClientConfig
	conn   net.Conn
	logger Logger

	writeMu sync.Mutex

	onEvent   func(Event)
	onEventMu sync.RWMutex

	// eventQueue decouples socket reads from callback execution. A
	// single worker preserves bus arrival order.
	eventQueue chan Event

	done      *closeOnce
	loopDone  chan struct{}
	connected atomic.Bool
	closed    atomic.Bool

	framesSent    atomic.Uint64
	eventsDecoded atomic.Uint64
	eventsDropped atomic.Uint64
	writeErrors   atomic.Uint64
	lastActivity  atomic.Int64

	scanner *FrameScanner
}

// Connect dials the central unit and starts the receive loop.
func Connect(ctx context.Context, cfg ClientConfig) (*Client, error) {
	cfg.applyDefaults()
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrConnectionFailed)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, addr, err)
	}

	c := &Client{
		cfg:        cfg,
		conn:       conn,
		logger:     cfg.Logger,
		eventQueue: make(chan Event, eventQueueSize),
		done:       newCloseOnce(),
		loopDone:   make(chan struct{}),
		scanner:    NewFrameScanner(),
	}
	c.connected.Store(true)
	c.touch()

	go c.receiveLoop()
	go c.callbackWorker()

	c.logInfo("connected to central unit", "addr", addr)
	return c, nil
}

// SetOnEvent registers the callback invoked for each decoded event.
// Events decoded before a callback is registered are dropped.
func (c *Client) SetOnEvent(callback func(Event)) {
	c.onEventMu.Lock()
	c.onEvent = callback
	c.onEventMu.Unlock()
}

// WriteFrame writes an encoded frame to the socket. The write is
// serialized and deadline-guarded; a failed write marks the client
// disconnected.
func (c *Client) WriteFrame(frame string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.connected.Load() {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		c.writeErrors.Add(1)
		return fmt.Errorf("%w: setting deadline: %w", ErrWriteFailed, err)
	}
	if _, err := c.conn.Write([]byte(frame)); err != nil {
		c.writeErrors.Add(1)
		c.markDisconnected("write error", err)
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	c.framesSent.Add(1)
	c.touch()
	c.logDebug("frame sent", "frame", frame)
	return nil
}

// IsConnected reports whether the connection is believed alive.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Stats returns a snapshot of transport counters.
func (c *Client) Stats() ClientStats {
	return ClientStats{
		Connected:     c.connected.Load(),
		FramesSent:    c.framesSent.Load(),
		EventsDecoded: c.eventsDecoded.Load(),
		EventsDropped: c.eventsDropped.Load(),
		BytesDropped:  c.scanner.DroppedBytes(),
		WriteErrors:   c.writeErrors.Load(),
		LastActivity:  time.Unix(0, c.lastActivity.Load()),
	}
}

// Close shuts the connection down and stops the receive loop and the
// callback worker. Safe to call multiple times; repeat calls wait for
// the shutdown to finish and return nil.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		<-c.loopDone
		return nil
	}

	c.done.Close()
	c.connected.Store(false)

	err := c.conn.Close()

	// The receive loop exits on the closed socket; wait so the scanner
	// is not touched after Close returns.
	<-c.loopDone

	c.logInfo("connection closed")
	if err != nil {
		return fmt.Errorf("doip: closing connection: %w", err)
	}
	return nil
}

// receiveLoop reads the socket until the connection drops or the
// client is closed. Chunks go through the frame scanner; decoded
// events are queued for the callback worker.
func (c *Client) receiveLoop() {
	defer close(c.loopDone)
	defer close(c.eventQueue)

	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-c.done.Done():
			return
		default:
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			c.markDisconnected("setting read deadline", err)
			return
		}

		n, err := c.conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-c.done.Done():
				// Expected: Close tore the socket down.
			default:
				c.markDisconnected("read error", err)
			}
			return
		}
		if n == 0 {
			continue
		}
		c.touch()

		for _, event := range c.scanner.Push(buf[:n]) {
			c.eventsDecoded.Add(1)
			select {
			case c.eventQueue <- event:
			default:
				c.eventsDropped.Add(1)
				c.logWarn("event queue full, dropping event", "event", event.String())
			}
		}
	}
}

// callbackWorker drains the event queue. A single worker keeps
// delivery in bus arrival order.
func (c *Client) callbackWorker() {
	for event := range c.eventQueue {
		c.onEventMu.RLock()
		callback := c.onEvent
		c.onEventMu.RUnlock()

		if callback == nil {
			c.eventsDropped.Add(1)
			continue
		}
		c.invokeCallback(callback, event)
	}
}

// invokeCallback runs the callback with panic recovery so a faulty
// handler cannot kill the worker.
func (c *Client) invokeCallback(callback func(Event), event Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logError("event callback panicked", "event", event.String(), "panic", fmt.Sprintf("%v", r))
		}
	}()
	callback(event)
}

func (c *Client) markDisconnected(reason string, err error) {
	if c.connected.CompareAndSwap(true, false) {
		c.logError("connection lost", "reason", reason, "error", err.Error())
	}
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Client) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
