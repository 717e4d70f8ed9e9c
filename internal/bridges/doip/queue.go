package doip

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// QueueState is the lifecycle state of a dispatch queue.
type QueueState int32

const (
	// QueueStopped means the queue accepts no work. Initial and final state.
	QueueStopped QueueState = iota

	// QueueRunning means the consumer is draining the channel and the
	// keep-alive producer is active.
	QueueRunning

	// QueueDraining means Stop has been called: already-queued items
	// are still processed, new submissions are rejected.
	QueueDraining
)

// String returns the state name for logs.
func (s QueueState) String() string {
	switch s {
	case QueueStopped:
		return "stopped"
	case QueueRunning:
		return "running"
	case QueueDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Transport is the capability the queue needs from the connection:
// write an encoded frame, report liveness. Satisfied by *Client.
type Transport interface {
	WriteFrame(frame string) error
	IsConnected() bool
}

// EventRouter receives every inbound event before listener fan-out.
// Satisfied by the device registry.
type EventRouter interface {
	Route(event Event)
}

// Listener observes inbound events. The return value marks the event
// as handled for diagnostics only; it never suppresses delivery to
// other listeners.
type Listener func(event Event) bool

// ListenerHandle identifies a registered listener for removal.
type ListenerHandle struct {
	id uint64
}

// Defaults for queue configuration.
const (
	defaultKeepAliveInterval = 10 * time.Second
	defaultQueueCapacity     = 256
)

// queueItem is one unit of work: exactly one of command, event or stop
// is set.
type queueItem struct {
	command *Command
	event   *Event
	stop    bool
}

// DispatchQueue serializes all bus traffic through a single consumer.
//
// Outbound commands, inbound events and periodic keep-alives flow
// through one FIFO channel, so ordering between them is total and
// device callbacks never race command writes. A failure processing one
// item is logged and never stops the consumer.
type DispatchQueue struct {
	transport Transport
	router    EventRouter
	logger    Logger

	keepAliveInterval time.Duration

	items chan queueItem
	state atomic.Int32

	// submitMu orders Submit sends against the stop sentinel: Stop
	// takes the write lock, so an accepted command is always enqueued
	// before the sentinel and never silently discarded.
	submitMu sync.RWMutex

	// consumerDone is closed when the consumer observes the stop
	// sentinel; Stop blocks on it.
	consumerDone chan struct{}
	keepAlive    *closeOnce

	listenerMu sync.RWMutex
	listeners  map[uint64]Listener
	listenerID atomic.Uint64

	processed atomic.Uint64
	failures  atomic.Uint64
}

// QueueOptions configures a dispatch queue.
type QueueOptions struct {
	// Transport carries encoded frames to the central unit. Required.
	Transport Transport

	// Router receives every inbound event before listeners. Optional.
	Router EventRouter

	// KeepAliveInterval is the period of the keep-alive producer.
	// Defaults to 10s.
	KeepAliveInterval time.Duration

	// Logger receives dispatch diagnostics. Optional.
	Logger Logger
}

// NewDispatchQueue builds a queue in the stopped state.
func NewDispatchQueue(opts QueueOptions) (*DispatchQueue, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("doip: dispatch queue requires a transport")
	}
	interval := opts.KeepAliveInterval
	if interval <= 0 {
		interval = defaultKeepAliveInterval
	}
	return &DispatchQueue{
		transport:         opts.Transport,
		router:            opts.Router,
		logger:            opts.Logger,
		keepAliveInterval: interval,
		items:             make(chan queueItem, defaultQueueCapacity),
		listeners:         make(map[uint64]Listener),
	}, nil
}

// State returns the current lifecycle state.
func (q *DispatchQueue) State() QueueState {
	return QueueState(q.state.Load())
}

// Start moves the queue to running and launches the consumer and the
// keep-alive producer. Returns ErrAlreadyRunning unless the queue is
// stopped.
func (q *DispatchQueue) Start() error {
	if !q.state.CompareAndSwap(int32(QueueStopped), int32(QueueRunning)) {
		return ErrAlreadyRunning
	}

	q.consumerDone = make(chan struct{})
	q.keepAlive = newCloseOnce()

	go q.consume()
	go q.produceKeepAlives()

	q.logDebug("dispatch queue started")
	return nil
}

// Stop drains the queue and blocks until the consumer observes the
// stop sentinel. Items submitted before Stop are processed; later
// submissions are rejected with ErrNotRunning. Safe to call when
// already stopped.
func (q *DispatchQueue) Stop() {
	q.submitMu.Lock()
	if !q.state.CompareAndSwap(int32(QueueRunning), int32(QueueDraining)) {
		q.submitMu.Unlock()
		return
	}

	// Silence the producer first so the sentinel is the last item.
	q.keepAlive.Close()
	q.items <- queueItem{stop: true}
	q.submitMu.Unlock()

	<-q.consumerDone

	q.state.Store(int32(QueueStopped))
	q.logDebug("dispatch queue stopped", "processed", q.processed.Load())
}

// Submit queues an outbound command. Validation happens here so a
// malformed command fails at the call site; transport failures later
// in the consumer are logged, not returned. A nil return guarantees
// the command precedes any concurrent Stop's sentinel, so it will be
// dispatched during the drain.
func (q *DispatchQueue) Submit(cmd Command) error {
	q.submitMu.RLock()
	defer q.submitMu.RUnlock()

	if q.State() != QueueRunning {
		return ErrNotRunning
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	q.items <- queueItem{command: &cmd}
	return nil
}

// EnqueueEvent queues an inbound event for routing and fan-out.
// Intended as the transport's event callback. Events are dropped when
// the queue is stopped or full.
func (q *DispatchQueue) EnqueueEvent(event Event) {
	if q.State() == QueueStopped {
		return
	}
	select {
	case q.items <- queueItem{event: &event}:
	default:
		q.failures.Add(1)
		q.logWarn("dispatch queue full, dropping event", "event", event.String())
	}
}

// RegisterListener adds an event listener and returns its handle.
func (q *DispatchQueue) RegisterListener(listener Listener) ListenerHandle {
	id := q.listenerID.Add(1)
	q.listenerMu.Lock()
	q.listeners[id] = listener
	q.listenerMu.Unlock()
	return ListenerHandle{id: id}
}

// UnregisterListener removes a listener. Unknown handles are ignored.
func (q *DispatchQueue) UnregisterListener(handle ListenerHandle) {
	q.listenerMu.Lock()
	delete(q.listeners, handle.id)
	q.listenerMu.Unlock()
}

// Processed returns the number of items the consumer has handled.
func (q *DispatchQueue) Processed() uint64 {
	return q.processed.Load()
}

// Failures returns the number of dropped events, failed writes and
// panicking listeners observed so far.
func (q *DispatchQueue) Failures() uint64 {
	return q.failures.Load()
}

// consume is the single consumer goroutine. It runs until the stop
// sentinel and isolates per-item failures.
func (q *DispatchQueue) consume() {
	defer close(q.consumerDone)

	for item := range q.items {
		if item.stop {
			return
		}
		q.processed.Add(1)

		switch {
		case item.command != nil:
			q.dispatchCommand(*item.command)
		case item.event != nil:
			q.dispatchEvent(*item.event)
		}
	}
}

// dispatchCommand encodes and writes one outbound command.
func (q *DispatchQueue) dispatchCommand(cmd Command) {
	frame, err := cmd.Encode()
	if err != nil {
		// Validate ran at submit; reaching this means a bug upstream.
		q.failures.Add(1)
		q.logError("dropping unencodable command", "command", cmd.String(), "error", err.Error())
		return
	}
	if err := q.transport.WriteFrame(frame); err != nil {
		q.failures.Add(1)
		q.logError("command write failed", "command", cmd.String(), "error", err.Error())
	}
}

// dispatchEvent routes one inbound event and fans it out to listeners.
// The listener set is snapshotted so registration during fan-out never
// mutates an in-flight iteration.
func (q *DispatchQueue) dispatchEvent(event Event) {
	if q.router != nil {
		q.router.Route(event)
	}

	q.listenerMu.RLock()
	snapshot := make([]Listener, 0, len(q.listeners))
	for _, l := range q.listeners {
		snapshot = append(snapshot, l)
	}
	q.listenerMu.RUnlock()

	handled := false
	for _, listener := range snapshot {
		if q.invokeListener(listener, event) {
			handled = true
		}
	}
	if !handled && len(snapshot) > 0 {
		q.logDebug("event unhandled by listeners", "event", event.String())
	}
}

// invokeListener shields the consumer from a panicking listener.
func (q *DispatchQueue) invokeListener(listener Listener, event Event) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			q.failures.Add(1)
			q.logError("event listener panicked", "event", event.String(), "panic", fmt.Sprintf("%v", r))
		}
	}()
	return listener(event)
}

// produceKeepAlives submits a keep-alive frame every interval until
// Stop. Keep-alives flow through the same FIFO as everything else.
func (q *DispatchQueue) produceKeepAlives() {
	ticker := time.NewTicker(q.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.keepAlive.Done():
			return
		case <-ticker.C:
			if q.State() != QueueRunning {
				return
			}
			cmd := NewKeepAlive()
			select {
			case q.items <- queueItem{command: &cmd}:
			default:
				// Queue saturated; skipping one keep-alive is harmless.
			}
		}
	}
}

func (q *DispatchQueue) logDebug(msg string, args ...any) {
	if q.logger != nil {
		q.logger.Debug(msg, args...)
	}
}

func (q *DispatchQueue) logWarn(msg string, args ...any) {
	if q.logger != nil {
		q.logger.Warn(msg, args...)
	}
}

func (q *DispatchQueue) logError(msg string, args ...any) {
	if q.logger != nil {
		q.logger.Error(msg, args...)
	}
}
