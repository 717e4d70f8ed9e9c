package doip

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/greyfold/teletask-bridge/internal/infrastructure/mqtt"
)

// Connection is the transport capability the bridge needs. Satisfied
// by *Client.
type Connection interface {
	Transport
	SetOnEvent(callback func(Event))
}

// MQTTClient is the messaging capability the bridge needs. Satisfied
// by the infrastructure mqtt client.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	IsConnected() bool
}

// EventRecorder persists bus events. Satisfied by the history store.
type EventRecorder interface {
	RecordEvent(ctx context.Context, function string, address, state int, source string) error
}

// TelemetryWriter forwards bus events and throughput counters to the
// time-series backend. Satisfied by the influxdb client.
type TelemetryWriter interface {
	WriteBusEvent(function string, address, state int)
	WriteBridgeStats(processed, failures uint64)
}

// SyncTarget is one (function, address) pair to query during the
// startup state sync.
type SyncTarget struct {
	Function Function
	Address  int
}

// StateSyncer enumerates the addresses whose state should be fetched
// at startup. Satisfied by the device registry.
type StateSyncer interface {
	SyncTargets() []SyncTarget
}

// Bridge defaults.
const (
	defaultTopicPrefix   = "teletask"
	defaultSyncDelay     = 50 * time.Millisecond
	defaultStatsInterval = time.Minute
	defaultQoS           = byte(1)
)

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	// Connection to the central unit. Required.
	Connection Connection

	// MQTT publishes states and receives commands. Optional; without
	// it the bridge still routes events to devices.
	MQTT MQTTClient

	// Router receives every inbound event, normally the device
	// registry. Optional.
	Router EventRouter

	// Syncer enumerates addresses for the startup state sync,
	// normally the device registry. Optional.
	Syncer StateSyncer

	// History records every bus event. Optional.
	History EventRecorder

	// Telemetry forwards bus events to the time-series backend. Optional.
	Telemetry TelemetryWriter

	// TopicPrefix is the root of the MQTT topic tree. Defaults to
	// "teletask".
	TopicPrefix string

	// KeepAliveInterval overrides the queue's keep-alive period.
	KeepAliveInterval time.Duration

	// SyncOnStart enables the startup state sync.
	SyncOnStart bool

	// SyncDelay is the pause between sync reads so the central unit is
	// not flooded. Defaults to 50ms.
	SyncDelay time.Duration

	// StatsInterval is the sampling period for telemetry counters.
	// Defaults to 1m. Ignored without a Telemetry writer.
	StatsInterval time.Duration

	// Logger receives bridge diagnostics. Optional.
	Logger Logger
}

// Bridge wires the DoIP connection to MQTT, the device registry and
// the persistence hooks. It owns the dispatch queue: all outbound
// traffic funnels through Submit, all inbound events through the
// queue's fan-out.
type Bridge struct {
	conn      Connection
	queue     *DispatchQueue
	mqtt      MQTTClient
	syncer    StateSyncer
	history   EventRecorder
	telemetry TelemetryWriter
	logger    Logger

	topicPrefix   string
	topics        mqtt.Topics
	syncOnStart   bool
	syncDelay     time.Duration
	statsInterval time.Duration

	started  bool
	startMu  sync.Mutex
	stopOnce sync.Once

	// syncCancel stops an in-flight startup sync on Stop.
	syncCancel context.CancelFunc
	syncDone   chan struct{}

	// statsStop ends the telemetry sampler on Stop.
	statsStop chan struct{}
	statsDone chan struct{}
}

// NewBridge builds a bridge and its dispatch queue. The queue stays
// stopped until Start.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Connection == nil {
		return nil, fmt.Errorf("doip: bridge requires a connection")
	}
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = defaultTopicPrefix
	}
	if opts.SyncDelay <= 0 {
		opts.SyncDelay = defaultSyncDelay
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = defaultStatsInterval
	}

	queue, err := NewDispatchQueue(QueueOptions{
		Transport:         opts.Connection,
		Router:            opts.Router,
		KeepAliveInterval: opts.KeepAliveInterval,
		Logger:            opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Bridge{
		conn:          opts.Connection,
		queue:         queue,
		mqtt:          opts.MQTT,
		syncer:        opts.Syncer,
		history:       opts.History,
		telemetry:     opts.Telemetry,
		logger:        opts.Logger,
		topicPrefix:   opts.TopicPrefix,
		topics:        mqtt.NewTopics(opts.TopicPrefix),
		syncOnStart:   opts.SyncOnStart,
		syncDelay:     opts.SyncDelay,
		statsInterval: opts.StatsInterval,
	}, nil
}

// Queue exposes the dispatch queue for device construction; devices
// hold it through their CommandSender capability.
func (b *Bridge) Queue() *DispatchQueue {
	return b.queue
}

// Start brings the bridge up: queue, feedback registration, MQTT
// command subscription, online status and the optional state sync.
func (b *Bridge) Start(ctx context.Context) error {
	b.startMu.Lock()
	defer b.startMu.Unlock()
	if b.started {
		return ErrAlreadyRunning
	}

	b.conn.SetOnEvent(b.queue.EnqueueEvent)
	if err := b.queue.Start(); err != nil {
		return err
	}

	if err := b.registerFeedback(); err != nil {
		b.queue.Stop()
		return err
	}

	b.queue.RegisterListener(b.onBusEvent)

	if b.mqtt != nil {
		if err := b.mqtt.Subscribe(b.commandSubscription(), defaultQoS, b.handleCommandMessage); err != nil {
			b.queue.Stop()
			return fmt.Errorf("doip: subscribing to command topics: %w", err)
		}
		b.publishStatus("online")
	}

	if b.syncOnStart && b.syncer != nil {
		syncCtx, cancel := context.WithCancel(ctx)
		b.syncCancel = cancel
		b.syncDone = make(chan struct{})
		go b.syncStates(syncCtx)
	}

	if b.telemetry != nil {
		b.statsStop = make(chan struct{})
		b.statsDone = make(chan struct{})
		go b.sampleStats()
	}

	b.started = true
	b.logInfo("bridge started", "topic_prefix", b.topicPrefix, "sync_on_start", b.syncOnStart)
	return nil
}

// Stop drains the queue and publishes the offline status. The
// connection itself is owned by the caller and stays open.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.syncCancel != nil {
			b.syncCancel()
			<-b.syncDone
		}
		b.queue.Stop()
		if b.statsStop != nil {
			close(b.statsStop)
			<-b.statsDone
		}
		if b.mqtt != nil {
			b.publishStatus("offline")
		}
		b.logInfo("bridge stopped")
	})
}

// registerFeedback asks the central unit for event reports on every
// function class that supports them. Without this the central unit
// stays silent about state changes.
func (b *Bridge) registerFeedback() error {
	for _, function := range FeedbackFunctions() {
		if err := b.queue.Submit(NewLog(function)); err != nil {
			return fmt.Errorf("doip: registering feedback for %s: %w", function, err)
		}
	}
	b.logDebug("feedback registration queued", "functions", len(FeedbackFunctions()))
	return nil
}

// syncStates fetches current state for every registered device address,
// paced so the central unit is not flooded.
func (b *Bridge) syncStates(ctx context.Context) {
	defer close(b.syncDone)

	targets := b.syncer.SyncTargets()
	b.logInfo("starting state sync", "targets", len(targets))

	for _, target := range targets {
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.syncDelay):
		}
		if err := b.queue.Submit(NewGet(target.Function, target.Address)); err != nil {
			b.logWarn("state sync read rejected", "target", fmt.Sprintf("%s/%d", target.Function, target.Address), "error", err.Error())
			return
		}
	}
}

// sampleStats periodically forwards queue counters to the telemetry
// backend. A final sample is written on stop so the drained totals are
// recorded.
func (b *Bridge) sampleStats() {
	defer close(b.statsDone)

	ticker := time.NewTicker(b.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.statsStop:
			b.telemetry.WriteBridgeStats(b.queue.Processed(), b.queue.Failures())
			return
		case <-ticker.C:
			b.telemetry.WriteBridgeStats(b.queue.Processed(), b.queue.Failures())
		}
	}
}

// onBusEvent is the queue listener feeding the outward surfaces:
// MQTT state topic, history row, telemetry point.
func (b *Bridge) onBusEvent(event Event) bool {
	if b.mqtt != nil {
		payload, err := NewStateMessage(event).Encode()
		if err != nil {
			b.logError("state publish skipped", "event", event.String(), "error", err.Error())
		} else if err := b.mqtt.Publish(b.stateTopic(event), payload, defaultQoS, true); err != nil {
			b.logError("state publish failed", "event", event.String(), "error", err.Error())
		}
	}

	if b.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := b.history.RecordEvent(ctx, event.Function.String(), event.Address, event.State, "bus"); err != nil {
			b.logError("history record failed", "event", event.String(), "error", err.Error())
		}
		cancel()
	}

	if b.telemetry != nil {
		b.telemetry.WriteBusEvent(event.Function.String(), event.Address, event.State)
	}

	return true
}

// handleCommandMessage translates a command topic message into a bus
// command and submits it.
func (b *Bridge) handleCommandMessage(topic string, payload []byte) error {
	function, address, err := b.parseCommandTopic(topic)
	if err != nil {
		b.logWarn("ignoring command on malformed topic", "topic", topic, "error", err.Error())
		return nil
	}

	msg, err := ParseCommandMessage(payload)
	if err != nil {
		b.logWarn("ignoring malformed command payload", "topic", topic, "error", err.Error())
		return nil
	}

	var cmd Command
	switch msg.Action {
	case ActionOn:
		cmd = NewSet(function, address, SettingOn)
	case ActionOff:
		cmd = NewSet(function, address, SettingOff)
	case ActionToggle:
		cmd = NewSet(function, address, SettingToggle)
	case ActionSet:
		cmd = NewSet(function, address, *msg.Value)
	case ActionGet:
		cmd = NewGet(function, address)
	}

	if err := b.queue.Submit(cmd); err != nil {
		b.logError("command submit failed", "command", cmd.String(), "error", err.Error())
		return err
	}
	b.logDebug("command accepted", "command", cmd.String(), "topic", topic)
	return nil
}

// parseCommandTopic extracts function and address from
// <prefix>/command/<function>/<address>.
func (b *Bridge) parseCommandTopic(topic string) (Function, int, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != b.topicPrefix || parts[1] != "command" {
		return 0, 0, fmt.Errorf("doip: topic %q does not match %s/command/<function>/<address>", topic, b.topicPrefix)
	}

	function, ok := FunctionFromName(parts[2])
	if !ok {
		return 0, 0, fmt.Errorf("doip: unknown function %q", parts[2])
	}

	address, err := strconv.Atoi(parts[3])
	if err != nil || address <= 0 {
		return 0, 0, fmt.Errorf("doip: invalid address %q", parts[3])
	}

	return function, address, nil
}

// commandSubscription is the wildcard filter covering all command topics.
func (b *Bridge) commandSubscription() string {
	return b.topics.AllDeviceCommands()
}

// stateTopic is the retained state topic for an event.
func (b *Bridge) stateTopic(event Event) string {
	return b.topics.DeviceState(event.Function.String(), strconv.Itoa(event.Address))
}

// statusTopic carries the bridge's online/offline status.
func (b *Bridge) statusTopic() string {
	return b.topics.BridgeStatus()
}

func (b *Bridge) publishStatus(status string) {
	if err := b.mqtt.Publish(b.statusTopic(), []byte(status), defaultQoS, true); err != nil {
		b.logWarn("status publish failed", "status", status, "error", err.Error())
	}
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, args...)
	}
}
