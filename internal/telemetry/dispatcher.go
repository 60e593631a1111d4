package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// BufferSize is the number of events held before new ones are dropped.
	BufferSize int

	// SinkTimeout bounds each sink write.
	SinkTimeout time.Duration
}

// DropRecorder is notified of dropped events. *observability.Metrics
// satisfies it.
type DropRecorder interface {
	RecordTelemetryDropped(reason string)
}

// Dispatcher fans events out to sinks from a single background goroutine.
type Dispatcher struct {
	sinks   []Sink
	events  chan Event
	timeout time.Duration
	drops   DropRecorder
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts a dispatcher. Call Close to flush and stop it.
func NewDispatcher(cfg DispatcherConfig, logger zerolog.Logger, drops DropRecorder, sinks ...Sink) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 5 * time.Second
	}

	d := &Dispatcher{
		sinks:   sinks,
		events:  make(chan Event, cfg.BufferSize),
		timeout: cfg.SinkTimeout,
		drops:   drops,
		logger:  logger.With().Str("component", "telemetry_dispatcher").Logger(),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Emit queues an event. It never blocks; when the buffer is full the event
// is dropped.
func (d *Dispatcher) Emit(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped("closed")
		return
	}

	select {
	case d.events <- e:
	default:
		d.dropped("buffer_full")
	}
}

// Close stops accepting events and waits for queued ones to be written, or
// for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.events {
		for _, s := range d.sinks {
			d.write(s, e)
		}
	}
}

func (d *Dispatcher) write(s Sink, e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Str("sink", s.Name()).Interface("panic", r).Msg("telemetry sink panicked")
		}
	}()

	if err := s.Write(ctx, e); err != nil {
		d.logger.Warn().Err(err).
			Str("sink", s.Name()).
			Str("event_kind", string(e.Kind)).
			Msg("telemetry sink write failed")
		d.dropped("sink_error")
	}
}

func (d *Dispatcher) dropped(reason string) {
	if d.drops != nil {
		d.drops.RecordTelemetryDropped(reason)
	}
}
