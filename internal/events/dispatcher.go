// Package events implements the fire-and-forget listener fan-out the
// sample source posts load progress through: a register/unregister/
// broadcast goroutine loop, so listeners are never called inline from
// the driver's own goroutine.
package events

import (
	"log/slog"

	"hlssource/internal/domain/ports"
)

type envelope struct {
	kind int
	v    any
}

const (
	kindLoadStarted = iota
	kindLoadCompleted
	kindLoadCanceled
	kindLoadError
	kindFormatChanged
)

// Dispatcher fans load events out to any number of registered
// ports.EventSink listeners without blocking the caller (the sample
// source's driver goroutine) on a slow or misbehaving listener.
type Dispatcher struct {
	add      chan ports.EventSink
	remove   chan ports.EventSink
	events   chan envelope
	done     chan struct{}
	finished chan struct{}
	logger   *slog.Logger
}

// NewDispatcher starts the fan-out goroutine and returns a handle. Call
// Close to stop it once the owning sample source is released.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		add:      make(chan ports.EventSink),
		remove:   make(chan ports.EventSink),
		events:   make(chan envelope, 256),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		logger:   logger,
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.finished)
	listeners := make(map[ports.EventSink]bool)
	for {
		select {
		case <-d.done:
			return
		case l := <-d.add:
			listeners[l] = true
			d.logger.Debug("event listener registered", slog.Int("total", len(listeners)))
		case l := <-d.remove:
			delete(listeners, l)
			d.logger.Debug("event listener unregistered", slog.Int("total", len(listeners)))
		case e := <-d.events:
			for l := range listeners {
				dispatchOne(l, e)
			}
		}
	}
}

func dispatchOne(l ports.EventSink, e envelope) {
	switch e.kind {
	case kindLoadStarted:
		l.OnLoadStarted(e.v.(ports.LoadStartedEvent))
	case kindLoadCompleted:
		l.OnLoadCompleted(e.v.(ports.LoadCompletedEvent))
	case kindLoadCanceled:
		l.OnLoadCanceled(e.v.(ports.LoadCanceledEvent))
	case kindLoadError:
		l.OnLoadError(e.v.(ports.LoadErrorEvent))
	case kindFormatChanged:
		l.OnDownstreamFormatChanged(e.v.(ports.DownstreamFormatChangedEvent))
	}
}

// Add registers a listener. Safe to call concurrently with dispatch.
func (d *Dispatcher) Add(l ports.EventSink) {
	select {
	case d.add <- l:
	case <-d.done:
	}
}

// Remove unregisters a previously added listener.
func (d *Dispatcher) Remove(l ports.EventSink) {
	select {
	case d.remove <- l:
	case <-d.done:
	}
}

// Close stops the fan-out goroutine. Further Add/Remove/On* calls are
// silently dropped.
func (d *Dispatcher) Close() {
	select {
	case <-d.done:
		return
	default:
	}
	close(d.done)
	<-d.finished
}

func (d *Dispatcher) post(e envelope) {
	select {
	case d.events <- e:
	case <-d.done:
	default:
		d.logger.Warn("event channel full, dropping event", slog.Int("kind", e.kind))
	}
}

func (d *Dispatcher) OnLoadStarted(evt ports.LoadStartedEvent) { d.post(envelope{kindLoadStarted, evt}) }

func (d *Dispatcher) OnLoadCompleted(evt ports.LoadCompletedEvent) {
	d.post(envelope{kindLoadCompleted, evt})
}

func (d *Dispatcher) OnLoadCanceled(evt ports.LoadCanceledEvent) {
	d.post(envelope{kindLoadCanceled, evt})
}

func (d *Dispatcher) OnLoadError(evt ports.LoadErrorEvent) { d.post(envelope{kindLoadError, evt}) }

func (d *Dispatcher) OnDownstreamFormatChanged(evt ports.DownstreamFormatChangedEvent) {
	d.post(envelope{kindFormatChanged, evt})
}

var _ ports.EventSink = (*Dispatcher)(nil)
