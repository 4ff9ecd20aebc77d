// Package source implements the HLS sample source state machine: the
// pull-oriented component that owns one Chunk Source, drives an
// asynchronous Loader against it, demultiplexes loaded segments through
// an Extractor queue, and exposes the result to downstream consumers
// through a synchronous, per-track-group TrackStream.
//
// One mutex guards all of the Wrapper's state: the public API, the
// Loader's completion callbacks and the per-group readers all
// serialize on it, so no method ever observes a half-applied
// transition.
package source

import (
	"log/slog"
	"sync"
	"time"

	"hlssource/internal/chunk"
	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
	"hlssource/internal/extractorqueue"
	"hlssource/internal/metrics"
	"hlssource/internal/retry"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options configures a Wrapper at construction time. All fields are
// required collaborators except Logger and Events, which default to a
// package logger and a no-op sink.
type Options struct {
	SourceID        ports.SourceID
	ChunkSource     ports.ChunkSource
	Loader          ports.Loader
	LoadControl     ports.LoadControl
	BufferSizeBytes int64
	Events          ports.EventSink
	Logger          *slog.Logger
}

type groupState struct {
	enabled             bool
	pendingReset        bool
	hasDownstreamFormat bool
	downstreamFormat    domain.Format
}

// Wrapper is the sample source. All exported methods are safe for
// concurrent use; the zero value is not usable, construct with New.
type Wrapper struct {
	mu sync.Mutex

	sourceID        ports.SourceID
	chunkSource     ports.ChunkSource
	loader          ports.Loader
	loadControl     ports.LoadControl
	bufferSizeBytes int64
	events          ports.EventSink
	logger          *slog.Logger

	state State

	released              bool
	prepared              bool
	preparePositionUs     domain.TimeUs
	loadControlRegistered bool

	trackGroups            []domain.TrackGroup
	primaryGroupIndex      int
	groups                 []groupState
	selectedVariantIndices []int
	enabledTrackCount      int

	extractors extractorqueue.Queue

	downstreamPositionUs   domain.TimeUs
	lastSeekPositionUs     domain.TimeUs
	pendingResetPositionUs domain.TimeUs
	loadingFinished        bool

	currentLoadable         ports.Loadable
	currentSegmentLoadable  *chunk.SegmentChunk
	previousSegmentLoadable *chunk.SegmentChunk
	currentLoadStartTime    time.Time
	currentLoadSpan         trace.Span

	retryState retry.State

	hasCoarseDownstreamFormat bool
	coarseDownstreamFormat    domain.Format
}

// New constructs a Wrapper. The returned value has not yet called
// Prepare; no Loader activity happens until the caller does so.
func New(opts Options) *Wrapper {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	events := opts.Events
	if events == nil {
		events = ports.NopEventSink{}
	}
	return &Wrapper{
		sourceID:               opts.SourceID,
		chunkSource:            opts.ChunkSource,
		loader:                 opts.Loader,
		loadControl:            opts.LoadControl,
		bufferSizeBytes:        opts.BufferSizeBytes,
		events:                 events,
		logger:                 logger,
		state:                  Fresh,
		primaryGroupIndex:      -1,
		downstreamPositionUs:   domain.TimeUnset,
		pendingResetPositionUs: domain.TimeUnset,
	}
}

// IsPrepared reports whether track groups have been synthesized.
func (w *Wrapper) IsPrepared() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prepared
}

// DurationUs delegates to the Chunk Source; it has no opinion of its
// own about media duration.
func (w *Wrapper) DurationUs() domain.TimeUs {
	return w.chunkSource.DurationUs()
}

// TrackGroupCount returns the number of synthesized track groups. Valid
// only once IsPrepared is true.
func (w *Wrapper) TrackGroupCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.trackGroups)
}

// TrackGroup returns the i-th synthesized track group.
func (w *Wrapper) TrackGroup(i int) domain.TrackGroup {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.trackGroups[i]
}

// Release tears the source down: stops the Loader, releases every
// queued Extractor, and unregisters from the Load Control if still
// registered. Idempotent.
func (w *Wrapper) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return
	}
	w.released = true
	w.transitionToLocked(Released)
	w.endCurrentLoadSpanLocked(codes.Error, "released")
	w.loader.Release()
	w.extractors.Clear()
	if w.loadControlRegistered {
		w.loadControl.Unregister(w.sourceID)
		w.loadControlRegistered = false
	}
}

func (w *Wrapper) transitionToLocked(s State) {
	if w.state == s {
		return
	}
	w.logger.Debug("sample source state transition",
		slog.String("source", string(w.sourceID)),
		slog.String("from", w.state.String()),
		slog.String("to", s.String()),
	)
	w.state = s
	metrics.StateTransitionsTotal.WithLabelValues(s.String()).Inc()
}

var _ ports.SampleSource = (*Wrapper)(nil)

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
