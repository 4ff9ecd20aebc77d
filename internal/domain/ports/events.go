package ports

import "hlssource/internal/domain"

// LoadStartedEvent, LoadCompletedEvent, LoadCanceledEvent and
// LoadErrorEvent are value types: fields are copied in, never shared
// references into sample-source state, so they are safe to hand to a
// listener running on another goroutine.
type LoadStartedEvent struct {
	Source       SourceID
	ChunkType    domain.ChunkType
	Trigger      domain.ChunkTrigger
	Format       domain.Format
	StartTimeUs  domain.TimeUs
	EndTimeUs    domain.TimeUs // domain.TimeUnset for non-segment chunks
	HasTimeRange bool
}

type LoadCompletedEvent struct {
	Source      SourceID
	ChunkType   domain.ChunkType
	BytesLoaded int64
	DurationMs  int64
}

type LoadCanceledEvent struct {
	Source      SourceID
	ChunkType   domain.ChunkType
	BytesLoaded int64
}

type LoadErrorEvent struct {
	Source     SourceID
	ChunkType  domain.ChunkType
	Error      error
	RetryCount int
	// Handled is true when the Chunk Source absorbed the error itself,
	// e.g. by blacklisting the failing variant.
	Handled bool
}

type DownstreamFormatChangedEvent struct {
	Source SourceID
	Format domain.Format
}

// EventSink is the fire-and-forget progress listener. Implementations
// must not block the caller for long and must not be handed mutable
// references to sample-source internals, only the value types above.
type EventSink interface {
	OnLoadStarted(evt LoadStartedEvent)
	OnLoadCompleted(evt LoadCompletedEvent)
	OnLoadCanceled(evt LoadCanceledEvent)
	OnLoadError(evt LoadErrorEvent)
	OnDownstreamFormatChanged(evt DownstreamFormatChangedEvent)
}

// NopEventSink discards every event; useful as a default listener.
type NopEventSink struct{}

func (NopEventSink) OnLoadStarted(LoadStartedEvent) {}
func (NopEventSink) OnLoadCompleted(LoadCompletedEvent) {}
func (NopEventSink) OnLoadCanceled(LoadCanceledEvent) {}
func (NopEventSink) OnLoadError(LoadErrorEvent) {}
func (NopEventSink) OnDownstreamFormatChanged(DownstreamFormatChangedEvent) {}

var _ EventSink = NopEventSink{}
