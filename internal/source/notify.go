package source

import (
	"time"

	"hlssource/internal/chunk"
	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
)

func (w *Wrapper) notifyLoadStartedLocked(loadable ports.Loadable) {
	switch l := loadable.(type) {
	case *chunk.SegmentChunk:
		w.events.OnLoadStarted(ports.LoadStartedEvent{
			Source:       w.sourceID,
			ChunkType:    l.Type,
			Trigger:      l.Trigger,
			Format:       l.Format,
			StartTimeUs:  l.StartTimeUs,
			EndTimeUs:    l.EndTimeUs,
			HasTimeRange: true,
		})
	case *chunk.NonSegmentChunk:
		w.events.OnLoadStarted(ports.LoadStartedEvent{
			Source:       w.sourceID,
			ChunkType:    l.Type,
			Trigger:      l.Trigger,
			Format:       l.Format,
			StartTimeUs:  domain.TimeUnset,
			EndTimeUs:    domain.TimeUnset,
			HasTimeRange: false,
		})
	}
}

func (w *Wrapper) notifyLoadCompletedLocked(loadable ports.Loadable, elapsed time.Duration) {
	ct, _ := describeLoadable(loadable)
	w.events.OnLoadCompleted(ports.LoadCompletedEvent{
		Source:      w.sourceID,
		ChunkType:   ct,
		BytesLoaded: loadable.BytesLoaded(),
		DurationMs:  elapsed.Milliseconds(),
	})
}

func (w *Wrapper) notifyLoadCanceledLocked(loadable ports.Loadable) {
	ct, _ := describeLoadable(loadable)
	w.events.OnLoadCanceled(ports.LoadCanceledEvent{
		Source:      w.sourceID,
		ChunkType:   ct,
		BytesLoaded: loadable.BytesLoaded(),
	})
}

func (w *Wrapper) notifyLoadErrorLocked(loadable ports.Loadable, err error, handled bool) {
	ct, _ := describeLoadable(loadable)
	w.events.OnLoadError(ports.LoadErrorEvent{
		Source:      w.sourceID,
		ChunkType:   ct,
		Error:      err,
		RetryCount: w.retryState.Count(),
		Handled:    handled,
	})
}

func describeLoadable(loadable ports.Loadable) (domain.ChunkType, bool) {
	switch l := loadable.(type) {
	case *chunk.SegmentChunk:
		return l.Type, true
	case *chunk.NonSegmentChunk:
		return l.Type, true
	default:
		return domain.ChunkNonSegment, false
	}
}
