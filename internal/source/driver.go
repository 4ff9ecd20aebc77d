package source

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"hlssource/internal/chunk"
	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
	"hlssource/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer puts one span around each chunk load, from the moment
// maybeStartLoadingLocked dispatches it to the Loader through whichever
// of the three OnLoad* callbacks eventually closes it out.
var tracer = otel.Tracer("hlssource/internal/source")

// maybeStartLoadingLocked is the loader driver: it decides
// whether a new load can start, consults the Load Control for
// backpressure, resumes a backed-off load once its delay elapses, and
// otherwise asks the Chunk Source what to fetch next.
func (w *Wrapper) maybeStartLoadingLocked() {
	if w.released {
		return
	}

	now := time.Now()
	nextLoadPositionUs := w.nextLoadPositionUsLocked()
	isBackedOff := w.retryState.IsBackedOff()
	loadingOrBackedOff := w.loader.IsLoading() || isBackedOff

	mayStartNext := w.loadControl.Update(w.sourceID, w.downstreamPositionUs, nextLoadPositionUs, loadingOrBackedOff)

	if isBackedOff {
		if !w.retryState.ShouldResume(now) {
			w.transitionToLocked(BackedOff)
			return
		}
		// Keep the consecutive-failure count across the resume so a
		// loadable that keeps failing still crosses the fatal
		// threshold.
		w.retryState.ClearError()
		if w.currentLoadable != nil {
			w.transitionToLocked(Loading)
			w.startLoadSpanLocked(w.currentLoadable)
			w.loader.StartLoading(w.currentLoadable, w)
			return
		}
		// The failure happened before anything was dispatched (e.g. the
		// extractor could not be initialized); fall through and request
		// a fresh chunk operation.
	}

	if w.loader.IsLoading() || !mayStartNext {
		return
	}
	if w.prepared && w.enabledTrackCount == 0 {
		return
	}
	if w.loadingFinished {
		return
	}

	var holder ports.ChunkOperationHolder
	holder.Clear()
	w.chunkSource.GetChunkOperation(w.previousSegmentAsLoadableLocked(), w.loadPositionUsLocked(), &holder)

	switch {
	case holder.EndOfStream:
		w.loadingFinished = true
		w.loadControl.Update(w.sourceID, w.downstreamPositionUs, domain.TimeUnset, false)
		return
	case holder.Chunk == nil:
		return
	}

	loadable := holder.Chunk
	if segment, ok := loadable.(*chunk.SegmentChunk); ok {
		ext := segment.Extractor()
		if !w.extractors.IsLast(ext) {
			if err := ext.Init(w.loadControl.Allocator()); err != nil {
				// Same backoff discipline as a failed download: record
				// the failure and let the next tick retry, so a
				// persistently failing allocator surfaces through
				// maybeThrowError instead of spinning silently.
				w.logger.Error("extractor init failed", slog.String("error", err.Error()))
				metrics.LoadRetriesTotal.Inc()
				w.retryState.RecordFailure(err, now)
				if w.retryState.MaybeThrow() != nil {
					metrics.LoadFatalErrorsTotal.Inc()
				}
				w.notifyLoadErrorLocked(loadable, err, false)
				return
			}
			w.extractors.Append(ext)
		}
		w.pendingResetPositionUs = domain.TimeUnset
		w.currentSegmentLoadable = segment
	}

	w.startLoadSpanLocked(loadable)

	w.currentLoadable = loadable
	w.currentLoadStartTime = now
	w.transitionToLocked(Loading)
	w.notifyLoadStartedLocked(loadable)
	metrics.LoadStartsTotal.WithLabelValues(chunkTypeLabel(loadable)).Inc()
	w.loader.StartLoading(loadable, w)
}

// startLoadSpanLocked opens the span for one dispatch to the Loader,
// whether it's a fresh chunk or a retry of the same loadable resumed
// after backoff. Paired with endCurrentLoadSpanLocked.
func (w *Wrapper) startLoadSpanLocked(loadable ports.Loadable) {
	_, span := tracer.Start(context.Background(), "chunk_load",
		trace.WithAttributes(
			attribute.String("chunk.type", chunkTypeLabel(loadable)),
			attribute.String("source.id", string(w.sourceID)),
		),
	)
	w.currentLoadSpan = span
}

// endCurrentLoadSpanLocked closes out the span opened for the in-flight
// load, if any. Every path that clears w.currentLoadable (completed,
// canceled, error) must call this so a load's span never outlives it.
func (w *Wrapper) endCurrentLoadSpanLocked(code codes.Code, description string) {
	if w.currentLoadSpan == nil {
		return
	}
	w.currentLoadSpan.SetStatus(code, description)
	w.currentLoadSpan.End()
	w.currentLoadSpan = nil
}

// nextLoadPositionUsLocked returns where the driver would need to load
// next if it could, or domain.TimeUnset if there's nothing left to
// load for now. This feeds the Load Control's buffer-budget decision.
func (w *Wrapper) nextLoadPositionUsLocked() domain.TimeUs {
	if w.pendingResetPositionUs != domain.TimeUnset {
		return w.pendingResetPositionUs
	}
	if w.loadingFinished || (w.prepared && w.enabledTrackCount == 0) {
		return domain.TimeUnset
	}
	if w.currentSegmentLoadable != nil {
		return w.currentSegmentLoadable.EndTimeUs
	}
	if w.previousSegmentLoadable != nil {
		return w.previousSegmentLoadable.EndTimeUs
	}
	return domain.TimeUnset
}

// previousSegmentAsLoadableLocked avoids the classic nil-pointer-in-a-
// non-nil-interface trap: handing a (*chunk.SegmentChunk)(nil) straight
// to a ports.Loadable parameter would make the Chunk Source's own
// "previous == nil" checks see a non-nil interface.
func (w *Wrapper) previousSegmentAsLoadableLocked() ports.Loadable {
	if w.previousSegmentLoadable == nil {
		return nil
	}
	return w.previousSegmentLoadable
}

func (w *Wrapper) loadPositionUsLocked() domain.TimeUs {
	if w.pendingResetPositionUs != domain.TimeUnset {
		return w.pendingResetPositionUs
	}
	return w.downstreamPositionUs
}

// OnLoadCompleted implements ports.LoadCallback.
func (w *Wrapper) OnLoadCompleted(loadable ports.Loadable) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if loadable != w.currentLoadable {
		return
	}

	w.chunkSource.OnChunkLoadCompleted(loadable)
	if w.currentSegmentLoadable != nil {
		w.previousSegmentLoadable = w.currentSegmentLoadable
	}

	elapsed := time.Since(w.currentLoadStartTime)
	metrics.LoadCompletionsTotal.WithLabelValues(chunkTypeLabel(loadable)).Inc()
	metrics.BytesLoadedTotal.Add(float64(loadable.BytesLoaded()))
	metrics.LoadDuration.Observe(elapsed.Seconds())
	w.notifyLoadCompletedLocked(loadable, elapsed)
	w.endCurrentLoadSpanLocked(codes.Ok, "")

	w.currentLoadable = nil
	w.currentSegmentLoadable = nil
	w.retryState.Clear()
	w.maybeStartLoadingLocked()
}

// OnLoadCanceled implements ports.LoadCallback.
func (w *Wrapper) OnLoadCanceled(loadable ports.Loadable) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if loadable != w.currentLoadable {
		return
	}

	w.notifyLoadCanceledLocked(loadable)
	w.endCurrentLoadSpanLocked(codes.Error, "canceled")
	w.clearLoadStateLocked()
	w.retryState.Clear()

	if w.enabledTrackCount > 0 {
		w.maybeStartLoadingLocked()
		return
	}
	w.loadControl.TrimAllocator()
}

// OnLoadError implements ports.LoadCallback.
func (w *Wrapper) OnLoadError(loadable ports.Loadable, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if loadable != w.currentLoadable {
		return
	}

	handled := w.chunkSource.OnChunkLoadError(loadable, err)
	metrics.LoadErrorsTotal.WithLabelValues(chunkTypeLabel(loadable), strconv.FormatBool(handled)).Inc()
	if w.currentLoadSpan != nil {
		w.currentLoadSpan.RecordError(err)
	}
	w.endCurrentLoadSpanLocked(codes.Error, err.Error())

	if handled {
		if w.previousSegmentLoadable == nil && w.pendingResetPositionUs == domain.TimeUnset {
			w.pendingResetPositionUs = w.lastSeekPositionUs
		}
		w.currentLoadable = nil
		w.currentSegmentLoadable = nil
		w.retryState.Clear()
	} else {
		metrics.LoadRetriesTotal.Inc()
		w.retryState.RecordFailure(err, time.Now())
		if fatal := w.retryState.MaybeThrow(); fatal != nil {
			metrics.LoadFatalErrorsTotal.Inc()
		}
	}

	w.notifyLoadErrorLocked(loadable, err, handled)
	w.maybeStartLoadingLocked()
}

// maybeThrowErrorLocked surfaces a fatal load error to the polling
// caller. With no loadable in flight it also forwards to the Chunk
// Source, which may have a playlist-level error of its own to report.
func (w *Wrapper) maybeThrowErrorLocked() error {
	if err := w.retryState.MaybeThrow(); err != nil {
		return err
	}
	if w.currentLoadable == nil {
		return w.chunkSource.MaybeThrowError()
	}
	return nil
}

func chunkTypeLabel(loadable ports.Loadable) string {
	switch loadable.(type) {
	case *chunk.SegmentChunk:
		return "segment"
	default:
		return "non_segment"
	}
}

var _ ports.LoadCallback = (*Wrapper)(nil)
