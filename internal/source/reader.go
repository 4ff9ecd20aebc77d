package source

import (
	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
)

// trackStream is the per-group reader handle returned by Enable. All of
// its methods acquire the owning Wrapper's mutex; the reading caller and
// the Loader's callback goroutine never touch Wrapper state without it.
type trackStream struct {
	w     *Wrapper
	group int
}

func (t *trackStream) IsReady() bool {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	return t.w.isReadyLocked(t.group)
}

func (t *trackStream) MaybeThrowError() error {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	return t.w.maybeThrowErrorLocked()
}

func (t *trackStream) ReadReset() domain.TimeUs {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	g := &t.w.groups[t.group]
	if !g.pendingReset {
		return domain.NoReset
	}
	g.pendingReset = false
	return t.w.lastSeekPositionUs
}

func (t *trackStream) ReadData(outFormat *domain.Format, outSample *domain.Sample) (domain.ReadResult, error) {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	return t.w.readDataLocked(t.group, outFormat, outSample)
}

func (t *trackStream) Disable() {
	t.w.disable(t.group)
}

var _ ports.TrackStream = (*trackStream)(nil)

func (w *Wrapper) isReadyLocked(group int) bool {
	if w.loadingFinished {
		return true
	}
	if w.groups[group].pendingReset || w.pendingResetPositionUs != domain.TimeUnset {
		return false
	}
	n := w.extractors.Len()
	for i := 0; i < n; i++ {
		e, _ := w.extractors.At(i)
		if e.IsPrepared() && e.HasSamples(group) {
			return true
		}
	}
	return false
}

func (w *Wrapper) hasSamplesAnyEnabledGroupLocked(e ports.Extractor) bool {
	for g := range w.groups {
		if w.groups[g].enabled && e.HasSamples(g) {
			return true
		}
	}
	return false
}

// readDataLocked implements the reader's pull API: one call hands back
// at most one of a format change, a sample, or an end-of-stream mark.
func (w *Wrapper) readDataLocked(group int, outFormat *domain.Format, outSample *domain.Sample) (domain.ReadResult, error) {
	g := &w.groups[group]
	if g.pendingReset || w.pendingResetPositionUs != domain.TimeUnset {
		return domain.NothingRead, nil
	}

	w.extractors.DiscardExhaustedFront(func(e ports.Extractor) bool {
		return w.hasSamplesAnyEnabledGroupLocked(e)
	})

	front, ok := w.extractors.Front()
	if !ok {
		if w.loadingFinished {
			return domain.EndOfStream, nil
		}
		return domain.NothingRead, nil
	}
	if !front.IsPrepared() {
		return domain.NothingRead, nil
	}

	if w.coarseFormatChangedLocked(front.Format()) {
		w.events.OnDownstreamFormatChanged(ports.DownstreamFormatChangedEvent{
			Source: w.sourceID,
			Format: front.Format(),
		})
	}

	if w.extractors.Len() > 1 {
		w.extractors.ConfigureSpliceFront()
	}

	selected, found := w.findSelectedExtractorLocked(group)
	if !found {
		// Blocked behind an extractor that has not yet been prepared.
		return domain.NothingRead, nil
	}
	if selected == nil {
		if w.loadingFinished {
			return domain.EndOfStream, nil
		}
		return domain.NothingRead, nil
	}

	if !g.hasDownstreamFormat || selected.TrackFormat(group) != g.downstreamFormat {
		g.downstreamFormat = selected.TrackFormat(group)
		g.hasDownstreamFormat = true
		*outFormat = g.downstreamFormat
		return domain.FormatRead, nil
	}

	sample, ok := selected.GetSample(group)
	if !ok {
		if w.loadingFinished {
			return domain.EndOfStream, nil
		}
		return domain.NothingRead, nil
	}
	sample.DecodeOnly = sample.TimeUs < w.lastSeekPositionUs
	*outSample = sample
	return domain.SampleRead, nil
}

// findSelectedExtractorLocked walks forward from the queue's front
// looking for the first extractor with a pending sample on group. It
// returns (nil, true) if the search reaches the end of the queue
// without finding one (nothing to read yet, but no extractor is
// unprepared either) and (nil, false) if it's blocked behind an
// unprepared extractor.
func (w *Wrapper) findSelectedExtractorLocked(group int) (ports.Extractor, bool) {
	idx := 0
	cur, ok := w.extractors.At(idx)
	if !ok {
		return nil, true
	}
	for !cur.HasSamples(group) {
		idx++
		next, ok := w.extractors.At(idx)
		if !ok {
			return nil, true
		}
		if !next.IsPrepared() {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// coarseFormatChangedLocked records f as the variant-level format last
// seen downstream and reports whether it differs from the previous one.
// Tracked purely for the source-wide DownstreamFormatChanged event;
// per-group format changes are handled separately in readDataLocked via
// groupState.downstreamFormat.
func (w *Wrapper) coarseFormatChangedLocked(f domain.Format) bool {
	if !w.hasCoarseDownstreamFormat || w.coarseDownstreamFormat != f {
		w.hasCoarseDownstreamFormat = true
		w.coarseDownstreamFormat = f
		return true
	}
	return false
}
