package source

import (
	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
	"hlssource/internal/metrics"
	"hlssource/internal/tracks"
)

// Prepare polls the Chunk Source and, once at least one segment has
// been loaded far enough to produce a prepared Extractor, synthesizes
// the track groups from it. It is idempotent once preparation
// succeeds, and otherwise drives the loader forward on every call.
func (w *Wrapper) Prepare(positionUs domain.TimeUs) (domain.PrepareStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.prepared {
		return domain.Ready, nil
	}
	if w.released {
		return domain.NotReady, domain.ErrReleased
	}

	w.transitionToLocked(Preparing)

	ready, err := w.chunkSource.Prepare()
	if err != nil {
		return domain.NotReady, err
	}
	if !ready {
		return domain.NotReady, nil
	}

	if ext, ok := w.extractors.DiscardUntilFirstPrepared(); ok {
		w.buildTracksLocked(ext)
		w.prepared = true
		w.preparePositionUs = positionUs
		w.transitionToLocked(Ready)
		return domain.Ready, nil
	}

	// Not prepared yet: ensure the machinery exists to keep fetching
	// toward positionUs even though nothing is enabled yet.
	if !w.loadControlRegistered {
		w.loadControl.Register(w.sourceID, w.bufferSizeBytes)
		w.loadControlRegistered = true
	}
	if !w.loader.IsLoading() && !w.retryState.IsBackedOff() {
		w.pendingResetPositionUs = positionUs
		w.downstreamPositionUs = positionUs
	}
	w.maybeStartLoadingLocked()

	if err := w.maybeThrowErrorLocked(); err != nil {
		return domain.NotReady, err
	}
	return domain.NotReady, nil
}

func (w *Wrapper) buildTracksLocked(ext ports.Extractor) {
	n := w.chunkSource.TrackCount()
	variants := make([]domain.Variant, n)
	for i := 0; i < n; i++ {
		f := w.chunkSource.TrackFormat(i)
		variants[i] = domain.Variant{ID: f.ID, Bitrate: f.Bitrate, Width: f.Width, Height: f.Height, Language: f.Language}
	}

	result := tracks.Build(ext, variants)
	w.trackGroups = result.Groups
	w.primaryGroupIndex = result.PrimaryIndex
	w.groups = make([]groupState, len(result.Groups))
	if result.PrimaryIndex >= 0 && len(variants) > 0 {
		w.selectedVariantIndices = []int{0}
		w.chunkSource.SelectTracks(w.selectedVariantIndices)
	}
}

// Enable activates one track group for reading, returning the
// TrackStream the caller pulls samples from. groupIndex must not
// already be enabled.
func (w *Wrapper) Enable(groupIndex int, selectedVariantIndices []int, positionUs domain.TimeUs) (ports.TrackStream, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released {
		return nil, domain.ErrReleased
	}
	if !w.prepared {
		return nil, domain.ErrNotPrepared
	}
	g := &w.groups[groupIndex]
	if g.enabled {
		return nil, domain.ErrAlreadyEnabled
	}

	g.enabled = true
	g.pendingReset = false
	g.hasDownstreamFormat = false
	w.hasCoarseDownstreamFormat = false
	w.enabledTrackCount++
	metrics.TrackGroupsActive.Inc()

	if !w.loadControlRegistered {
		w.loadControl.Register(w.sourceID, w.bufferSizeBytes)
		w.loadControlRegistered = true
	}

	if w.chunkSource.IsLive() {
		positionUs = 0
	}

	switch {
	case groupIndex == w.primaryGroupIndex && !sameInts(selectedVariantIndices, w.selectedVariantIndices):
		w.selectedVariantIndices = append([]int(nil), selectedVariantIndices...)
		w.chunkSource.SelectTracks(w.selectedVariantIndices)
		w.seekInternalLocked(positionUs)
	case w.enabledTrackCount == 1 && positionUs == w.preparePositionUs:
		// Fast path: the first enabled group starts exactly where
		// Prepare left off, so no discontinuity needs to be signaled
		// and no loads need to be thrown away.
	default:
		w.lastSeekPositionUs = positionUs
		w.downstreamPositionUs = positionUs
		w.restartFromLocked(positionUs)
	}

	w.maybeStartLoadingLocked()
	return &trackStream{w: w, group: groupIndex}, nil
}

// disable deactivates an enabled group. Disabling a group that is not
// currently enabled is a programmer error and panics rather than
// silently no-opping.
func (w *Wrapper) disable(groupIndex int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	g := &w.groups[groupIndex]
	if !g.enabled {
		panic(domain.ErrNotEnabled)
	}
	g.enabled = false
	g.pendingReset = false
	w.enabledTrackCount--
	metrics.TrackGroupsActive.Dec()

	if w.enabledTrackCount > 0 {
		return
	}

	w.transitionToLocked(Draining)
	w.chunkSource.Reset()
	w.downstreamPositionUs = domain.TimeUnset
	if w.loadControlRegistered {
		w.loadControl.Unregister(w.sourceID)
		w.loadControlRegistered = false
	}
	if w.loader.IsLoading() {
		w.loader.CancelLoading()
	} else {
		w.retryState.Clear()
		w.clearLoadStateLocked()
		w.loadControl.TrimAllocator()
	}
}

// SeekToUs performs an externally requested seek: every enabled group
// sees a reset marker on its next read, and loading restarts from the
// new position.
func (w *Wrapper) SeekToUs(positionUs domain.TimeUs) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enabledTrackCount == 0 {
		return
	}
	w.transitionToLocked(Seeking)
	if w.chunkSource.IsLive() {
		positionUs = 0
	}
	for i := range w.groups {
		if w.groups[i].enabled {
			w.groups[i].pendingReset = true
		}
	}
	w.chunkSource.Seek()
	w.lastSeekPositionUs = positionUs
	w.downstreamPositionUs = positionUs
	w.restartFromLocked(positionUs)
}

// seekInternalLocked is the adaptive-switch counterpart to SeekToUs: it
// marks every enabled group for a reset and restarts loading, but
// without an explicit Chunk Source Seek() call, since the discontinuity
// comes from the new variant selection rather than a user seek.
func (w *Wrapper) seekInternalLocked(positionUs domain.TimeUs) {
	for i := range w.groups {
		if w.groups[i].enabled {
			w.groups[i].pendingReset = true
		}
	}
	w.lastSeekPositionUs = positionUs
	w.downstreamPositionUs = positionUs
	w.restartFromLocked(positionUs)
}

// restartFromLocked throws away in-flight loading state and begins
// fetching again from positionUs. If a load is currently in flight, it
// is canceled first and the actual teardown happens in OnLoadCanceled
// once the cancellation is observed; otherwise (including a backed-off
// load) the retry and load state are cleared here and loading restarts
// immediately.
func (w *Wrapper) restartFromLocked(positionUs domain.TimeUs) {
	w.pendingResetPositionUs = positionUs
	w.loadingFinished = false

	if w.loader.IsLoading() {
		w.loader.CancelLoading()
		return
	}
	w.retryState.Clear()
	w.clearLoadStateLocked()
	w.maybeStartLoadingLocked()
}

func (w *Wrapper) clearLoadStateLocked() {
	w.extractors.Clear()
	w.currentLoadable = nil
	w.currentSegmentLoadable = nil
	w.previousSegmentLoadable = nil
}

// ContinueBuffering advances the downstream playback position known to
// the driver and gives it a chance to start the next load.
func (w *Wrapper) ContinueBuffering(positionUs domain.TimeUs) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.downstreamPositionUs = positionUs
	w.maybeStartLoadingLocked()
}

// BufferedPositionUs reports how far media has been buffered, or
// EndOfSource once nothing more will arrive.
func (w *Wrapper) BufferedPositionUs() domain.TimeUs {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loadingFinished {
		return domain.EndOfSource
	}
	if w.pendingResetPositionUs != domain.TimeUnset {
		return w.pendingResetPositionUs
	}
	n := w.extractors.Len()
	if n == 0 {
		return w.lastSeekPositionUs
	}
	last, _ := w.extractors.At(n - 1)
	largest := last.LargestParsedTimestampUs()
	if n > 1 {
		// The most recently appended extractor may not have parsed
		// anything yet; fall back to the penultimate one so a brand
		// new splice target doesn't regress the buffered position.
		prev, _ := w.extractors.At(n - 2)
		if p := prev.LargestParsedTimestampUs(); p > largest {
			largest = p
		}
	}
	return largest
}
