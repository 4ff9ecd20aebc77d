package source

import (
	"context"
	"errors"
	"testing"

	"hlssource/internal/chunk"
	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
)

// --- fakes -----------------------------------------------------------

type fakeAllocator struct{}

func (fakeAllocator) Allocate() []byte { return make([]byte, 4096) }
func (fakeAllocator) Release([]byte) {}
func (fakeAllocator) IndividualAllocationSize() int { return 4096 }

type fakeLoadControl struct {
	allocator ports.Allocator
	trimmed   int
}

func (c *fakeLoadControl) Register(ports.SourceID, int64) {}
func (c *fakeLoadControl) Unregister(ports.SourceID) {}
func (c *fakeLoadControl) Update(ports.SourceID, domain.TimeUs, domain.TimeUs, bool) bool {
	return true
}
func (c *fakeLoadControl) Allocator() ports.Allocator { return c.allocator }
func (c *fakeLoadControl) TrimAllocator() { c.trimmed++ }

// fakeLoader is a controllable, synchronous-dispatch stand-in: the test
// decides exactly when the pending load completes, is canceled, or
// fails, by calling complete/cancel/fail itself.
type fakeLoader struct {
	loading         bool
	cancelRequested bool
	loadable        ports.Loadable
	callback        ports.LoadCallback
	released        bool
}

func (l *fakeLoader) StartLoading(loadable ports.Loadable, cb ports.LoadCallback) {
	l.loading = true
	l.loadable = loadable
	l.callback = cb
}
func (l *fakeLoader) IsLoading() bool { return l.loading }

// CancelLoading only records the request; the callback is delivered by
// finishCancel, mirroring a real loader's asynchronous delivery. An
// inline OnLoadCanceled here would deadlock: the wrapper holds its own
// mutex while calling CancelLoading.
func (l *fakeLoader) CancelLoading() {
	if l.loading {
		l.cancelRequested = true
	}
}
func (l *fakeLoader) Release() { l.released = true }

func (l *fakeLoader) finishCancel() {
	loadable, cb := l.loadable, l.callback
	l.loading, l.cancelRequested = false, false
	l.loadable, l.callback = nil, nil
	cb.OnLoadCanceled(loadable)
}

func (l *fakeLoader) complete() {
	loadable, cb := l.loadable, l.callback
	l.loading = false
	l.loadable, l.callback = nil, nil
	cb.OnLoadCompleted(loadable)
}

func (l *fakeLoader) fail(err error) {
	loadable, cb := l.loadable, l.callback
	l.loading = false
	l.loadable, l.callback = nil, nil
	cb.OnLoadError(loadable, err)
}

// fakeExtractor is a minimal, two-track (video+audio) Extractor with a
// preloaded queue of samples per track, simulating one segment already
// demuxed in memory.
type fakeExtractor struct {
	prepared  bool
	cleared   bool
	formats   []domain.Format
	samples   [][]domain.Sample
	spliceTo  ports.Extractor
	largest   domain.TimeUs
	startTime domain.TimeUs
	format    domain.Format
	trigger   domain.ChunkTrigger
}

func newFakeExtractor(formats []domain.Format) *fakeExtractor {
	return &fakeExtractor{prepared: true, formats: formats, samples: make([][]domain.Sample, len(formats))}
}

func (e *fakeExtractor) Init(ports.Allocator) error { return nil }
func (e *fakeExtractor) IsPrepared() bool { return e.prepared }
func (e *fakeExtractor) TrackCount() int { return len(e.formats) }
func (e *fakeExtractor) TrackFormat(i int) domain.Format { return e.formats[i] }
func (e *fakeExtractor) HasSamples(i int) bool { return len(e.samples[i]) > 0 }
func (e *fakeExtractor) GetSample(i int) (domain.Sample, bool) {
	if len(e.samples[i]) == 0 {
		return domain.Sample{}, false
	}
	s := e.samples[i][0]
	e.samples[i] = e.samples[i][1:]
	return s, true
}
func (e *fakeExtractor) DiscardUntil(int, domain.TimeUs) {}
func (e *fakeExtractor) LargestParsedTimestampUs() domain.TimeUs { return e.largest }
func (e *fakeExtractor) ConfigureSpliceTo(next ports.Extractor) { e.spliceTo = next }
func (e *fakeExtractor) Clear() { e.cleared = true }
func (e *fakeExtractor) Format() domain.Format { return e.format }
func (e *fakeExtractor) Trigger() domain.ChunkTrigger { return e.trigger }
func (e *fakeExtractor) StartTimeUs() domain.TimeUs { return e.startTime }

// fakeChunkSource serves a scripted sequence of segment chunks, one per
// GetChunkOperation call, then reports end of stream.
type fakeChunkSource struct {
	variants      []domain.Format
	segments      []*chunk.SegmentChunk
	next          int
	live          bool
	errHandled    bool
	completedLogs []ports.Loadable
	erroredLogs   []ports.Loadable
}

func (c *fakeChunkSource) Prepare() (bool, error) { return true, nil }
func (c *fakeChunkSource) TrackCount() int { return len(c.variants) }
func (c *fakeChunkSource) TrackFormat(i int) domain.Format { return c.variants[i] }
func (c *fakeChunkSource) SelectTracks([]int) {}
func (c *fakeChunkSource) IsLive() bool { return c.live }
func (c *fakeChunkSource) Seek() {}
func (c *fakeChunkSource) Reset() { c.next = 0 }
func (c *fakeChunkSource) DurationUs() domain.TimeUs { return domain.TimeUs(10_000_000) }
func (c *fakeChunkSource) MaybeThrowError() error { return nil }
func (c *fakeChunkSource) GetChunkOperation(previous ports.Loadable, targetTimeUs domain.TimeUs, out *ports.ChunkOperationHolder) {
	if c.next >= len(c.segments) {
		out.EndOfStream = true
		return
	}
	out.Chunk = c.segments[c.next]
	c.next++
}
func (c *fakeChunkSource) OnChunkLoadCompleted(ch ports.Loadable) { c.completedLogs = append(c.completedLogs, ch) }
func (c *fakeChunkSource) OnChunkLoadError(ch ports.Loadable, err error) bool {
	c.erroredLogs = append(c.erroredLogs, ch)
	return c.errHandled
}

func noopFetch(context.Context, domain.DataSpec, func(int64)) error { return nil }

func newTestSegment(ext *fakeExtractor, start, end domain.TimeUs) *chunk.SegmentChunk {
	return chunk.NewSegmentChunk(domain.Format{MimeType: "video/avc"}, domain.TriggerInitial, domain.DataSpec{URI: "seg"}, start, end, ext, noopFetch)
}

// --- tests -------------------------------------------------------------

func newTestWrapper(t *testing.T, cs *fakeChunkSource, loader *fakeLoader) *Wrapper {
	t.Helper()
	return New(Options{
		SourceID:        "test",
		ChunkSource:     cs,
		Loader:          loader,
		LoadControl:     &fakeLoadControl{allocator: fakeAllocator{}},
		BufferSizeBytes: 1 << 20,
	})
}

func TestPrepareThenEnableNoRestart(t *testing.T) {
	ext := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}, {MimeType: "audio/mp4a-latm"}})
	ext.samples[0] = []domain.Sample{{TimeUs: 0}}
	seg := newTestSegment(ext, 0, 4_000_000)

	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0", Bitrate: 800000}}, segments: []*chunk.SegmentChunk{seg}}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)

	status, err := w.Prepare(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != domain.NotReady {
		t.Fatalf("expected NotReady before any chunk has loaded")
	}
	if !loader.IsLoading() {
		t.Fatalf("expected prepare to have kicked off a load")
	}
	loader.complete()

	status, err = w.Prepare(0)
	if err != nil || status != domain.Ready {
		t.Fatalf("expected Ready after the first segment completed, got %v, %v", status, err)
	}
	if w.TrackGroupCount() != 2 {
		t.Fatalf("expected 2 track groups, got %d", w.TrackGroupCount())
	}

	stream, err := w.Enable(0, []int{0}, 0)
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if ext.cleared {
		t.Fatalf("fast-path enable must not discard the already-prepared extractor")
	}

	var f domain.Format
	var s domain.Sample
	res, err := stream.ReadData(&f, &s)
	if err != nil {
		t.Fatalf("readdata error: %v", err)
	}
	if res != domain.FormatRead {
		t.Fatalf("expected FormatRead first, got %v", res)
	}
	res, err = stream.ReadData(&f, &s)
	if err != nil || res != domain.SampleRead {
		t.Fatalf("expected SampleRead, got %v, %v", res, err)
	}
}

func TestRetryThenFail(t *testing.T) {
	ext := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}})
	ext.prepared = false // not yet parsed: Prepare must keep polling, not shortcut to Ready
	seg := newTestSegment(ext, 0, 4_000_000)
	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0"}}, segments: []*chunk.SegmentChunk{seg}, errHandled: false}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)

	w.Prepare(0)
	if !loader.IsLoading() {
		t.Fatalf("expected a load in flight")
	}

	testErr := errors.New("boom")
	loadable := loader.loadable
	loader.loading, loader.loadable, loader.callback = false, nil, nil
	w.OnLoadError(loadable, testErr)

	// A single failure has a zero retry delay (retry.Delay(1) == 0), so
	// the driver resumes the same loadable immediately rather than
	// sitting visibly backed off.
	if !loader.IsLoading() {
		t.Fatalf("expected the loader to resume the same loadable after one failure")
	}
	if loader.loadable != loadable {
		t.Fatalf("expected the retry to resume the same loadable, not a new one")
	}
	w.mu.Lock()
	fatal := w.retryState.MaybeThrow()
	w.mu.Unlock()
	if fatal != nil {
		t.Fatalf("did not expect a fatal error after a single failure: %v", fatal)
	}
}

func TestRetryExhaustionBecomesFatal(t *testing.T) {
	ext := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}})
	ext.prepared = false
	seg := newTestSegment(ext, 0, 4_000_000)
	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0"}}, segments: []*chunk.SegmentChunk{seg}, errHandled: false}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)

	w.Prepare(0)
	testErr := errors.New("segment fetch failed")

	// The first failure resumes immediately (zero delay); the later ones
	// enter a visible backoff, which the test skips past by resuming the
	// loadable by hand before failing it again. The consecutive-failure
	// count must survive every resume.
	for i := 1; i <= 4; i++ {
		if !loader.IsLoading() {
			w.mu.Lock()
			w.retryState.ClearError()
			loadable := w.currentLoadable
			w.mu.Unlock()
			loader.StartLoading(loadable, w)
		}
		loader.fail(testErr)
	}

	w.mu.Lock()
	fatal := w.retryState.MaybeThrow()
	w.mu.Unlock()
	if !errors.Is(fatal, testErr) {
		t.Fatalf("expected the 4th consecutive failure to become fatal, got %v", fatal)
	}
}

func TestLoadErrorHandledByChunkSourceResetsPosition(t *testing.T) {
	ext := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}})
	ext.prepared = false
	seg := newTestSegment(ext, 0, 4_000_000)
	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0"}}, segments: []*chunk.SegmentChunk{seg}, errHandled: true}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)

	w.Prepare(0)
	loadable := loader.loadable
	loader.loading, loader.loadable, loader.callback = false, nil, nil
	w.OnLoadError(loadable, errors.New("key rotated"))

	w.mu.Lock()
	pending := w.pendingResetPositionUs
	backedOff := w.retryState.IsBackedOff()
	w.mu.Unlock()
	if pending == domain.TimeUnset {
		t.Fatalf("expected a pending reset position once the chunk source handled the error")
	}
	if backedOff {
		t.Fatalf("a handled error must not count toward the retry backoff")
	}
}

func TestSeekAcrossSegmentBoundary(t *testing.T) {
	extA := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}})
	extA.samples[0] = []domain.Sample{{TimeUs: 0}}
	segA := newTestSegment(extA, 0, 4_000_000)

	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0"}}, segments: []*chunk.SegmentChunk{segA}}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)

	w.Prepare(0)
	loader.complete()
	w.Prepare(0)

	stream, err := w.Enable(0, []int{0}, 0)
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}

	w.SeekToUs(2_000_000)
	if got := stream.ReadReset(); got != 2_000_000 {
		t.Fatalf("expected a reset marker at the new seek position, got %v", got)
	}
	if got := stream.ReadReset(); got != domain.NoReset {
		t.Fatalf("expected NoReset on the second call (once-per-seek), got %v", got)
	}
}

func TestSeekCancelsInFlightLoad(t *testing.T) {
	extA := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}})
	extA.samples[0] = []domain.Sample{{TimeUs: 0}}
	extB := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}})
	extC := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}})
	cs := &fakeChunkSource{
		variants: []domain.Format{{ID: "v0"}},
		segments: []*chunk.SegmentChunk{
			newTestSegment(extA, 0, 4_000_000),
			newTestSegment(extB, 4_000_000, 8_000_000),
			newTestSegment(extC, 0, 4_000_000),
		},
	}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)

	w.Prepare(0)
	loader.complete()
	// Completing the first segment chains straight into loading the next.
	if !loader.IsLoading() {
		t.Fatalf("expected the second segment load to start after the first completed")
	}
	w.Prepare(0)

	stream, err := w.Enable(0, []int{0}, 0)
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}

	w.SeekToUs(2_000_000)
	if !loader.cancelRequested {
		t.Fatalf("expected the seek to cancel the in-flight load")
	}
	loader.finishCancel()

	if !loader.IsLoading() {
		t.Fatalf("expected loading to restart after the cancel was observed")
	}
	if got := stream.ReadReset(); got != 2_000_000 {
		t.Fatalf("expected a reset marker at the seek position, got %v", got)
	}

	// The restarted segment carries a sample from before the seek target:
	// it must come back flagged decode-only.
	extC.prepared = true
	extC.samples[0] = []domain.Sample{{TimeUs: 1_000_000}}
	loader.complete()

	var f domain.Format
	var s domain.Sample
	if res, _ := stream.ReadData(&f, &s); res != domain.FormatRead {
		t.Fatalf("expected FormatRead after the restart, got %v", res)
	}
	res, err := stream.ReadData(&f, &s)
	if err != nil || res != domain.SampleRead {
		t.Fatalf("expected SampleRead, got %v, %v", res, err)
	}
	if !s.DecodeOnly {
		t.Fatalf("expected a pre-seek-target sample to be flagged decode-only")
	}
}

// recordingEvents counts the notifications the wrapper fans out,
// delivered inline for determinism.
type recordingEvents struct {
	ports.NopEventSink
	formatChanges []domain.Format
}

func (r *recordingEvents) OnDownstreamFormatChanged(evt ports.DownstreamFormatChangedEvent) {
	r.formatChanges = append(r.formatChanges, evt.Format)
}

func TestSpliceAcrossFormatChange(t *testing.T) {
	extA := newFakeExtractor([]domain.Format{{MimeType: "video/avc", Width: 640}})
	extA.format = domain.Format{ID: "v0"}
	extA.samples[0] = []domain.Sample{{TimeUs: 0}, {TimeUs: 1_000_000}}
	extB := newFakeExtractor([]domain.Format{{MimeType: "video/avc", Width: 1280}})
	extB.format = domain.Format{ID: "v1"}
	extB.samples[0] = []domain.Sample{{TimeUs: 4_000_000}}

	cs := &fakeChunkSource{
		variants: []domain.Format{{ID: "v0"}},
		segments: []*chunk.SegmentChunk{
			newTestSegment(extA, 0, 4_000_000),
			newTestSegment(extB, 4_000_000, 8_000_000),
		},
	}
	loader := &fakeLoader{}
	sink := &recordingEvents{}
	w := New(Options{
		SourceID:        "test",
		ChunkSource:     cs,
		Loader:          loader,
		LoadControl:     &fakeLoadControl{allocator: fakeAllocator{}},
		BufferSizeBytes: 1 << 20,
		Events:          sink,
	})

	w.Prepare(0)
	loader.complete() // segment A done, chains into loading segment B
	loader.complete() // segment B done, chains into end of stream
	w.Prepare(0)

	stream, err := w.Enable(0, []int{0}, 0)
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}

	var f domain.Format
	var s domain.Sample
	readUntil := func(want domain.ReadResult) {
		t.Helper()
		res, err := stream.ReadData(&f, &s)
		if err != nil || res != want {
			t.Fatalf("expected %v, got %v, %v", want, res, err)
		}
	}

	readUntil(domain.FormatRead)
	readUntil(domain.SampleRead)
	if extA.spliceTo != extB {
		t.Fatalf("expected reading with two queued extractors to splice A onto B")
	}
	readUntil(domain.SampleRead) // exhausts A

	// A is spent: the next read discards it, announces B's formats, and
	// keeps delivering samples without losing any.
	readUntil(domain.FormatRead)
	if f.Width != 1280 {
		t.Fatalf("expected B's track format to be announced, got %+v", f)
	}
	readUntil(domain.SampleRead)
	if s.TimeUs != 4_000_000 {
		t.Fatalf("expected B's sample, got %+v", s)
	}
	readUntil(domain.EndOfStream)

	if len(sink.formatChanges) != 2 {
		t.Fatalf("expected exactly one coarse format notification per variant change, got %d", len(sink.formatChanges))
	}
	if sink.formatChanges[0].ID != "v0" || sink.formatChanges[1].ID != "v1" {
		t.Fatalf("unexpected coarse format sequence: %+v", sink.formatChanges)
	}
}

func TestAdaptiveSwitchReselectsPrimary(t *testing.T) {
	ext := newFakeExtractor([]domain.Format{{MimeType: "video/avc", Width: 640, Height: 360}})
	ext.samples[0] = []domain.Sample{{TimeUs: 1_000_000}}
	seg := newTestSegment(ext, 0, 4_000_000)
	cs := &fakeChunkSource{
		variants: []domain.Format{
			{ID: "v0", Bitrate: 800_000, Width: 640, Height: 360},
			{ID: "v1", Bitrate: 1_600_000, Width: 1280, Height: 720},
		},
		segments: []*chunk.SegmentChunk{seg},
	}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)
	w.Prepare(0)
	loader.complete()
	w.Prepare(0)

	stream, err := w.Enable(0, []int{0}, 0)
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}

	if _, err := w.Enable(0, []int{1}, 2_000_000); err == nil {
		t.Fatalf("expected a second Enable on the already-enabled group to fail")
	}

	// Simulate an adaptive switch the way Enable would for a group that
	// isn't already enabled: force the primary selection change and
	// observe that it marks a pending reset and restarts loading from
	// the new position rather than continuing the old one.
	w.mu.Lock()
	w.seekInternalLocked(2_000_000)
	pendingReset := w.groups[0].pendingReset
	downstream := w.downstreamPositionUs
	w.mu.Unlock()

	if !pendingReset {
		t.Fatalf("expected the enabled group to be marked for a reset after an internal seek")
	}
	if downstream != 2_000_000 {
		t.Fatalf("expected downstream position to move to the new target, got %v", downstream)
	}
	if got := stream.ReadReset(); got != 2_000_000 {
		t.Fatalf("expected the reader to observe the new reset position, got %v", got)
	}
}

func TestLiveReanchorClampsPosition(t *testing.T) {
	ext := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}})
	ext.samples[0] = []domain.Sample{{TimeUs: 0}}
	seg := newTestSegment(ext, 0, 4_000_000)
	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0"}}, segments: []*chunk.SegmentChunk{seg}, live: true}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)

	w.Prepare(0)
	loader.complete()
	w.Prepare(0)

	// A live enable at a wall-clock-ish position is re-anchored to 0,
	// which matches the prepare position: the fast path applies and
	// nothing is restarted or marked for a reset.
	stream, err := w.Enable(0, []int{0}, 7_000_000)
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	w.mu.Lock()
	pending := w.pendingResetPositionUs
	groupReset := w.groups[0].pendingReset
	w.mu.Unlock()
	if pending != domain.TimeUnset {
		t.Fatalf("expected a live enable at the prepare position to not restart, got pending reset %v", pending)
	}
	if groupReset {
		t.Fatalf("expected no per-group reset after a live enable at the prepare position")
	}

	// A live seek is likewise re-anchored: the reset marker carries 0,
	// not the requested position.
	w.SeekToUs(99_000_000)
	if got := stream.ReadReset(); got != 0 {
		t.Fatalf("expected the live seek to re-anchor the reset marker to 0, got %v", got)
	}
	w.mu.Lock()
	downstream := w.downstreamPositionUs
	w.mu.Unlock()
	if downstream != 0 {
		t.Fatalf("expected the live seek to re-anchor the downstream position to 0, got %v", downstream)
	}
}

func TestDisableAllUnregistersLoadControl(t *testing.T) {
	ext := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}})
	ext.samples[0] = []domain.Sample{{TimeUs: 0}}
	seg := newTestSegment(ext, 0, 4_000_000)
	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0"}}, segments: []*chunk.SegmentChunk{seg}}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)
	w.Prepare(0)
	loader.complete()
	w.Prepare(0)

	stream, err := w.Enable(0, []int{0}, 0)
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	stream.Disable()

	w.mu.Lock()
	registered := w.loadControlRegistered
	count := w.enabledTrackCount
	w.mu.Unlock()
	if registered {
		t.Fatalf("expected load control to be unregistered once all groups disabled")
	}
	if count != 0 {
		t.Fatalf("expected enabledTrackCount 0, got %d", count)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0"}}}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)
	w.Release()
	w.Release()
	if !loader.released {
		t.Fatalf("expected loader to be released")
	}
}

func TestBufferedPositionUsEndOfSource(t *testing.T) {
	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0"}}}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)
	w.mu.Lock()
	w.loadingFinished = true
	w.mu.Unlock()
	if got := w.BufferedPositionUs(); got != domain.EndOfSource {
		t.Fatalf("expected EndOfSource, got %v", got)
	}
}

func TestEnableUnknownStatusBeforePrepare(t *testing.T) {
	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0"}}}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)
	if _, err := w.Enable(0, nil, 0); !errors.Is(err, domain.ErrNotPrepared) {
		t.Fatalf("expected ErrNotPrepared, got %v", err)
	}
}

func TestDoubleDisableIsRejected(t *testing.T) {
	ext := newFakeExtractor([]domain.Format{{MimeType: "video/avc"}})
	ext.samples[0] = []domain.Sample{{TimeUs: 0}}
	seg := newTestSegment(ext, 0, 4_000_000)
	cs := &fakeChunkSource{variants: []domain.Format{{ID: "v0"}}, segments: []*chunk.SegmentChunk{seg}}
	loader := &fakeLoader{}
	w := newTestWrapper(t, cs, loader)
	w.Prepare(0)
	loader.complete()
	w.Prepare(0)

	stream, err := w.Enable(0, []int{0}, 0)
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	stream.Disable()

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected a second Disable on the same group to panic")
		}
	}()
	stream.Disable()
}
