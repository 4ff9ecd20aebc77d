// Package ports declares the contracts the sample source consumes and
// exposes. Every collaborator named "external" in the design (Chunk
// Source, Extractor, Loader, Load Control, event sink) is an interface
// here; concrete implementations live outside this package (reference
// ones under internal/demo/chunksource).
package ports

import (
	"context"

	"hlssource/internal/domain"
)

// SourceID identifies a sample source instance to a shared LoadControl,
// the way a pointer identity would in a single-process host language.
type SourceID string

// Allocator is the sole source of sample backing storage, owned by the
// LoadControl and shared by reference across sample sources. Extractors
// borrow from it via Extractor.Init and return capacity via Extractor.Clear.
type Allocator interface {
	Allocate() []byte
	Release(buf []byte)
	IndividualAllocationSize() int
}

// Loadable is a unit of work the Loader can fetch: either a SegmentChunk
// or a NonSegmentChunk (internal/chunk).
type Loadable interface {
	Load(ctx context.Context) error
	Cancel()
	IsLoadCanceled() bool
	BytesLoaded() int64
}

// LoadCallback receives the outcome of a single Loader.StartLoading
// call. Exactly one of these three methods fires per load, and it must
// happen-before the driver's next maybeStartLoading decision.
type LoadCallback interface {
	OnLoadCompleted(loadable Loadable)
	OnLoadCanceled(loadable Loadable)
	OnLoadError(loadable Loadable, err error)
}

// Loader performs a single asynchronous download at a time and invokes
// exactly one LoadCallback method on completion, cancellation or error.
// The callback must be delivered as if posted to the caller's driver
// thread; see internal/source's use of its own mutex for how this
// module honors that without a literal message queue.
type Loader interface {
	StartLoading(loadable Loadable, callback LoadCallback)
	IsLoading() bool
	CancelLoading()
	Release()
}

// Extractor demultiplexes one downloaded segment into per-elementary-
// stream sample queues. It becomes "prepared" once the first format per
// stream has been discovered.
type Extractor interface {
	Init(allocator Allocator) error
	IsPrepared() bool
	TrackCount() int
	TrackFormat(track int) domain.Format
	HasSamples(track int) bool
	GetSample(track int) (domain.Sample, bool)
	DiscardUntil(track int, timeUs domain.TimeUs)
	LargestParsedTimestampUs() domain.TimeUs
	ConfigureSpliceTo(next Extractor)
	Clear()

	// Format, Trigger and StartTimeUs describe the chunk that produced
	// this extractor: the coarse variant-level format the chunk was
	// fetched with, why the chunk was selected, and the
	// segment's declared start time.
	Format() domain.Format
	Trigger() domain.ChunkTrigger
	StartTimeUs() domain.TimeUs
}

// ChunkOperationHolder is an out-parameter for GetChunkOperation: it is
// either an end-of-stream marker, "no chunk yet" (Chunk == nil), or a
// concrete Loadable to fetch next.
type ChunkOperationHolder struct {
	EndOfStream bool
	Chunk       Loadable
}

// Clear resets the holder before a GetChunkOperation call reuses it.
func (h *ChunkOperationHolder) Clear() {
	h.EndOfStream = false
	h.Chunk = nil
}

// ChunkSource selects the next chunk to fetch given a target time and
// the previously loaded segment. Adaptive-bitrate decisions and
// playlist parsing live entirely inside the implementation; the sample
// source only ever calls this contract.
type ChunkSource interface {
	Prepare() (bool, error)
	TrackCount() int
	TrackFormat(track int) domain.Format
	SelectTracks(indices []int)
	IsLive() bool
	Seek()
	Reset()
	DurationUs() domain.TimeUs
	MaybeThrowError() error
	GetChunkOperation(previousSegment Loadable, targetTimeUs domain.TimeUs, out *ChunkOperationHolder)
	OnChunkLoadCompleted(chunk Loadable)
	OnChunkLoadError(chunk Loadable, err error) (handled bool)
}

// LoadControl budgets memory across multiple sample sources and gates
// whether the next load may begin.
type LoadControl interface {
	Register(id SourceID, bufferSizeBytes int64)
	Unregister(id SourceID)
	Update(id SourceID, downstreamPositionUs, nextLoadPositionUs domain.TimeUs, loadingOrBackedOff bool) (mayStartNext bool)
	Allocator() Allocator
	TrimAllocator()
}

// TrackStream is the per-group pull handle handed back by Enable.
type TrackStream interface {
	IsReady() bool
	MaybeThrowError() error
	ReadReset() domain.TimeUs
	ReadData(outFormat *domain.Format, outSample *domain.Sample) (domain.ReadResult, error)
	Disable()
}

// SampleSource is the upward-facing contract implemented by
// internal/source.Wrapper.
type SampleSource interface {
	Prepare(positionUs domain.TimeUs) (domain.PrepareStatus, error)
	IsPrepared() bool
	DurationUs() domain.TimeUs
	TrackGroupCount() int
	TrackGroup(i int) domain.TrackGroup
	Enable(groupIndex int, selectedVariantIndices []int, positionUs domain.TimeUs) (TrackStream, error)
	ContinueBuffering(playbackPositionUs domain.TimeUs)
	SeekToUs(positionUs domain.TimeUs)
	BufferedPositionUs() domain.TimeUs
	Release()
}
