// Package chunk provides the two concrete Loadable kinds the sample
// source dispatches to the Loader: segment chunks, which carry media
// samples and are bound to an Extractor, and non-segment chunks such as
// encryption keys or initialization data.
package chunk

import (
	"context"
	"sync/atomic"

	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
)

// Fetcher performs the actual byte transfer for a chunk. It is supplied
// by whatever concrete Loader/ChunkSource pairing is in use; the chunk
// types here only track bytes loaded and cancellation.
type Fetcher func(ctx context.Context, spec domain.DataSpec, onBytes func(n int64)) error

// base implements the bookkeeping shared by both chunk kinds: bytes
// loaded so far and cooperative cancellation.
type base struct {
	Type    domain.ChunkType
	Trigger domain.ChunkTrigger
	Format  domain.Format
	Spec    domain.DataSpec
	Fetch   Fetcher

	bytesLoaded int64
	canceled    int32
}

func (b *base) BytesLoaded() int64 { return atomic.LoadInt64(&b.bytesLoaded) }

func (b *base) addBytes(n int64) { atomic.AddInt64(&b.bytesLoaded, n) }

func (b *base) Cancel() { atomic.StoreInt32(&b.canceled, 1) }

func (b *base) IsLoadCanceled() bool { return atomic.LoadInt32(&b.canceled) != 0 }

func (b *base) load(ctx context.Context) error {
	if b.Fetch == nil {
		return nil
	}
	return b.Fetch(ctx, b.Spec, b.addBytes)
}

// NonSegmentChunk is a chunk with no media time range: an encryption
// key, initialization segment, or similar auxiliary fetch.
type NonSegmentChunk struct {
	base
}

// NewNonSegmentChunk constructs a non-segment chunk.
func NewNonSegmentChunk(format domain.Format, trigger domain.ChunkTrigger, spec domain.DataSpec, fetch Fetcher) *NonSegmentChunk {
	return &NonSegmentChunk{base{
		Type:    domain.ChunkNonSegment,
		Trigger: trigger,
		Format:  format,
		Spec:    spec,
		Fetch:   fetch,
	}}
}

func (c *NonSegmentChunk) Load(ctx context.Context) error { return c.load(ctx) }

// SegmentChunk carries media samples across [StartTimeUs, EndTimeUs] and
// is bound to the Extractor that will demultiplex it once loaded.
type SegmentChunk struct {
	base
	StartTimeUs TimeUs
	EndTimeUs   TimeUs
	extractor   ports.Extractor
}

// TimeUs is a local alias kept for readability at call sites; identical
// to domain.TimeUs.
type TimeUs = domain.TimeUs

// NewSegmentChunk constructs a segment chunk bound to extractor.
func NewSegmentChunk(format domain.Format, trigger domain.ChunkTrigger, spec domain.DataSpec, startTimeUs, endTimeUs TimeUs, extractor ports.Extractor, fetch Fetcher) *SegmentChunk {
	return &SegmentChunk{
		base: base{
			Type:    domain.ChunkSegment,
			Trigger: trigger,
			Format:  format,
			Spec:    spec,
			Fetch:   fetch,
		},
		StartTimeUs: startTimeUs,
		EndTimeUs:   endTimeUs,
		extractor:   extractor,
	}
}

func (c *SegmentChunk) Load(ctx context.Context) error { return c.load(ctx) }

// Extractor returns the demultiplexer bound to this segment.
func (c *SegmentChunk) Extractor() ports.Extractor { return c.extractor }

var (
	_ ports.Loadable = (*NonSegmentChunk)(nil)
	_ ports.Loadable = (*SegmentChunk)(nil)
)
