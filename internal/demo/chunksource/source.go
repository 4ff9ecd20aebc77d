// Package chunksource is a reference ChunkSource/Loader/LoadControl/
// Extractor implementation used to exercise internal/source end to end
// without a real HLS server: a fixed-duration, fixed-segment-length
// synthetic rendition ladder held entirely in memory. A token-bucket
// rate limiter paces the simulated segment downloads so backoff and
// backpressure paths actually get exercised.
package chunksource

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"hlssource/internal/chunk"
	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
)

// Rendition is one bitrate variant of the synthetic stream.
type Rendition struct {
	Format domain.Format
}

// Config describes the synthetic stream a Source serves.
type Config struct {
	Renditions    []Rendition
	SegmentLength domain.TimeUs
	SegmentCount  int
	BytesPerUs    float64 // simulated bitrate, for pacing only
	Live          bool
}

// Source is a reference ports.ChunkSource. It has no real network I/O:
// Load() on the chunks it hands out just sleeps proportionally to
// simulated bitrate, rate-limited by a shared token bucket, and demuxes
// into a fixed two-track (video+audio) Extractor per segment.
type Source struct {
	cfg     Config
	limiter *rate.Limiter

	mu       sync.Mutex
	selected []int
	live     bool
}

// New constructs a reference Source. ratePerSecond bounds simulated
// download throughput.
func New(cfg Config, ratePerSecond rate.Limit, burst int) *Source {
	return &Source{
		cfg:      cfg,
		limiter:  rate.NewLimiter(ratePerSecond, burst),
		selected: []int{0},
		live:     cfg.Live,
	}
}

func (s *Source) Prepare() (bool, error) { return true, nil }

func (s *Source) TrackCount() int { return len(s.cfg.Renditions) }

func (s *Source) TrackFormat(track int) domain.Format { return s.cfg.Renditions[track].Format }

func (s *Source) SelectTracks(indices []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = append([]int(nil), indices...)
}

func (s *Source) IsLive() bool { return s.live }

func (s *Source) Seek() {}

func (s *Source) Reset() {}

func (s *Source) DurationUs() domain.TimeUs {
	if s.live {
		return domain.TimeUnset
	}
	return s.cfg.SegmentLength * domain.TimeUs(s.cfg.SegmentCount)
}

func (s *Source) MaybeThrowError() error { return nil }

func (s *Source) currentVariant() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.selected) == 0 {
		return 0
	}
	return s.selected[0]
}

// GetChunkOperation implements ports.ChunkSource: it walks forward one
// segment at a time from previousSegment's end time, synthesizing a
// SegmentChunk whose Load() simulates the network using the shared
// limiter.
func (s *Source) GetChunkOperation(previousSegment ports.Loadable, targetTimeUs domain.TimeUs, out *ports.ChunkOperationHolder) {
	startTimeUs := domain.TimeUs(0)
	if prev, ok := previousSegment.(*chunk.SegmentChunk); ok {
		startTimeUs = prev.EndTimeUs
	} else if targetTimeUs != domain.TimeUnset {
		startTimeUs = (targetTimeUs / s.cfg.SegmentLength) * s.cfg.SegmentLength
	}

	segmentIndex := int(startTimeUs / s.cfg.SegmentLength)
	if !s.live && segmentIndex >= s.cfg.SegmentCount {
		out.EndOfStream = true
		return
	}

	variant := s.currentVariant()
	endTimeUs := startTimeUs + s.cfg.SegmentLength
	format := s.cfg.Renditions[variant].Format

	ext := newSegmentExtractor(format, startTimeUs, endTimeUs)
	spec := domain.DataSpec{URI: fmt.Sprintf("segment-%d-v%d.ts", segmentIndex, variant), Start: 0, Length: -1}

	fetch := s.fetcherFor(ext)
	out.Chunk = chunk.NewSegmentChunk(format, domain.TriggerAdaptive, spec, startTimeUs, endTimeUs, ext, fetch)
}

func (s *Source) fetcherFor(ext *segmentExtractor) chunk.Fetcher {
	return func(ctx context.Context, spec domain.DataSpec, onBytes func(int64)) error {
		simulatedBytes := int64(float64(s.cfg.SegmentLength) * s.cfg.BytesPerUs)
		const chunkSize = 16 * 1024
		for remaining := simulatedBytes; remaining > 0; {
			n := int64(chunkSize)
			if n > remaining {
				n = remaining
			}
			if err := s.limiter.WaitN(ctx, int(n)); err != nil {
				return err
			}
			onBytes(n)
			remaining -= n
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		ext.markPrepared()
		return nil
	}
}

func (s *Source) OnChunkLoadCompleted(ports.Loadable) {}

// OnChunkLoadError never claims to have handled an error itself; the
// reference implementation has no playlist-refresh or key-rotation
// logic to fall back on.
func (s *Source) OnChunkLoadError(ports.Loadable, error) bool { return false }

var _ ports.ChunkSource = (*Source)(nil)
