package chunksource

import (
	"sync"
	"sync/atomic"

	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
)

// segmentExtractor is a reference two-track (video, audio) Extractor.
// It has no real demuxer: markPrepared is called once the simulated
// fetch completes, at which point it exposes a handful of synthetic
// samples per track spread evenly across the segment's time range.
type segmentExtractor struct {
	mu        sync.Mutex
	format    domain.Format
	formats   []domain.Format
	samples   [][]domain.Sample
	spliceTo  ports.Extractor
	prepared  int32
	startUs   domain.TimeUs
	endUs     domain.TimeUs
	largestUs domain.TimeUs
}

const samplesPerTrack = 4

func newSegmentExtractor(format domain.Format, startUs, endUs domain.TimeUs) *segmentExtractor {
	return &segmentExtractor{
		format: format,
		formats: []domain.Format{
			{ID: format.ID, MimeType: "video/avc", Width: format.Width, Height: format.Height, Bitrate: format.Bitrate, Codecs: "avc1.640028"},
			{ID: format.ID, MimeType: "audio/mp4a-latm", Language: "und", Codecs: "mp4a.40.2"},
		},
		samples: make([][]domain.Sample, 2),
		startUs: startUs,
		endUs:   endUs,
	}
}

func (e *segmentExtractor) markPrepared() {
	e.mu.Lock()
	defer e.mu.Unlock()
	step := (e.endUs - e.startUs) / samplesPerTrack
	for track := range e.samples {
		out := make([]domain.Sample, 0, samplesPerTrack)
		for i := 0; i < samplesPerTrack; i++ {
			ts := e.startUs + domain.TimeUs(i)*step
			out = append(out, domain.Sample{
				TimeUs:   ts,
				Data:     []byte(e.formats[track].MimeType),
				KeyFrame: track == 0 && i == 0,
			})
			if ts > e.largestUs {
				e.largestUs = ts
			}
		}
		e.samples[track] = out
	}
	atomic.StoreInt32(&e.prepared, 1)
}

func (e *segmentExtractor) Init(ports.Allocator) error { return nil }

func (e *segmentExtractor) IsPrepared() bool { return atomic.LoadInt32(&e.prepared) != 0 }

func (e *segmentExtractor) TrackCount() int { return len(e.formats) }

func (e *segmentExtractor) TrackFormat(track int) domain.Format {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.formats[track]
}

func (e *segmentExtractor) HasSamples(track int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.samples[track]) > 0
}

func (e *segmentExtractor) GetSample(track int) (domain.Sample, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.samples[track]) == 0 {
		return domain.Sample{}, false
	}
	s := e.samples[track][0]
	e.samples[track] = e.samples[track][1:]
	return s, true
}

func (e *segmentExtractor) DiscardUntil(track int, timeUs domain.TimeUs) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.samples[track][:0]
	for _, s := range e.samples[track] {
		if s.TimeUs >= timeUs {
			kept = append(kept, s)
		}
	}
	e.samples[track] = kept
}

func (e *segmentExtractor) LargestParsedTimestampUs() domain.TimeUs {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.largestUs
}

func (e *segmentExtractor) ConfigureSpliceTo(next ports.Extractor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spliceTo = next
}

func (e *segmentExtractor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.samples = make([][]domain.Sample, len(e.formats))
}

func (e *segmentExtractor) Format() domain.Format { return e.format }

func (e *segmentExtractor) Trigger() domain.ChunkTrigger { return domain.TriggerAdaptive }

func (e *segmentExtractor) StartTimeUs() domain.TimeUs { return e.startUs }

var _ ports.Extractor = (*segmentExtractor)(nil)
