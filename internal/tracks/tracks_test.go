package tracks

import (
	"testing"

	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
)

type stubExtractor struct {
	formats []domain.Format
}

func (s *stubExtractor) Init(ports.Allocator) error { return nil }
func (s *stubExtractor) IsPrepared() bool { return true }
func (s *stubExtractor) TrackCount() int { return len(s.formats) }
func (s *stubExtractor) TrackFormat(i int) domain.Format { return s.formats[i] }
func (s *stubExtractor) HasSamples(int) bool { return false }
func (s *stubExtractor) GetSample(int) (domain.Sample, bool) { return domain.Sample{}, false }
func (s *stubExtractor) DiscardUntil(int, domain.TimeUs) {}
func (s *stubExtractor) LargestParsedTimestampUs() domain.TimeUs { return 0 }
func (s *stubExtractor) ConfigureSpliceTo(ports.Extractor) {}
func (s *stubExtractor) Clear() {}
func (s *stubExtractor) Format() domain.Format { return domain.Format{} }
func (s *stubExtractor) Trigger() domain.ChunkTrigger { return domain.TriggerInitial }
func (s *stubExtractor) StartTimeUs() domain.TimeUs { return 0 }

func TestBuildPrimaryVideoAdaptive(t *testing.T) {
	ext := &stubExtractor{formats: []domain.Format{
		{MimeType: "video/avc", Width: 640, Height: 360},
		{MimeType: "audio/mp4a-latm", Language: "en"},
	}}
	variants := []domain.Variant{
		{ID: "v0", Bitrate: 800_000, Width: 640, Height: 360},
		{ID: "v1", Bitrate: 1_600_000, Width: 1280, Height: 720},
	}

	res := Build(ext, variants)
	if res.PrimaryIndex != 0 {
		t.Fatalf("expected primary index 0 (video), got %d", res.PrimaryIndex)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(res.Groups))
	}
	primary := res.Groups[0]
	if !primary.Adaptive {
		t.Fatalf("expected the video group to be adaptive")
	}
	if len(primary.Formats) != 2 {
		t.Fatalf("expected 2 formats overlaid from variants, got %d", len(primary.Formats))
	}
	if primary.Formats[1].Width != 1280 || primary.Formats[1].Height != 720 {
		t.Fatalf("expected variant dimensions to be overlaid, got %+v", primary.Formats[1])
	}

	audio := res.Groups[1]
	if audio.Adaptive {
		t.Fatalf("expected the audio group to be non-adaptive")
	}
	if len(audio.Formats) != 1 || audio.Formats[0].Language != "en" {
		t.Fatalf("expected audio group to carry the extractor format verbatim, got %+v", audio.Formats)
	}
}

func TestBuildNoSinglePrimaryTrack(t *testing.T) {
	// Two audio tracks and no video: no single track has the primary
	// (audio) type, so there is no primary group.
	ext := &stubExtractor{formats: []domain.Format{
		{MimeType: "audio/mp4a-latm", Language: "en"},
		{MimeType: "audio/mp4a-latm", Language: "es"},
	}}

	res := Build(ext, []domain.Variant{{ID: "v0"}})
	if res.PrimaryIndex != -1 {
		t.Fatalf("expected no primary index, got %d", res.PrimaryIndex)
	}
	for i, g := range res.Groups {
		if g.Adaptive {
			t.Fatalf("group %d unexpectedly adaptive", i)
		}
	}
}

func TestBuildUnspecifiedDimensionsFallBack(t *testing.T) {
	ext := &stubExtractor{formats: []domain.Format{
		{MimeType: "video/avc"}, // no width/height known from the extractor
	}}
	variants := []domain.Variant{{ID: "v0", Bitrate: 500_000}}

	res := Build(ext, variants)
	f := res.Groups[0].Formats[0]
	if f.Width != domain.Unspecified || f.Height != domain.Unspecified {
		t.Fatalf("expected unspecified dimensions, got %+v", f)
	}
}
