package extractorqueue

import (
	"testing"

	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
)

// fakeExtractor is a minimal ports.Extractor for exercising the queue in
// isolation, without pulling in internal/chunk or internal/source.
type fakeExtractor struct {
	id         string
	prepared   bool
	cleared    bool
	hasSamples bool
	spliceTo   ports.Extractor
}

func (f *fakeExtractor) Init(ports.Allocator) error { return nil }
func (f *fakeExtractor) IsPrepared() bool { return f.prepared }
func (f *fakeExtractor) TrackCount() int { return 1 }
func (f *fakeExtractor) TrackFormat(int) domain.Format { return domain.Format{} }
func (f *fakeExtractor) HasSamples(int) bool { return f.hasSamples }
func (f *fakeExtractor) GetSample(int) (domain.Sample, bool) { return domain.Sample{}, false }
func (f *fakeExtractor) DiscardUntil(int, domain.TimeUs) {}
func (f *fakeExtractor) LargestParsedTimestampUs() domain.TimeUs { return 0 }
func (f *fakeExtractor) ConfigureSpliceTo(next ports.Extractor) { f.spliceTo = next }
func (f *fakeExtractor) Clear() { f.cleared = true }
func (f *fakeExtractor) Format() domain.Format { return domain.Format{} }
func (f *fakeExtractor) Trigger() domain.ChunkTrigger { return domain.TriggerInitial }
func (f *fakeExtractor) StartTimeUs() domain.TimeUs { return 0 }

func TestAppendFrontIsLast(t *testing.T) {
	var q Queue
	a := &fakeExtractor{id: "a"}
	b := &fakeExtractor{id: "b"}

	if q.Len() != 0 {
		t.Fatalf("expected empty queue")
	}
	q.Append(a)
	if !q.IsLast(a) {
		t.Fatalf("a should be last after appending it alone")
	}
	q.Append(b)
	if q.IsLast(a) {
		t.Fatalf("a should no longer be last")
	}
	if !q.IsLast(b) {
		t.Fatalf("b should be last")
	}

	front, ok := q.Front()
	if !ok || front != a {
		t.Fatalf("expected front to be a")
	}
}

func TestDiscardUntilFirstPrepared(t *testing.T) {
	var q Queue
	a := &fakeExtractor{prepared: false}
	b := &fakeExtractor{prepared: false}
	c := &fakeExtractor{prepared: true}
	q.Append(a)
	q.Append(b)
	q.Append(c)

	got, ok := q.DiscardUntilFirstPrepared()
	if !ok || got != c {
		t.Fatalf("expected c to be the first prepared extractor")
	}
	if !a.cleared || !b.cleared {
		t.Fatalf("expected a and b to be cleared")
	}
	if c.cleared {
		t.Fatalf("did not expect c to be cleared")
	}
	if q.Len() != 1 {
		t.Fatalf("expected only c to remain, got len=%d", q.Len())
	}
}

func TestDiscardUntilFirstPreparedNoneReady(t *testing.T) {
	var q Queue
	a := &fakeExtractor{prepared: false}
	q.Append(a)

	_, ok := q.DiscardUntilFirstPrepared()
	if ok {
		t.Fatalf("expected no prepared extractor")
	}
	// Nothing is prepared, so nothing should be discarded yet;
	// there is no "next" segment to fall back to.
	if q.Len() != 1 {
		t.Fatalf("expected the unprepared extractor to remain queued, got len=%d", q.Len())
	}
}

func TestDiscardExhaustedFrontStopsAtLast(t *testing.T) {
	var q Queue
	a := &fakeExtractor{hasSamples: false}
	b := &fakeExtractor{hasSamples: false}
	q.Append(a)
	q.Append(b)

	q.DiscardExhaustedFront(func(e ports.Extractor) bool {
		return e.(*fakeExtractor).hasSamples
	})

	if q.Len() != 1 {
		t.Fatalf("expected one extractor left (the last, kept regardless), got %d", q.Len())
	}
	if !a.cleared {
		t.Fatalf("expected a to be discarded")
	}
	front, _ := q.Front()
	if front != b {
		t.Fatalf("expected b to remain even though exhausted, since it is last")
	}
}

func TestConfigureSpliceFront(t *testing.T) {
	var q Queue
	a := &fakeExtractor{}
	b := &fakeExtractor{}
	q.Append(a)

	q.ConfigureSpliceFront()
	if a.spliceTo != nil {
		t.Fatalf("expected no splice with a single queued extractor")
	}

	q.Append(b)
	q.ConfigureSpliceFront()
	if a.spliceTo != b {
		t.Fatalf("expected a spliced to b")
	}
}

func TestClearReleasesAll(t *testing.T) {
	var q Queue
	a := &fakeExtractor{}
	b := &fakeExtractor{}
	q.Append(a)
	q.Append(b)

	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after Clear")
	}
	if !a.cleared || !b.cleared {
		t.Fatalf("expected both extractors cleared")
	}
}
