// Package extractorqueue holds the ordered sequence of in-flight/ready
// Extractors: a simple front-popped, tail-identity-checked sequence,
// plus the splice and discard helpers the reader API needs on top of
// it. The queue itself has no notion of "enabled groups"; callers
// (internal/source) supply predicates where group knowledge is
// required.
package extractorqueue

import "hlssource/internal/domain/ports"

// Queue is an ordered sequence of Extractors, each one's StartTimeUs
// greater than or equal to its predecessor's.
type Queue struct {
	items []ports.Extractor
}

// Len returns the number of extractors currently queued.
func (q *Queue) Len() int { return len(q.items) }

// Append adds an extractor to the tail of the queue.
func (q *Queue) Append(e ports.Extractor) {
	q.items = append(q.items, e)
}

// Front returns the extractor at the head of the queue, if any.
func (q *Queue) Front() (ports.Extractor, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// At returns the extractor at index i, if in range.
func (q *Queue) At(i int) (ports.Extractor, bool) {
	if i < 0 || i >= len(q.items) {
		return nil, false
	}
	return q.items[i], true
}

// IsLast reports whether e is (by identity) the extractor at the tail
// of the queue. This is the "identity check at the tail" the new
// chunk's extractor is compared against before appending, so the same
// segment's extractor is never appended twice.
func (q *Queue) IsLast(e ports.Extractor) bool {
	if len(q.items) == 0 {
		return false
	}
	return q.items[len(q.items)-1] == e
}

// PopFront removes and returns the head of the queue without releasing
// its resources; callers that want the extractor's memory back must
// call Extractor.Clear() themselves.
func (q *Queue) PopFront() (ports.Extractor, bool) {
	e, ok := q.Front()
	if !ok {
		return nil, false
	}
	q.items = q.items[1:]
	return e, true
}

// DiscardExhaustedFront pops and clears extractors from the head of the
// queue for as long as hasSamples reports false for them, always
// stopping at the last extractor regardless of its own state. The last
// one stays so its splice target and coarse format remain visible even
// once it runs dry.
func (q *Queue) DiscardExhaustedFront(hasSamples func(ports.Extractor) bool) {
	for len(q.items) > 1 {
		front := q.items[0]
		if hasSamples(front) {
			return
		}
		front.Clear()
		q.items = q.items[1:]
	}
}

// DiscardUntilFirstPrepared pops and clears every leading extractor
// that has not yet become prepared, since they held no useful samples
// for the new playback start. It returns the first prepared extractor
// found, or (nil, false) if none in the queue are prepared yet, in
// which case the queue is left untouched.
func (q *Queue) DiscardUntilFirstPrepared() (ports.Extractor, bool) {
	anyPrepared := false
	for _, e := range q.items {
		if e.IsPrepared() {
			anyPrepared = true
			break
		}
	}
	if !anyPrepared {
		return nil, false
	}
	for len(q.items) > 0 {
		front := q.items[0]
		if front.IsPrepared() {
			return front, true
		}
		front.Clear()
		q.items = q.items[1:]
	}
	return nil, false
}

// ConfigureSpliceFront wires the head extractor's splice target to the
// second one, if present, so adjacent segments can hand off samples
// seamlessly.
func (q *Queue) ConfigureSpliceFront() {
	if len(q.items) < 2 {
		return
	}
	q.items[0].ConfigureSpliceTo(q.items[1])
}

// Clear releases every extractor in the queue and empties it. Used on a
// full reset (disable-with-zero-enabled, restartFrom, release).
func (q *Queue) Clear() {
	for _, e := range q.items {
		e.Clear()
	}
	q.items = nil
}
