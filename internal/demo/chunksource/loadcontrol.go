package chunksource

import (
	"sync"

	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
)

// allocator is a reference ports.Allocator: plain heap allocation with a
// fixed block size; nothing is pooled or tracked. Production
// implementations would pool these; a synthetic stream has no need to.
type allocator struct {
	blockSize int
}

func (a *allocator) Allocate() []byte { return make([]byte, a.blockSize) }
func (a *allocator) Release([]byte) {}
func (a *allocator) IndividualAllocationSize() int { return a.blockSize }

// LoadControl is a reference ports.LoadControl: it gates the next load
// purely on a target buffer-ahead duration per registered source, the
// way a simple playback buffer policy would.
type LoadControl struct {
	mu         sync.Mutex
	bufferUs   domain.TimeUs
	allocator  *allocator
	registered map[ports.SourceID]bool
	trims      int
}

// NewLoadControl builds a LoadControl that allows loading to run
// targetBufferUs ahead of the downstream playback position.
func NewLoadControl(targetBufferUs domain.TimeUs) *LoadControl {
	return &LoadControl{
		bufferUs:   targetBufferUs,
		allocator:  &allocator{blockSize: 64 * 1024},
		registered: make(map[ports.SourceID]bool),
	}
}

func (c *LoadControl) Register(id ports.SourceID, bufferSizeBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered[id] = true
}

func (c *LoadControl) Unregister(id ports.SourceID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.registered, id)
}

func (c *LoadControl) Update(id ports.SourceID, downstreamPositionUs, nextLoadPositionUs domain.TimeUs, loadingOrBackedOff bool) bool {
	if loadingOrBackedOff {
		return false
	}
	if nextLoadPositionUs == domain.TimeUnset || downstreamPositionUs == domain.TimeUnset {
		return true
	}
	aheadUs := nextLoadPositionUs - downstreamPositionUs
	return aheadUs < c.bufferUs
}

func (c *LoadControl) Allocator() ports.Allocator { return c.allocator }

func (c *LoadControl) TrimAllocator() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trims++
}

var _ ports.LoadControl = (*LoadControl)(nil)
