package pipeline

import (
	"sync"

	"github.com/menta2k/reframe/pkg/types"
)

// AnalysisCache stores segment lists per clip so a re-render of the same
// clip skips the analysis pass. It is owned by the orchestrating caller and
// passed into the engine explicitly; invalidation is the caller's contract
// when a source clip changes.
type AnalysisCache struct {
	mu       sync.RWMutex
	segments map[string][]types.ProcessingSegment
}

// NewAnalysisCache creates an empty cache.
func NewAnalysisCache() *AnalysisCache {
	return &AnalysisCache{segments: make(map[string][]types.ProcessingSegment)}
}

// Get returns the cached segments for a clip ID.
func (c *AnalysisCache) Get(clipID string) ([]types.ProcessingSegment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	segs, ok := c.segments[clipID]
	return segs, ok
}

// Put stores the segments for a clip ID, replacing any previous entry.
func (c *AnalysisCache) Put(clipID string, segs []types.ProcessingSegment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments[clipID] = segs
}

// Invalidate drops one clip's entry.
func (c *AnalysisCache) Invalidate(clipID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.segments, clipID)
}

// Reset drops every entry.
func (c *AnalysisCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments = make(map[string][]types.ProcessingSegment)
}

// Len returns the number of cached clips.
func (c *AnalysisCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.segments)
}
