package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Clip is one independent unit of work for the multi-clip runner.
type Clip struct {
	ID     string
	Source FrameSource
	Sink   FrameSink
}

// RunClips processes independent clips concurrently, up to workers at a
// time. Each clip gets a fresh Processor from newProcessor, so no mutable
// state crosses clip boundaries. When cache is non-nil, each clip's
// aggregated segments are stored under its ID; clips already present in
// the cache are skipped.
func RunClips(ctx context.Context, clips []Clip, workers int, newProcessor func() (*Processor, error), cache *AnalysisCache) error {
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, clip := range clips {
		g.Go(func() error {
			if cache != nil {
				if _, ok := cache.Get(clip.ID); ok {
					return nil
				}
			}

			proc, err := newProcessor()
			if err != nil {
				return fmt.Errorf("clip %s: %w", clip.ID, err)
			}

			if err := proc.Run(ctx, clip.Source, clip.Sink); err != nil {
				return fmt.Errorf("clip %s: %w", clip.ID, err)
			}

			if cache != nil {
				cache.Put(clip.ID, proc.Segments())
			}
			return nil
		})
	}

	return g.Wait()
}
