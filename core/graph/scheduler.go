package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/models"
)

var ErrAlreadySeeded = errors.New("graph already seeded")

// Step processes one pending asset. It must finalize the asset before
// returning nil.
type Step func(ctx context.Context, g *Graph, id models.AssetID) error

// Scheduler drains the graph's worklist, handing each pending asset to a
// Step exactly once.
type Scheduler struct {
	graph *Graph
	steps int
}

func NewScheduler(g *Graph) *Scheduler {
	return &Scheduler{graph: g}
}

// Seed registers the entry path. Because the graph must be empty, the entry
// always receives id 0.
func (s *Scheduler) Seed(entryPath string) (models.AssetID, error) {
	if s.graph.Len() != 0 {
		return 0, fmt.Errorf("%w: cannot seed %s", ErrAlreadySeeded, entryPath)
	}
	id, _ := s.graph.GetOrCreate(entryPath)
	return id, nil
}

func (s *Scheduler) DrainOne() (models.AssetID, bool) {
	return s.graph.queue.Pop()
}

// RunToCompletion processes pending assets until the worklist is empty. The
// first step error aborts the run and is returned unchanged.
func (s *Scheduler) RunToCompletion(ctx context.Context, step Step) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		id, ok := s.DrainOne()
		if !ok {
			logger.Debug("Scheduler: Worklist drained after %d steps", s.steps)
			return nil
		}

		if err := step(ctx, s.graph, id); err != nil {
			return err
		}
		s.steps++

		if asset, _ := s.graph.Asset(id); asset.State != models.Processed {
			return fmt.Errorf("step returned without finalizing %s", asset)
		}
	}
}

// Steps reports how many assets have been processed so far.
func (s *Scheduler) Steps() int {
	return s.steps
}
