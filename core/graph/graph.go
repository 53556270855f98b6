package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/models"
)

var (
	ErrUnknownAsset     = errors.New("unknown asset")
	ErrAlreadyProcessed = errors.New("asset already processed")
	ErrPending          = errors.New("asset not processed")
)

// Graph is the asset registry for one bundling run. Assets live in an arena
// indexed by id; dependency edges are plain ids into the same arena.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	assets []models.Asset
	byPath map[string]models.AssetID
	queue  *Worklist
}

func New() *Graph {
	return &Graph{
		byPath: make(map[string]models.AssetID),
		queue:  NewWorklist(),
	}
}

// GetOrCreate returns the asset registered under path, creating and
// enqueueing a Pending asset with the next id when there is none. It is the
// only place ids are allocated.
func (g *Graph) GetOrCreate(path string) (models.AssetID, bool) {
	if id, ok := g.byPath[path]; ok {
		return id, false
	}

	id := models.AssetID(len(g.assets))
	g.assets = append(g.assets, models.Asset{
		ID:    id,
		Path:  path,
		State: models.Pending,
	})
	g.byPath[path] = id
	g.queue.Push(id)

	logger.Debug("Graph: Created asset #%d for %s", id, path)
	return id, true
}

func (g *Graph) Lookup(path string) (models.AssetID, bool) {
	id, ok := g.byPath[path]
	return id, ok
}

// Asset returns a copy of the asset with the given id.
func (g *Graph) Asset(id models.AssetID) (models.Asset, bool) {
	if !g.valid(id) {
		return models.Asset{}, false
	}
	return cloneAsset(g.assets[id]), true
}

func (g *Graph) Len() int {
	return len(g.assets)
}

// Pending returns the number of assets that have not been finalized yet.
func (g *Graph) Pending() int {
	n := 0
	for i := range g.assets {
		if g.assets[i].State == models.Pending {
			n++
		}
	}
	return n
}

// Finalize sets code and dependencies together and moves the asset to
// Processed. It fails if the asset was already finalized or if a dependency
// id is not part of the graph.
func (g *Graph) Finalize(id models.AssetID, code string, deps map[string]models.AssetID) error {
	if !g.valid(id) {
		return fmt.Errorf("%w: #%d", ErrUnknownAsset, id)
	}

	asset := &g.assets[id]
	if asset.State == models.Processed {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, asset.Path)
	}

	for specifier, depID := range deps {
		if !g.valid(depID) {
			return fmt.Errorf("%w: #%d (%q imported by %s)", ErrUnknownAsset, depID, specifier, asset.Path)
		}
	}

	asset.Code = code
	asset.Dependencies = maps.Clone(deps)
	if asset.Dependencies == nil {
		asset.Dependencies = map[string]models.AssetID{}
	}
	asset.State = models.Processed

	logger.Debug("Graph: Finalized asset #%d with %d dependencies", id, len(deps))
	return nil
}

// Processed returns every asset in id order. All assets must have been
// finalized; reading a graph that still has pending work is an error.
func (g *Graph) Processed() ([]models.Asset, error) {
	out := make([]models.Asset, 0, len(g.assets))
	for i := range g.assets {
		if g.assets[i].State != models.Processed {
			return nil, fmt.Errorf("%w: %s", ErrPending, g.assets[i])
		}
		out = append(out, cloneAsset(g.assets[i]))
	}
	return out, nil
}

// Edges returns, for each asset id, the sorted and deduplicated ids of its
// dependencies. Pending assets have no edges yet.
func (g *Graph) Edges() [][]models.AssetID {
	edges := make([][]models.AssetID, len(g.assets))
	for i := range g.assets {
		deps := g.assets[i].Dependencies
		if len(deps) == 0 {
			continue
		}
		ids := make([]models.AssetID, 0, len(deps))
		for _, depID := range deps {
			ids = append(ids, depID)
		}
		slices.Sort(ids)
		edges[i] = slices.Compact(ids)
	}
	return edges
}

func (g *Graph) valid(id models.AssetID) bool {
	return id >= 0 && int(id) < len(g.assets)
}

func cloneAsset(a models.Asset) models.Asset {
	a.Dependencies = maps.Clone(a.Dependencies)
	return a
}
