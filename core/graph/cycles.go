package graph

import "github.com/tristendillon/minibundle/core/models"

// DetectCycles finds circular imports among processed assets. Each cycle is
// reported once, starting at the asset the search first entered it from, in
// ascending id order of the search roots.
func (g *Graph) DetectCycles() [][]models.AssetID {
	edges := g.Edges()
	visited := make([]bool, len(edges))
	onStack := make([]bool, len(edges))

	var cycles [][]models.AssetID
	var path []models.AssetID

	var visit func(id models.AssetID)
	visit = func(id models.AssetID) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, dep := range edges[id] {
			if !visited[dep] {
				visit(dep)
				continue
			}
			if onStack[dep] {
				cycles = append(cycles, extractCycle(path, dep))
			}
		}

		path = path[:len(path)-1]
		onStack[id] = false
	}

	for id := range edges {
		if !visited[id] {
			visit(models.AssetID(id))
		}
	}
	return cycles
}

func extractCycle(path []models.AssetID, start models.AssetID) []models.AssetID {
	for i, id := range path {
		if id == start {
			cycle := make([]models.AssetID, len(path)-i)
			copy(cycle, path[i:])
			return cycle
		}
	}
	return nil
}

// PathsOf maps ids to their asset paths, for diagnostics.
func (g *Graph) PathsOf(ids []models.AssetID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if g.valid(id) {
			out = append(out, g.assets[id].Path)
		}
	}
	return out
}
