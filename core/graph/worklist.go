package graph

import "github.com/tristendillon/minibundle/core/models"

// Worklist holds ids of pending assets. It drains last-in first-out; callers
// must not rely on any particular order.
type Worklist struct {
	ids []models.AssetID
}

func NewWorklist() *Worklist {
	return &Worklist{}
}

func (w *Worklist) Push(id models.AssetID) {
	w.ids = append(w.ids, id)
}

func (w *Worklist) Pop() (models.AssetID, bool) {
	if len(w.ids) == 0 {
		return 0, false
	}
	last := len(w.ids) - 1
	id := w.ids[last]
	w.ids = w.ids[:last]
	return id, true
}

func (w *Worklist) Len() int {
	return len(w.ids)
}
