package core

import (
	"sync"

	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
)

// CellTransitionFunc is called when a body's placement moves it into a
// different grid cell.
type CellTransitionFunc func(id string, from, to model.GridCell)

// WatchGridCells subscribes to placement updates in store and calls fn
// whenever a body leaves its previous grid cell. The first update seen for a
// body only records its cell. The returned function unsubscribes.
func WatchGridCells(store *kb.KnowledgeBase, fn CellTransitionFunc) (stop func()) {
	var (
		mu    sync.Mutex
		cells = make(map[string]model.GridCell)
	)
	return store.Subscribe(func(e kb.Event) {
		if e.Type != kb.EventBodyUpdated {
			return
		}
		id, to := e.Body.ID, e.Body.Placement.Cell

		mu.Lock()
		from, seen := cells[id]
		cells[id] = to
		mu.Unlock()

		if seen && from != to {
			fn(id, from, to)
		}
	})
}
