package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/orrery/model"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrBodyExists     = errors.New("body already exists")
	ErrBodyNotFound   = errors.New("body not found")
	ErrParentNotFound = errors.New("parent body not found")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventBodyAdded EventType = iota
	EventBodyUpdated
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type EventType
	Body model.Body
}

// KnowledgeBase is an in-memory, thread-safe store for the body hierarchy.
type KnowledgeBase struct {
	mu sync.RWMutex

	bodies   map[string]*model.Body
	children map[string][]string

	subs   map[int]func(Event)
	nextID int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		bodies:   make(map[string]*model.Body),
		children: make(map[string][]string),
		subs:     make(map[int]func(Event)),
	}
}

// AddBody registers a body. Its parent, if any, must already be present.
func (kb *KnowledgeBase) AddBody(b model.Body) error {
	if b.ID == "" {
		return fmt.Errorf("body ID must not be empty")
	}

	kb.mu.Lock()
	if _, exists := kb.bodies[b.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrBodyExists, b.ID)
	}
	if b.ParentID != "" {
		if _, ok := kb.bodies[b.ParentID]; !ok {
			kb.mu.Unlock()
			return fmt.Errorf("%w: %q (parent of %q)", ErrParentNotFound, b.ParentID, b.ID)
		}
		kb.children[b.ParentID] = append(kb.children[b.ParentID], b.ID)
	}
	stored := b
	kb.bodies[b.ID] = &stored
	subs := kb.subscribers()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventBodyAdded, Body: b})
	return nil
}

// GetBody returns a copy of the body with the given ID.
func (kb *KnowledgeBase) GetBody(id string) (model.Body, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	b, ok := kb.bodies[id]
	if !ok {
		return model.Body{}, false
	}
	return *b, true
}

// ListBodies returns a snapshot of all bodies ordered by ID.
func (kb *KnowledgeBase) ListBodies() []model.Body {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.Body, 0, len(kb.bodies))
	for _, b := range kb.bodies {
		res = append(res, *b)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of bodies.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.bodies)
}

// Children returns the IDs of the direct satellites of id, sorted.
func (kb *KnowledgeBase) Children(id string) []string {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := append([]string(nil), kb.children[id]...)
	sort.Strings(out)
	return out
}

// UpdateBodyPlacement stores a freshly computed placement and notifies
// subscribers.
func (kb *KnowledgeBase) UpdateBodyPlacement(id string, p model.Placement) error {
	kb.mu.Lock()
	b, ok := kb.bodies[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrBodyNotFound, id)
	}
	b.Placement = p
	event := Event{Type: EventBodyUpdated, Body: *b}
	subs := kb.subscribers()
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	notify(subs, event)
	return nil
}

// AbsolutePosition sums the parent-local placements from id up to the root.
func (kb *KnowledgeBase) AbsolutePosition(id string) (r3.Vec, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	// Parents are registered before their children, so the walk terminates.
	var pos r3.Vec
	for cur := id; cur != ""; {
		b, ok := kb.bodies[cur]
		if !ok {
			return r3.Vec{}, fmt.Errorf("%w: %q", ErrBodyNotFound, cur)
		}
		pos = r3.Add(pos, b.Placement.Local.Vec())
		cur = b.ParentID
	}
	return pos, nil
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextID
	kb.nextID++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

// subscribers snapshots callbacks in registration order. Callers hold mu.
func (kb *KnowledgeBase) subscribers() []func(Event) {
	ids := make([]int, 0, len(kb.subs))
	for id := range kb.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, kb.subs[id])
	}
	return out
}

func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}
