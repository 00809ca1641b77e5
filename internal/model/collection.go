package model

import (
	"sync"

	"github.com/Krive/spbatch/pkg/spbatch"
)

// Collection is a caller-owned list of entities, implementing
// spbatch.ManageableCollection so the reconciler can remove members after
// a successful DELETE or a GET-duplicate merge.
type Collection struct {
	mu    sync.Mutex
	items []*Entity
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Add appends an entity to the collection and sets its parent back-reference.
func (c *Collection) Add(e *Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.parent = c
	c.items = append(c.items, e)
}

// Items returns a snapshot of the collection's current members.
func (c *Collection) Items() []*Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Entity, len(c.items))
	copy(out, c.items)
	return out
}

// Remove implements spbatch.ManageableCollection.
func (c *Collection) Remove(target spbatch.DataModel) error {
	e, ok := target.(*Entity)
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if item == e {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return nil
}
