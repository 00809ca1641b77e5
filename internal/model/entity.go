// Package model provides a minimal, generic default implementation of the
// spbatch domain-model capability interfaces (DataModel, TransientObject,
// IDataModelParent, ManageableCollection, Deletable), for callers that
// don't already have their own typed SharePoint/Graph object graph.
package model

import (
	"fmt"
	"sync"

	"github.com/Krive/spbatch/pkg/spbatch"
)

// Entity is a map-backed domain object: every JSON field from a mapped
// response becomes a string-keyed value. It satisfies spbatch.DataModel,
// spbatch.TransientObject, spbatch.IDataModelParent, and spbatch.Deletable.
type Entity struct {
	mu      sync.RWMutex
	fields  map[string]interface{}
	parent  *Collection
	deleted bool
}

// NewEntity creates an empty entity, optionally owned by a collection.
func NewEntity(parent *Collection) *Entity {
	return &Entity{fields: make(map[string]interface{}), parent: parent}
}

// KeyValue implements spbatch.DataModel.
func (e *Entity) KeyValue(fieldName string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.fields[fieldName]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", v), true
}

// setFields replaces the entity's field map wholesale — called by
// DefaultMapper after a successful response.
func (e *Entity) setFields(fields map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fields = fields
}

// Commit implements spbatch.TransientObject. Entity has no local dirty
// state beyond what the batch response already wrote, so Commit is a no-op.
func (e *Entity) Commit() error { return nil }

// Merge implements spbatch.TransientObject: folds another entity's fields
// into this one, keeping this entity's value on key collision (it is the
// canonical copy the reconciler picked).
func (e *Entity) Merge(other spbatch.DataModel) error {
	dup, ok := other.(*Entity)
	if !ok {
		return fmt.Errorf("model: cannot merge %T into *Entity", other)
	}
	dup.mu.RLock()
	defer dup.mu.RUnlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range dup.fields {
		if _, exists := e.fields[k]; !exists {
			e.fields[k] = v
		}
	}
	return nil
}

// Parent implements spbatch.IDataModelParent.
func (e *Entity) Parent() spbatch.ManageableCollection {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// MarkDeleted implements spbatch.Deletable.
func (e *Entity) MarkDeleted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = true
}

// Deleted reports whether the reconciler has tombstoned this entity.
func (e *Entity) Deleted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.deleted
}
