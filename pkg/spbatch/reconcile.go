package spbatch

import "fmt"

// reconcile runs after a batch has fully dispatched: it folds duplicate GET
// results (distinct requests that happened to resolve to the same logical
// entity, by type and key field, even though dedupe only catches identical
// URL+body requests) into one canonical model, and propagates successful
// DELETEs into the caller's collections.
//
// reconcile is best-effort against the responses it has: a request that
// never responded (e.g. because its sub-batch never ran, on a cancelled
// split dispatch) is simply skipped, not an error.
func reconcile(b *Batch) error {
	groups := make(map[string][]*Request)

	for _, r := range b.Requests() {
		if r.Method != MethodGET || !r.Responded() || r.ResponseStatus/100 != 2 || r.Model == nil {
			continue
		}
		keyField := r.Entity.KeyField(r.Family)
		if keyField == "" {
			continue
		}
		value, ok := r.Model.KeyValue(keyField)
		if !ok {
			continue
		}
		groupKey := fmt.Sprintf("%T\x00%s", r.Model, value)
		groups[groupKey] = append(groups[groupKey], r)
	}

	for _, reqs := range groups {
		if len(reqs) < 2 {
			continue
		}
		canonical := reqs[0]
		for _, dup := range reqs[1:] {
			if err := mergeInto(canonical.Model, dup.Model); err != nil {
				return fmt.Errorf("spbatch: merging duplicate GET result for request %s into %s: %w", dup.ID(), canonical.ID(), err)
			}
			retireModel(dup.Model)
		}
	}

	for _, r := range b.Requests() {
		if r.Method != MethodDELETE || !r.Responded() || r.ResponseStatus/100 != 2 || r.Model == nil {
			continue
		}
		retireModel(r.Model)
	}

	return nil
}

func mergeInto(canonical, dup DataModel) error {
	to, ok := canonical.(TransientObject)
	if !ok {
		return nil
	}
	return to.Merge(dup)
}

// retireModel removes a model from its owning collection and marks it
// deleted, if it supports those capabilities. A model that implements
// neither is left untouched — the caller didn't opt into reconciler-managed
// lifecycle for it.
func retireModel(model DataModel) {
	if parent, ok := model.(IDataModelParent); ok {
		if collection := parent.Parent(); collection != nil {
			_ = collection.Remove(model)
		}
	}
	if deletable, ok := model.(Deletable); ok {
		deletable.MarkDeleted()
	}
}
