package model

import "testing"

func TestEntity_KeyValueAndSetFields(t *testing.T) {
	e := NewEntity(nil)
	if _, ok := e.KeyValue("Id"); ok {
		t.Error("expected no value before setFields")
	}
	e.setFields(map[string]interface{}{"Id": float64(42), "Title": "x"})
	v, ok := e.KeyValue("Id")
	if !ok || v != "42" {
		t.Errorf("expected Id=42, got %q ok=%v", v, ok)
	}
}

func TestEntity_MergeKeepsCanonicalOnCollision(t *testing.T) {
	canonical := NewEntity(nil)
	canonical.setFields(map[string]interface{}{"Id": "1", "Title": "keep-me"})
	dup := NewEntity(nil)
	dup.setFields(map[string]interface{}{"Id": "1", "Title": "overwritten", "Extra": "new"})

	if err := canonical.Merge(dup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := canonical.KeyValue("Title"); v != "keep-me" {
		t.Errorf("expected canonical's Title to survive, got %q", v)
	}
	if v, _ := canonical.KeyValue("Extra"); v != "new" {
		t.Errorf("expected the duplicate's unique field to be folded in, got %q", v)
	}
}

func TestEntity_MarkDeletedAndParent(t *testing.T) {
	col := NewCollection()
	e := NewEntity(col)
	col.Add(e)

	if e.Parent() == nil {
		t.Fatal("expected entity to report its parent collection")
	}
	e.MarkDeleted()
	if !e.Deleted() {
		t.Error("expected Deleted() to report true after MarkDeleted")
	}
}
