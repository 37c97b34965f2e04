package slotmap

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"testing"
)

func TestInsertGetRemove(t *testing.T) {
	s := NewStore[string]()
	id := s.Insert("a")
	if v, ok := s.Get(id); !ok || v != "a" {
		t.Fatalf("expected to get back a, got %q ok=%v", v, ok)
	}
	if !s.Remove(id) {
		t.Fatalf("expected remove to succeed")
	}
	if _, ok := s.Get(id); ok {
		t.Fatalf("stale id must miss after removal")
	}
}

func TestGenerationBumpOnReuse(t *testing.T) {
	s := NewStore[int]()
	id1 := s.Insert(1)
	s.Remove(id1)
	id2 := s.Insert(2)
	if id1.Index() != id2.Index() {
		t.Fatalf("expected slot reuse")
	}
	if id1.Gen() == id2.Gen() {
		t.Fatalf("reused slot must carry a new generation")
	}
	if _, ok := s.Get(id1); ok {
		t.Fatalf("old generation must not resolve")
	}
}

func TestSnapshotRestorePreservesIDs(t *testing.T) {
	s := NewStore[int]()
	a := s.Insert(10)
	b := s.Insert(20)
	s.Remove(a)

	r := RestoreStore(s.Snapshot())
	if _, ok := r.Get(a); ok {
		t.Fatalf("dead id must stay dead after restore")
	}
	if v, ok := r.Get(b); !ok || v != 20 {
		t.Fatalf("live id must survive restore, got %v ok=%v", v, ok)
	}
	c := r.Insert(30)
	if c.Index() != a.Index() {
		t.Fatalf("restored free list must reuse the dead slot")
	}
	if c.Gen() == a.Gen() {
		t.Fatalf("reused slot must not resurrect the old generation")
	}
}

func TestIDGobAndJSONRoundTrip(t *testing.T) {
	s := NewStore[int]()
	s.Insert(1)
	id := s.Insert(2)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(id); err != nil {
		t.Fatalf("gob encode: %v", err)
	}
	var gotGob ID[int]
	if err := gob.NewDecoder(&buf).Decode(&gotGob); err != nil {
		t.Fatalf("gob decode: %v", err)
	}
	if gotGob != id {
		t.Fatalf("gob round trip changed the id: %v != %v", gotGob, id)
	}

	js, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	var gotJSON ID[int]
	if err := json.Unmarshal(js, &gotJSON); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if gotJSON != id {
		t.Fatalf("json round trip changed the id: %v != %v", gotJSON, id)
	}
}
