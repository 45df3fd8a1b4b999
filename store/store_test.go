package store

import (
	"testing"

	"github.com/launix-de/cephosd/wire"
)

func testHoid(name string) wire.Hoid {
	return wire.Hoid{Pool: 1, Name: name}
}

func TestCreateAndLookupObject(t *testing.T) {
	s := New()
	hoid := testHoid("a")
	if _, ok := s.LookupObject(hoid); ok {
		t.Fatalf("object should not exist before creation")
	}
	obj := s.CreateObject(hoid)
	if obj.Hoid != hoid {
		t.Fatalf("created object has wrong hoid: %+v", obj.Hoid)
	}
	got, ok := s.LookupObject(hoid)
	if !ok || got != obj {
		t.Fatalf("lookup did not return the created object")
	}
}

func TestCreateObjectIdempotent(t *testing.T) {
	s := New()
	hoid := testHoid("a")
	first := s.CreateObject(hoid)
	first.Size = 42
	second := s.CreateObject(hoid)
	if second != first || second.Size != 42 {
		t.Fatalf("CreateObject must not overwrite an existing object")
	}
}

func TestUpsertBlockAlignment(t *testing.T) {
	obj := newObject(testHoid("a"))
	b1 := obj.UpsertBlock(0)
	b2 := obj.UpsertBlock(BlockSize)
	if b1.Offset%BlockSize != 0 || b2.Offset%BlockSize != 0 {
		t.Fatalf("block offsets must be block-aligned")
	}
	if b1 == b2 {
		t.Fatalf("distinct aligned offsets must yield distinct blocks")
	}
	again := obj.UpsertBlock(0)
	if again != b1 {
		t.Fatalf("UpsertBlock must return the existing block, not a new one")
	}
}

func TestFirstBlockAtOrAfter(t *testing.T) {
	obj := newObject(testHoid("a"))
	obj.UpsertBlock(0)
	obj.UpsertBlock(3 * BlockSize)

	b, ok := obj.FirstBlockAtOrAfter(BlockSize)
	if !ok || b.Offset != 3*BlockSize {
		t.Fatalf("expected lower-bound lookup to skip the hole to offset %d, got %+v ok=%v", 3*BlockSize, b, ok)
	}

	_, ok = obj.FirstBlockAtOrAfter(4 * BlockSize)
	if ok {
		t.Fatalf("expected no block at or after the end of the map")
	}
}

func TestDestroyClearsStore(t *testing.T) {
	s := New()
	obj := s.CreateObject(testHoid("a"))
	obj.UpsertBlock(0)
	if s.Len() != 1 || s.BytesHeld() != BlockSize {
		t.Fatalf("unexpected pre-destroy state: len=%d bytes=%d", s.Len(), s.BytesHeld())
	}
	s.Destroy()
	if s.Len() != 0 {
		t.Fatalf("expected empty store after Destroy, got len=%d", s.Len())
	}
}
