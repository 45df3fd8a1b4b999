package snapshot

import (
	"testing"

	"github.com/launix-de/cephosd/store"
	"github.com/launix-de/cephosd/wire"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := store.New()
	hoid := wire.Hoid{Pool: 1, Name: "obj-a", Nspace: "ns", Hash: 42}
	obj := s.CreateObject(hoid)
	obj.Size = 130048
	obj.Mtime = wire.Timespec{Sec: 100, Nsec: 200}
	b := obj.UpsertBlock(0)
	b.Bytes[0] = 0x11
	b2 := obj.UpsertBlock(store.BlockSize * 2)
	b2.Bytes[5] = 0x22

	raw, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	restored, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	obj2, ok := restored.LookupObject(hoid)
	if !ok {
		t.Fatalf("expected object to round-trip")
	}
	if obj2.Size != obj.Size || obj2.Mtime != obj.Mtime {
		t.Fatalf("metadata mismatch: got %+v want size=%d mtime=%+v", obj2, obj.Size, obj.Mtime)
	}
	rb, ok := obj2.LookupBlock(0)
	if !ok || rb.Bytes[0] != 0x11 {
		t.Fatalf("expected block 0 to round-trip with byte 0x11")
	}
	rb2, ok := obj2.LookupBlock(store.BlockSize * 2)
	if !ok || rb2.Bytes[5] != 0x22 {
		t.Fatalf("expected block at 2*BlockSize to round-trip with byte 0x22")
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	if _, err := Decode([]byte{99}); err == nil {
		t.Fatalf("expected an error for an unsupported format version")
	}
}

func TestDecodeRejectsEmpty(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatalf("expected an error for empty input")
	}
}
