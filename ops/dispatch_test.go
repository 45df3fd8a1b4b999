package ops

import (
	"bytes"
	"testing"

	"github.com/launix-de/cephosd/store"
	"github.com/launix-de/cephosd/wire"
)

func newReq(hoid wire.Hoid, opsList ...wire.Op) *wire.OsdOpRequest {
	return &wire.OsdOpRequest{
		Hoid:  hoid,
		Mtime: wire.Timespec{Sec: 100, Nsec: 0},
		Ops:   opsList,
	}
}

func TestS1EmptyWriteIsNoOp(t *testing.T) {
	s := store.New()
	hoid := wire.Hoid{Name: "o1"}
	req := newReq(hoid, wire.Op{Op: wire.OpWrite, Extent: wire.ExtentPayload{Offset: 7, Length: 0}})

	result := Dispatch(s, req, wire.NewBytesCursor(nil), Options{})

	if result != 0 {
		t.Fatalf("expected result 0, got %d", result)
	}
	if req.Ops[0].Rval != 0 {
		t.Fatalf("expected rval 0, got %d", req.Ops[0].Rval)
	}
	if _, ok := s.LookupObject(hoid); ok {
		t.Fatalf("empty write must not create an object")
	}
}

func TestS2AlignedWriteThenRead(t *testing.T) {
	s := store.New()
	hoid := wire.Hoid{Name: "o2"}
	payload := bytes.Repeat([]byte{0xA5}, 4096)

	writeReq := newReq(hoid, wire.Op{Op: wire.OpWrite, Extent: wire.ExtentPayload{Offset: 0, Length: 4096}})
	Dispatch(s, writeReq, wire.NewBytesCursor(payload), Options{})

	readReq := newReq(hoid, wire.Op{Op: wire.OpRead, Extent: wire.ExtentPayload{Offset: 0, Length: 4096}})
	result := Dispatch(s, readReq, wire.NewBytesCursor(nil), Options{})

	if result != 0 {
		t.Fatalf("expected result 0, got %d", result)
	}
	if !bytes.Equal(readReq.Ops[0].OutData, payload) {
		t.Fatalf("read data does not match write payload")
	}

	obj, ok := s.LookupObject(hoid)
	if !ok || obj.Size != 4096 {
		t.Fatalf("expected size 4096, got ok=%v size=%d", ok, obj.Size)
	}

	statReq := newReq(hoid, wire.Op{Op: wire.OpStat})
	Dispatch(s, statReq, wire.NewBytesCursor(nil), Options{})
	if statReq.Ops[0].Rval != 0 {
		t.Fatalf("stat failed: %d", statReq.Ops[0].Rval)
	}
}

func TestS3SparseReadAcrossHole(t *testing.T) {
	s := store.New()
	hoid := wire.Hoid{Name: "o3"}

	w1 := newReq(hoid, wire.Op{Op: wire.OpWrite, Extent: wire.ExtentPayload{Offset: 0, Length: 1024}})
	Dispatch(s, w1, wire.NewBytesCursor(bytes.Repeat([]byte{0x11}, 1024)), Options{})

	w2 := newReq(hoid, wire.Op{Op: wire.OpWrite, Extent: wire.ExtentPayload{Offset: 131072, Length: 1024}})
	Dispatch(s, w2, wire.NewBytesCursor(bytes.Repeat([]byte{0x22}, 1024)), Options{})

	r := newReq(hoid, wire.Op{Op: wire.OpRead, Extent: wire.ExtentPayload{Offset: 0, Length: 132096}})
	Dispatch(s, r, wire.NewBytesCursor(nil), Options{})

	out := r.Ops[0].OutData
	if len(out) != 132096 {
		t.Fatalf("expected 132096 bytes, got %d", len(out))
	}
	if !bytes.Equal(out[:1024], bytes.Repeat([]byte{0x11}, 1024)) {
		t.Fatalf("first 1024 bytes mismatch")
	}
	if !bytes.Equal(out[1024:131072], bytes.Repeat([]byte{0x00}, 130048)) {
		t.Fatalf("hole region not zero-filled")
	}
	if !bytes.Equal(out[131072:132096], bytes.Repeat([]byte{0x22}, 1024)) {
		t.Fatalf("last 1024 bytes mismatch")
	}

	obj, _ := s.LookupObject(hoid)
	if obj.Size != 132096 {
		t.Fatalf("expected size 132096, got %d", obj.Size)
	}
}

func TestS4ReadPastEOFTruncates(t *testing.T) {
	s := store.New()
	hoid := wire.Hoid{Name: "o4"}
	w := newReq(hoid, wire.Op{Op: wire.OpWrite, Extent: wire.ExtentPayload{Offset: 0, Length: 1000}})
	Dispatch(s, w, wire.NewBytesCursor(bytes.Repeat([]byte{0x7}, 1000)), Options{})

	r := newReq(hoid, wire.Op{Op: wire.OpRead, Extent: wire.ExtentPayload{Offset: 500, Length: 1000}})
	Dispatch(s, r, wire.NewBytesCursor(nil), Options{})

	if len(r.Ops[0].OutData) != 500 {
		t.Fatalf("expected 500 bytes (truncated at EOF), got %d", len(r.Ops[0].OutData))
	}
}

func TestS5StatOnMissingObject(t *testing.T) {
	s := store.New()
	req := newReq(wire.Hoid{Name: "missing"}, wire.Op{Op: wire.OpStat})
	result := Dispatch(s, req, wire.NewBytesCursor(nil), Options{})
	if result != ENOENT {
		t.Fatalf("expected top-level result ENOENT, got %d", result)
	}
	if req.Ops[0].Rval != ENOENT {
		t.Fatalf("expected rval ENOENT, got %d", req.Ops[0].Rval)
	}
	if req.Ops[0].OutData != nil {
		t.Fatalf("expected no data segment on ENOENT")
	}
}

func TestS6FailokShortCircuit(t *testing.T) {
	s := store.New()
	hoid := wire.Hoid{Name: "o6"}
	payload := bytes.Repeat([]byte{0x9}, 100)

	req := newReq(hoid,
		wire.Op{Op: wire.OpStat, Flags: wire.FlagFailOk},
		wire.Op{Op: wire.OpWrite, Extent: wire.ExtentPayload{Offset: 0, Length: 100}},
		wire.Op{Op: wire.OpRead, Extent: wire.ExtentPayload{Offset: 0, Length: 100}},
	)
	result := Dispatch(s, req, wire.NewBytesCursor(payload), Options{})

	if result != 0 {
		t.Fatalf("expected top-level result 0, got %d", result)
	}
	wantRvals := []int32{ENOENT, 0, 0}
	for i, want := range wantRvals {
		if req.Ops[i].Rval != want {
			t.Fatalf("op %d rval = %d, want %d", i, req.Ops[i].Rval, want)
		}
	}
	if !bytes.Equal(req.Ops[2].OutData, payload) {
		t.Fatalf("read data does not match write payload")
	}
}

func TestFailokDoesNotSuppressTransient(t *testing.T) {
	// checks the classification Dispatch uses to decide whether FAILOK
	// may suppress a result: EOPNOTSUPP is not transient, while EAGAIN
	// and EINPROGRESS are, per §4.4 step 3.
	if isTransient(EOPNOTSUPP) {
		t.Fatalf("EOPNOTSUPP must not be treated as transient")
	}
	if !isTransient(EAGAIN) || !isTransient(EINPROGRESS) {
		t.Fatalf("EAGAIN/EINPROGRESS must be treated as transient")
	}
}

func TestWriteFullIsUnsupported(t *testing.T) {
	s := store.New()
	hoid := wire.Hoid{Name: "o8"}
	req := newReq(hoid, wire.Op{Op: wire.OpWriteFull, Extent: wire.ExtentPayload{Offset: 0, Length: 4096}})

	result := Dispatch(s, req, wire.NewBytesCursor(bytes.Repeat([]byte{0x1}, 4096)), Options{})

	if result != EOPNOTSUPP {
		t.Fatalf("expected EOPNOTSUPP, got %d", result)
	}
	if _, ok := s.LookupObject(hoid); ok {
		t.Fatalf("an unsupported op must not touch the store")
	}
}

func TestNoopWriteSkipsStore(t *testing.T) {
	s := store.New()
	hoid := wire.Hoid{Name: "o7"}
	payload := bytes.Repeat([]byte{0xFF}, 8192)

	req := newReq(hoid, wire.Op{Op: wire.OpWrite, Extent: wire.ExtentPayload{Offset: 0, Length: 8192}})
	result := Dispatch(s, req, wire.NewBytesCursor(payload), Options{NoopWrite: true})

	if result != 0 {
		t.Fatalf("expected result 0, got %d", result)
	}
	if _, ok := s.LookupObject(hoid); ok {
		t.Fatalf("NOOP_WRITE must not touch the store")
	}
}
