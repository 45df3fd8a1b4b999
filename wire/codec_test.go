package wire

import (
	"bytes"
	"testing"
)

// encodeRequest is the test-only mirror encoder used to build front
// buffers for DecodeRequest round-trip tests, in the same spirit as
// storage/storage-sparse.go encoding and decoding its own structure
// in one file.
func encodeRequest(req *OsdOpRequest) []byte {
	w := &writer{}

	lenPos := w.startEncoding(PgidVersion, 0)
	w.u64(req.Spgid.Pgid.Pool)
	w.u32(req.Spgid.Pgid.Seed)
	w.i32(req.Spgid.Pgid.Preferred)
	w.finishEncoding(lenPos)
	w.u8(req.Spgid.Shard)

	w.u32(req.Hoid.Hash)
	w.u32(req.Epoch)
	w.u32(req.Flags)

	reqidPos := w.startEncoding(ReqidVersion, 0)
	w.finishEncoding(reqidPos)

	w.zero(blkinTraceInfoSize)

	w.u32(0) // client_inc

	w.u32(req.Mtime.Sec)
	w.u32(req.Mtime.Nsec)

	olocPos := w.startEncoding(OlocVersion, 0)
	w.i64(req.Oloc.Pool)
	w.lenPrefixedString(req.Oloc.Nspace)
	w.finishEncoding(olocPos)

	w.lenPrefixedString(req.Hoid.Name)

	w.u16(uint16(len(req.Ops)))
	for i := range req.Ops {
		encodeOpForTest(w, &req.Ops[i])
	}

	w.u64(req.Hoid.Snapid)
	w.u64(req.SnapSeq)
	w.u32(uint32(len(req.Snaps)))
	for _, s := range req.Snaps {
		w.u64(s)
	}

	w.u32(req.Attempts)
	w.u64(req.Features)

	return w.buf
}

func encodeOpForTest(w *writer, op *Op) {
	w.u16(uint16(op.Op))
	w.u32(op.Flags)
	w.u32(op.IndataLen)
	start := len(w.buf)
	switch op.Op {
	case OpRead, OpWrite, OpWriteFull, OpZero, OpTruncate:
		w.u64(op.Extent.Offset)
		w.u64(op.Extent.Length)
		w.u64(op.Extent.TruncateSize)
		w.u32(op.Extent.TruncateSeq)
	case OpCall:
		w.u32(op.Call.ClassLen)
		w.u32(op.Call.MethodLen)
		w.u32(op.Call.IndataLen)
	case OpWatch:
		w.u64(op.Watch.Cookie)
		w.u64(op.Watch.Ver)
		w.u8(op.Watch.Op)
		w.u32(op.Watch.Gen)
	case OpNotify, OpNotifyAck:
		w.u64(op.Notify.Cookie)
	case OpSetAllocHint:
		w.u64(op.AllocHint.ExpectedObjectSize)
		w.u64(op.AllocHint.ExpectedWriteSize)
	case OpSetXattr, OpCmpXattr:
		w.u32(op.Xattr.NameLen)
		w.u32(op.Xattr.ValueLen)
		w.u8(op.Xattr.CmpOp)
		w.u8(op.Xattr.CmpMode)
	case OpCopyFrom2:
		w.u64(op.CopyFrom.Snapid)
		w.u64(op.CopyFrom.SrcVersion)
		w.u32(op.CopyFrom.Flags)
		w.u32(op.CopyFrom.SrcFadviseFlags)
	}
	w.zero(rawOpScratchSize - (len(w.buf) - start))
}

func sampleRequest() *OsdOpRequest {
	return &OsdOpRequest{
		Tid:      42,
		Features: 0xdeadbeef,
		Epoch:    7,
		Spgid:    Spgid{Pgid: Pgid{Pool: 3, Seed: 9, Preferred: -1}, Shard: 2},
		Flags:    FlagAck,
		Attempts: 1,
		Mtime:    Timespec{Sec: 111, Nsec: 222},
		Oloc:     Oloc{Pool: 3, Nspace: "ns"},
		Hoid:     Hoid{Pool: 3, Hash: 55, Snapid: 0, Name: "obj-a", Nspace: "ns"},
		SnapSeq:  4,
		Snaps:    []uint64{1, 2, 3},
		Ops: []Op{
			{Op: OpWrite, Flags: 0, IndataLen: 4096, Extent: ExtentPayload{Offset: 0, Length: 4096}},
			{Op: OpStat, Flags: FlagFailOk},
		},
	}
}

func TestDecodeRequestRoundTrip(t *testing.T) {
	want := sampleRequest()
	buf := encodeRequest(want)

	got, err := DecodeRequest(want.Tid, buf)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}

	if got.Tid != want.Tid || got.Epoch != want.Epoch || got.Flags != want.Flags {
		t.Fatalf("header fields mismatch: %+v vs %+v", got, want)
	}
	if got.Spgid != want.Spgid {
		t.Fatalf("spgid mismatch: %+v vs %+v", got.Spgid, want.Spgid)
	}
	if got.Hoid.Name != want.Hoid.Name || got.Hoid.Hash != want.Hoid.Hash || got.Hoid.Nspace != want.Hoid.Nspace {
		t.Fatalf("hoid mismatch: %+v vs %+v", got.Hoid, want.Hoid)
	}
	if got.Hoid.Pool != int64(want.Spgid.Pgid.Pool) {
		t.Fatalf("hoid.pool should derive from spgid.pool: got %d want %d", got.Hoid.Pool, want.Spgid.Pgid.Pool)
	}
	if len(got.Ops) != len(want.Ops) {
		t.Fatalf("op count mismatch: %d vs %d", len(got.Ops), len(want.Ops))
	}
	if got.Ops[0].Extent != want.Ops[0].Extent {
		t.Fatalf("extent mismatch: %+v vs %+v", got.Ops[0].Extent, want.Ops[0].Extent)
	}
	if !got.Ops[1].FailOk() {
		t.Fatalf("expected FAILOK preserved on op 1")
	}
	if len(got.Snaps) != 3 || got.Snaps[2] != 3 {
		t.Fatalf("snaps mismatch: %+v", got.Snaps)
	}
}

func TestDecodeRequestRejectsTooManyOps(t *testing.T) {
	req := sampleRequest()
	req.Ops = make([]Op, MaxOps+1)
	for i := range req.Ops {
		req.Ops[i] = Op{Op: OpStat}
	}
	buf := encodeRequest(req)
	if _, err := DecodeRequest(req.Tid, buf); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed for num_ops > MaxOps, got %v", err)
	}
}

func TestDecodeRequestRejectsTooManySnaps(t *testing.T) {
	req := sampleRequest()
	req.Snaps = make([]uint64, MaxSnaps+1)
	buf := encodeRequest(req)
	if _, err := DecodeRequest(req.Tid, buf); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed for num_snaps > MaxSnaps, got %v", err)
	}
}

func TestDecodeRequestBufferShort(t *testing.T) {
	req := sampleRequest()
	buf := encodeRequest(req)
	if _, err := DecodeRequest(req.Tid, buf[:len(buf)-1]); err == nil {
		t.Fatalf("expected an error when the buffer is truncated")
	}
}

func TestDecodeOpUnknownOpcodeMalformed(t *testing.T) {
	req := sampleRequest()
	req.Ops = []Op{{Op: Opcode(9999)}}
	buf := encodeRequest(req)
	if _, err := DecodeRequest(req.Tid, buf); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed for unknown opcode, got %v", err)
	}
}

func TestEncodeReplyFraming(t *testing.T) {
	req := sampleRequest()
	req.Ops[0].Rval = 0
	req.Ops[0].OutData = bytes.Repeat([]byte{0xA5}, 4096)
	req.Ops[1].Rval = -2

	front, data, err := EncodeReply(req, 8, 0)
	if err != nil {
		t.Fatalf("EncodeReply: %v", err)
	}
	if len(data) != 4096 {
		t.Fatalf("expected 4096 bytes of reply data, got %d", len(data))
	}

	// name(4+5) + pgid(17) + flags(8) + result(4) + bad_replay(12) +
	// epoch(4) + num_ops(4) + ops(2*32) + attempts(4) + rvals(2*4) +
	// replay_version(12) + user_version(8) + do_redirect(1)
	want := 4 + 5 + 17 + 8 + 4 + 12 + 4 + 4 + 2*32 + 4 + 2*4 + 12 + 8 + 1
	if len(front) != want {
		t.Fatalf("reply front length = %d, want %d", len(front), want)
	}
}

func TestEncodeReplyDoRedirectAlwaysZero(t *testing.T) {
	req := sampleRequest()
	front, _, err := EncodeReply(req, 1, 0)
	if err != nil {
		t.Fatalf("EncodeReply: %v", err)
	}
	if front[len(front)-1] != 0 {
		t.Fatalf("do_redirect must always be encoded as 0")
	}
}

func TestBytesCursorNext(t *testing.T) {
	c := NewBytesCursor([]byte("hello world"))
	got, err := c.Next(5)
	if err != nil || string(got) != "hello" {
		t.Fatalf("Next(5) = %q, %v", got, err)
	}
	if c.Remaining() != 6 {
		t.Fatalf("Remaining() = %d, want 6", c.Remaining())
	}
	rest, err := c.Next(100)
	if err != nil || string(rest) != " world" {
		t.Fatalf("Next(100) = %q, %v", rest, err)
	}
	if c.Remaining() != 0 {
		t.Fatalf("Remaining() = %d, want 0", c.Remaining())
	}
}
