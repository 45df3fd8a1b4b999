package wire

const replyOpScratchSize = 32

// EncodeReply assembles an OSD_OPREPLY front buffer and its trailing
// data segment for req, given the OSD map epoch and the already
// computed top-level result (the dispatcher's first non-short-circuited
// op result, or 0). tid is carried by the message header, not this
// buffer, per the reply layout table's "via header" annotation.
//
// Each op's OutData (populated by the op handlers during dispatch) is
// appended to the returned data slice in op order; the sum of their
// lengths is the message header's data_len.
func EncodeReply(req *OsdOpRequest, epoch uint32, result int32) (front []byte, data []byte, err error) {
	w := &writer{}

	w.lenPrefixedString(req.Hoid.Name)

	// pgid: version=1; pool, seed, preferred=-1. Listed as a fixed
	// 1+8+4+4 byte field, not a full start-decoding frame.
	w.u8(PgidVersion)
	w.u64(req.Spgid.Pgid.Pool)
	w.u32(req.Spgid.Pgid.Seed)
	w.i32(-1)

	ackType := FlagAck | FlagOndisk
	replyFlags := uint64(req.Flags&^(FlagOndisk|FlagOnnvram|FlagAck)) | uint64(ackType)
	w.u64(replyFlags)

	w.i32(result)

	w.zero(12) // bad_replay_version

	w.u32(epoch)
	w.u32(uint32(len(req.Ops)))

	for i := range req.Ops {
		if err := encodeOpScratch(w, &req.Ops[i]); err != nil {
			return nil, nil, err
		}
	}

	w.u32(req.Attempts)

	for i := range req.Ops {
		w.i32(req.Ops[i].Rval)
	}

	w.zero(12) // replay_version
	w.u64(0)   // user_version
	w.u8(0)    // do_redirect: always 0, redirect encoding is unimplemented

	var dataChain []byte
	for i := range req.Ops {
		if len(req.Ops[i].OutData) > 0 {
			dataChain = append(dataChain, req.Ops[i].OutData...)
		}
	}

	return w.buf, dataChain, nil
}

func encodeOpScratch(w *writer, op *Op) error {
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
		w.u64(0) // ver is always reported as 0 in the reply
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
	case OpStat, OpListWatchers, OpCreate, OpDelete:
		// no scratch fields
	default:
		// Unknown opcode: zero payload length, upstream should have
		// rejected this earlier (decode already refuses unknown
		// opcodes, so this is unreachable in practice).
	}
	written := len(w.buf) - start
	if written > replyOpScratchSize {
		return ErrMalformed
	}
	w.zero(replyOpScratchSize - written)
	return nil
}
