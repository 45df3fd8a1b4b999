package wire

// DecodeRequest decodes an OSD_OP front buffer into an OsdOpRequest.
// tid comes from the message header, not the buffer itself (step 1).
// Any error is ErrBufferShort or ErrMalformed, returned unwrapped (an
// unknown opcode is ErrMalformed); the caller must drop the request and
// must not retain the returned pointer, which is always nil on error.
func DecodeRequest(tid uint64, front []byte) (*OsdOpRequest, error) {
	c := newCursor(front)
	req := &OsdOpRequest{Tid: tid}

	// 2. spgid
	spgid, err := decodeSpgid(c)
	if err != nil {
		return nil, err
	}
	req.Spgid = spgid

	// 3. hoid.hash
	hash, err := c.u32()
	if err != nil {
		return nil, err
	}

	// 4. epoch
	req.Epoch, err = c.u32()
	if err != nil {
		return nil, err
	}

	// 5. flags
	req.Flags, err = c.u32()
	if err != nil {
		return nil, err
	}

	// 6. reqid: framed v2, contents skipped
	if err := skipFramed(c); err != nil {
		return nil, err
	}

	// 7. blkin_trace_info: fixed-size, skipped
	if err := c.skip(blkinTraceInfoSize); err != nil {
		return nil, err
	}

	// 8. client_inc: discarded
	if _, err := c.u32(); err != nil {
		return nil, err
	}

	// 9. mtime
	sec, err := c.u32()
	if err != nil {
		return nil, err
	}
	nsec, err := c.u32()
	if err != nil {
		return nil, err
	}
	req.Mtime = Timespec{Sec: sec, Nsec: nsec}

	// 10. oloc
	oloc, err := decodeOloc(c)
	if err != nil {
		return nil, err
	}
	req.Oloc = oloc

	// 11. oid.name
	name, err := c.lenPrefixedString()
	if err != nil {
		return nil, err
	}

	// 12. num_ops
	numOps, err := c.u16()
	if err != nil {
		return nil, err
	}
	if numOps > MaxOps {
		return nil, ErrMalformed
	}

	// 13. per-op raw_op records
	ops := make([]Op, numOps)
	for i := range ops {
		op, err := decodeOp(c)
		if err != nil {
			return nil, err
		}
		ops[i] = op
	}
	req.Ops = ops

	// 14. snapid
	snapid, err := c.u64()
	if err != nil {
		return nil, err
	}

	// 15. snap_seq, num_snaps, snaps[]
	req.SnapSeq, err = c.u64()
	if err != nil {
		return nil, err
	}
	numSnaps, err := c.u32()
	if err != nil {
		return nil, err
	}
	if numSnaps > MaxSnaps {
		return nil, ErrMalformed
	}
	snaps := make([]uint64, numSnaps)
	for i := range snaps {
		snaps[i], err = c.u64()
		if err != nil {
			return nil, err
		}
	}
	req.Snaps = snaps

	// 16. attempts
	req.Attempts, err = c.u32()
	if err != nil {
		return nil, err
	}

	// 17. features
	req.Features, err = c.u64()
	if err != nil {
		return nil, err
	}

	req.Hoid = Hoid{
		Pool:   int64(req.Spgid.Pgid.Pool),
		Hash:   hash,
		Snapid: snapid,
		Name:   name,
		Key:    "",
		Nspace: req.Oloc.Nspace,
	}

	return req, nil
}

func decodeSpgid(c *cursor) (Spgid, error) {
	_, _, end, err := c.startDecoding()
	if err != nil {
		return Spgid{}, err
	}
	pool, err := c.u64()
	if err != nil {
		return Spgid{}, err
	}
	seed, err := c.u32()
	if err != nil {
		return Spgid{}, err
	}
	preferred, err := c.i32()
	if err != nil {
		return Spgid{}, err
	}
	if err := c.finishDecoding(end); err != nil {
		return Spgid{}, err
	}
	shard, err := c.u8()
	if err != nil {
		return Spgid{}, err
	}
	return Spgid{
		Pgid:  Pgid{Pool: pool, Seed: seed, Preferred: preferred},
		Shard: shard,
	}, nil
}

func decodeOloc(c *cursor) (Oloc, error) {
	_, _, end, err := c.startDecoding()
	if err != nil {
		return Oloc{}, err
	}
	pool, err := c.i64()
	if err != nil {
		return Oloc{}, err
	}
	nspace, err := c.lenPrefixedString()
	if err != nil {
		return Oloc{}, err
	}
	if err := c.finishDecoding(end); err != nil {
		return Oloc{}, err
	}
	return Oloc{Pool: pool, Nspace: nspace}, nil
}

// skipFramed reads a start-decoding frame header and discards its
// body without interpreting it (used for reqid, whose contents this
// core never needs).
func skipFramed(c *cursor) error {
	_, _, end, err := c.startDecoding()
	if err != nil {
		return err
	}
	return c.finishDecoding(end)
}

// decodeOp reads one fixed-size raw_op record: u16 op, u32 flags, u32
// payload_len, then a 64-byte opcode-specific scratch area. The
// cursor is force-advanced past the full scratch area regardless of
// how many of its bytes the specific opcode actually uses, the same
// tolerate-forward-extension idea as the framed structs.
func decodeOp(c *cursor) (Op, error) {
	opcode, err := c.u16()
	if err != nil {
		return Op{}, err
	}
	flags, err := c.u32()
	if err != nil {
		return Op{}, err
	}
	payloadLen, err := c.u32()
	if err != nil {
		return Op{}, err
	}

	scratchStart := c.pos
	if err := c.need(rawOpScratchSize); err != nil {
		return Op{}, err
	}
	sc := newCursor(c.buf[scratchStart : scratchStart+rawOpScratchSize])

	op := Op{Op: Opcode(opcode), Flags: flags, IndataLen: payloadLen}

	switch op.Op {
	case OpRead, OpWrite, OpWriteFull, OpZero, OpTruncate:
		op.Extent.Offset, err = sc.u64()
		if err == nil {
			op.Extent.Length, err = sc.u64()
		}
		if err == nil {
			op.Extent.TruncateSize, err = sc.u64()
		}
		if err == nil {
			op.Extent.TruncateSeq, err = sc.u32()
		}
	case OpCall:
		op.Call.ClassLen, err = sc.u32()
		if err == nil {
			op.Call.MethodLen, err = sc.u32()
		}
		if err == nil {
			op.Call.IndataLen, err = sc.u32()
		}
	case OpWatch:
		op.Watch.Cookie, err = sc.u64()
		if err == nil {
			op.Watch.Ver, err = sc.u64()
		}
		if err == nil {
			op.Watch.Op, err = sc.u8()
		}
		if err == nil {
			op.Watch.Gen, err = sc.u32()
		}
	case OpNotify, OpNotifyAck:
		op.Notify.Cookie, err = sc.u64()
	case OpSetAllocHint:
		op.AllocHint.ExpectedObjectSize, err = sc.u64()
		if err == nil {
			op.AllocHint.ExpectedWriteSize, err = sc.u64()
		}
	case OpSetXattr, OpCmpXattr:
		op.Xattr.NameLen, err = sc.u32()
		if err == nil {
			op.Xattr.ValueLen, err = sc.u32()
		}
		if err == nil {
			op.Xattr.CmpOp, err = sc.u8()
		}
		if err == nil {
			op.Xattr.CmpMode, err = sc.u8()
		}
	case OpCopyFrom2:
		op.CopyFrom.Snapid, err = sc.u64()
		if err == nil {
			op.CopyFrom.SrcVersion, err = sc.u64()
		}
		if err == nil {
			op.CopyFrom.Flags, err = sc.u32()
		}
		if err == nil {
			op.CopyFrom.SrcFadviseFlags, err = sc.u32()
		}
	case OpStat, OpListWatchers, OpCreate, OpDelete:
		// no scratch fields
	default:
		return Op{}, ErrMalformed
	}
	if err != nil {
		return Op{}, err
	}

	c.pos = scratchStart + rawOpScratchSize
	return op, nil
}
