// Package ops implements the per-op handlers (WRITE, READ, STAT) and
// the op dispatcher that drives them against a store.Store, per
// §4.3-§4.4 of the core's component design.
package ops

import (
	"encoding/binary"

	"github.com/launix-de/cephosd/store"
	"github.com/launix-de/cephosd/wire"
)

// Options carries the per-connection passthrough switches the
// handlers consult. Today this is exactly the NOOP_WRITE benchmarking
// shortcut; see config.Options for how it is parsed from argv.
type Options struct {
	NoopWrite bool
}

// noopWriteThreshold is the minimum extent length NOOP_WRITE
// suppresses, per §4.3: "NOOP_WRITE and extent.length >= 4096".
const noopWriteThreshold = 4096

// handleWrite implements §4.3 WRITE: extend the addressed object to
// cover the write range and copy payload bytes from data into the
// object's blocks.
func handleWrite(s *store.Store, req *wire.OsdOpRequest, op *wire.Op, data wire.DataCursor, opts Options) int32 {
	extent := op.Extent

	if extent.Length == 0 {
		return 0
	}
	if opts.NoopWrite && extent.Length >= noopWriteThreshold {
		if _, err := data.Next(int(extent.Length)); err != nil {
			return ENOMEM
		}
		return 0
	}

	obj, ok := s.LookupObject(req.Hoid)
	if !ok {
		obj = s.CreateObject(req.Hoid)
	}

	dstOff := extent.Offset
	remaining := extent.Length
	wrote := false

	for remaining > 0 {
		blkOff := dstOff &^ (store.BlockSize - 1)
		blk := obj.UpsertBlock(blkOff)

		inBlock := dstOff - blkOff
		chunk := store.BlockSize - inBlock
		if uint64(chunk) > remaining {
			chunk = remaining
		}

		src, err := data.Next(int(chunk))
		if err != nil {
			return ENOMEM
		}
		if len(src) == 0 {
			break // cursor exhausted short of the declared length
		}
		copy(blk.Bytes[inBlock:], src)

		n := uint64(len(src))
		dstOff += n
		remaining -= n
		wrote = true

		if uint64(len(src)) < chunk {
			break // short read from the cursor: stop, as above
		}
	}

	if wrote {
		obj.Mtime = req.Mtime
		if dstOff > obj.Size {
			obj.Size = dstOff
		}
	}
	return 0
}

// handleRead implements §4.3 READ: produce up to extent.Length bytes
// from extent.Offset, zero-filling holes and truncating at EOF rather
// than zero-padding past it.
func handleRead(s *store.Store, req *wire.OsdOpRequest, op *wire.Op) int32 {
	obj, ok := s.LookupObject(req.Hoid)
	if !ok {
		return ENOENT
	}
	if op.Extent.Offset >= obj.Size {
		op.OutData = nil
		return 0
	}

	length := op.Extent.Length
	if maxLen := obj.Size - op.Extent.Offset; length > maxLen {
		length = maxLen
	}
	out := make([]byte, length)

	cursor := op.Extent.Offset
	end := op.Extent.Offset + length
	alignedFloor := cursor &^ (store.BlockSize - 1)

	blk, has := obj.FirstBlockAtOrAfter(alignedFloor)
	for cursor < end {
		if !has || blk.Offset >= end {
			break // no more blocks in range: the remaining tail is zero-fill, already the case
		}
		if blk.Offset > cursor {
			// gap before this block: already zero in out, just advance
			gap := blk.Offset - cursor
			if gap > end-cursor {
				gap = end - cursor
			}
			cursor += gap
			if cursor >= end {
				break
			}
		}
		blkEnd := blk.Offset + store.BlockSize
		copyEnd := blkEnd
		if copyEnd > end {
			copyEnd = end
		}
		if cursor < copyEnd {
			srcStart := cursor - blk.Offset
			srcEnd := copyEnd - blk.Offset
			copy(out[cursor-op.Extent.Offset:], blk.Bytes[srcStart:srcEnd])
			cursor = copyEnd
		}
		blk, has = obj.FirstBlockAtOrAfter(blk.Offset + store.BlockSize)
	}

	op.OutData = out
	return 0
}

// handleStat implements §4.3 STAT: a 16-byte (size, mtime) payload.
func handleStat(s *store.Store, req *wire.OsdOpRequest, op *wire.Op) int32 {
	obj, ok := s.LookupObject(req.Hoid)
	if !ok {
		return ENOENT
	}
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:8], obj.Size)
	binary.LittleEndian.PutUint32(out[8:12], obj.Mtime.Sec)
	binary.LittleEndian.PutUint32(out[12:16], obj.Mtime.Nsec)
	op.OutData = out
	return 0
}
