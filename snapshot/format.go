// Package snapshot implements an operator-triggered export of the live
// object store to S3, lz4-compressed. It is an out-of-band debug tool,
// unrelated to and not a substitute for Ceph's own pool-level snapshot
// mechanism (snapid/SnapSeq on the wire path) -- it exists purely so an
// operator can pull a point-in-time copy of what one OSD core is
// holding in memory. Grounded on the teacher's storage/persistence-s3.go
// S3 client setup and storage/persistence.go-style binary log framing.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/launix-de/cephosd/store"
	"github.com/launix-de/cephosd/wire"
)

// formatVersion guards the export's own binary layout, independent of
// the wire protocol's ReplyWireVersion.
const formatVersion = 1

// Encode serializes every live object in s into the export's flat
// binary framing: a version byte, then one record per object (hoid
// fields, size, mtime, block count, then each block's offset and raw
// bytes).
func Encode(s *store.Store) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(formatVersion)

	var encErr error
	s.Walk(func(obj *store.Object) bool {
		if err := encodeObject(&buf, obj); err != nil {
			encErr = err
			return false
		}
		return true
	})
	if encErr != nil {
		return nil, encErr
	}
	return buf.Bytes(), nil
}

func encodeObject(buf *bytes.Buffer, obj *store.Object) error {
	writeString(buf, obj.Hoid.Name)
	writeString(buf, obj.Hoid.Nspace)
	binary.Write(buf, binary.LittleEndian, obj.Hoid.Pool)
	binary.Write(buf, binary.LittleEndian, obj.Hoid.Hash)
	binary.Write(buf, binary.LittleEndian, obj.Hoid.Snapid)
	binary.Write(buf, binary.LittleEndian, obj.Size)
	binary.Write(buf, binary.LittleEndian, obj.Mtime.Sec)
	binary.Write(buf, binary.LittleEndian, obj.Mtime.Nsec)

	blocks := obj.Blocks()
	binary.Write(buf, binary.LittleEndian, uint32(len(blocks)))
	for _, b := range blocks {
		binary.Write(buf, binary.LittleEndian, b.Offset)
		buf.Write(b.Bytes[:])
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

// Decode parses bytes produced by Encode back into a freshly populated
// store, for restore/debug-inspection tooling.
func Decode(data []byte) (*store.Store, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("snapshot: empty export")
	}
	if data[0] != formatVersion {
		return nil, fmt.Errorf("snapshot: unsupported format version %d", data[0])
	}
	r := bytes.NewReader(data[1:])
	s := store.New()

	for r.Len() > 0 {
		hoid, size, mtime, blocks, err := decodeObject(r)
		if err != nil {
			return nil, err
		}
		obj := s.CreateObject(hoid)
		obj.Size = size
		obj.Mtime = mtime
		for _, b := range blocks {
			dst := obj.UpsertBlock(b.Offset)
			*dst = b
		}
	}
	return s, nil
}

func decodeObject(r *bytes.Reader) (wire.Hoid, uint64, wire.Timespec, []store.Block, error) {
	var hoid wire.Hoid
	var size uint64
	var mtime wire.Timespec

	name, err := readString(r)
	if err != nil {
		return hoid, 0, mtime, nil, err
	}
	nspace, err := readString(r)
	if err != nil {
		return hoid, 0, mtime, nil, err
	}
	hoid.Name = name
	hoid.Nspace = nspace

	if err := binary.Read(r, binary.LittleEndian, &hoid.Pool); err != nil {
		return hoid, 0, mtime, nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &hoid.Hash); err != nil {
		return hoid, 0, mtime, nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &hoid.Snapid); err != nil {
		return hoid, 0, mtime, nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return hoid, 0, mtime, nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &mtime.Sec); err != nil {
		return hoid, 0, mtime, nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &mtime.Nsec); err != nil {
		return hoid, 0, mtime, nil, err
	}

	var numBlocks uint32
	if err := binary.Read(r, binary.LittleEndian, &numBlocks); err != nil {
		return hoid, 0, mtime, nil, err
	}
	blocks := make([]store.Block, numBlocks)
	for i := range blocks {
		if err := binary.Read(r, binary.LittleEndian, &blocks[i].Offset); err != nil {
			return hoid, 0, mtime, nil, err
		}
		if _, err := r.Read(blocks[i].Bytes[:]); err != nil {
			return hoid, 0, mtime, nil, err
		}
	}
	return hoid, size, mtime, blocks, nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}
