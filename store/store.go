// Package store implements the hobject-keyed object/block store: an
// ordered map of objects, each holding an ordered map of fixed-size
// blocks. Single-threaded by design (see §5 of the core's concurrency
// model): the dispatcher is the only mutator and it never yields
// mid-request, so no lock guards these maps.
package store

import (
	"errors"

	"github.com/google/btree"
	"github.com/launix-de/cephosd/wire"
)

// BlockSize is a private store parameter; nothing in the wire protocol
// exposes it.
const BlockSize = 1 << 16

// ErrNotFound names the NotFound error kind. No function returns it:
// the op handlers (READ, STAT) report a missing object as the ENOENT
// op result instead.
var ErrNotFound = errors.New("store: object not found")

// Block is a fixed BlockSize chunk of an object's content, zero-filled
// at allocation and keyed by its block-aligned offset.
type Block struct {
	Offset uint64
	Bytes  [BlockSize]byte
}

func blockLess(a, b *Block) bool { return a.Offset < b.Offset }

// Object holds one hobject's content as a sparse, ordered map of
// blocks, plus its logical size and last-modified time.
type Object struct {
	Hoid   wire.Hoid
	blocks *btree.BTreeG[*Block]
	Size   uint64
	Mtime  wire.Timespec
}

func newObject(hoid wire.Hoid) *Object {
	return &Object{
		Hoid:   hoid,
		blocks: btree.NewG(32, blockLess),
	}
}

// LookupBlock returns the block at the given aligned offset, if any.
func (o *Object) LookupBlock(alignedOff uint64) (*Block, bool) {
	return o.blocks.Get(&Block{Offset: alignedOff})
}

// UpsertBlock returns the block at alignedOff, creating a zero-filled
// one if absent.
func (o *Object) UpsertBlock(alignedOff uint64) *Block {
	if b, ok := o.blocks.Get(&Block{Offset: alignedOff}); ok {
		return b
	}
	b := &Block{Offset: alignedOff}
	o.blocks.ReplaceOrInsert(b)
	return b
}

// Blocks returns every block in the object, ordered by offset, for use
// by the snapshot exporter.
func (o *Object) Blocks() []*Block {
	out := make([]*Block, 0, o.blocks.Len())
	o.blocks.Ascend(func(b *Block) bool {
		out = append(out, b)
		return true
	})
	return out
}

// FirstBlockAtOrAfter returns the block with the smallest offset that
// is >= alignedOff, the lower-bound lookup READ's sparse-hole
// detection relies on.
func (o *Object) FirstBlockAtOrAfter(alignedOff uint64) (*Block, bool) {
	var found *Block
	o.blocks.AscendGreaterOrEqual(&Block{Offset: alignedOff}, func(b *Block) bool {
		found = b
		return false // stop at the first match
	})
	if found == nil {
		return nil, false
	}
	return found, true
}

func hoidLess(a, b wire.Hoid) bool { return a.Less(b) }

// Store is the single process-wide object index, ordered by hoid.
type Store struct {
	objects *btree.BTreeG[*objEntry]
}

// objEntry wraps Object so the btree orders on Hoid without requiring
// Object itself to carry a Less method (wire.Hoid already does).
type objEntry struct {
	hoid wire.Hoid
	obj  *Object
}

func entryLess(a, b *objEntry) bool { return hoidLess(a.hoid, b.hoid) }

func New() *Store {
	return &Store{objects: btree.NewG(32, entryLess)}
}

// LookupObject returns the object for hoid, if it exists.
func (s *Store) LookupObject(hoid wire.Hoid) (*Object, bool) {
	e, ok := s.objects.Get(&objEntry{hoid: hoid})
	if !ok {
		return nil, false
	}
	return e.obj, true
}

// CreateObject allocates and inserts a new, empty object for hoid. If
// an object already exists for hoid it is returned unchanged (this
// never overwrites existing content).
func (s *Store) CreateObject(hoid wire.Hoid) *Object {
	if e, ok := s.objects.Get(&objEntry{hoid: hoid}); ok {
		return e.obj
	}
	obj := newObject(hoid)
	s.objects.ReplaceOrInsert(&objEntry{hoid: hoid, obj: obj})
	return obj
}

// Walk visits every live object in hoid order, stopping early if fn
// returns false, for use by the snapshot exporter.
func (s *Store) Walk(fn func(obj *Object) bool) {
	s.objects.Ascend(func(e *objEntry) bool {
		return fn(e.obj)
	})
}

// Destroy walks all objects, releasing their blocks and then the
// objects themselves. Linear in the number of allocated blocks.
func (s *Store) Destroy() {
	s.objects.Ascend(func(e *objEntry) bool {
		e.obj.blocks.Clear(false)
		return true
	})
	s.objects.Clear(false)
}

// Len reports the number of live objects, used by the admin status
// endpoint.
func (s *Store) Len() int { return s.objects.Len() }

// BytesHeld sums the allocated (not logical) size of every object's
// block map, used by the admin status endpoint.
func (s *Store) BytesHeld() uint64 {
	var total uint64
	s.objects.Ascend(func(e *objEntry) bool {
		total += uint64(e.obj.blocks.Len()) * BlockSize
		return true
	})
	return total
}
