package wire

// Wire-level constants. Block size lives in package store, never here:
// nothing in the protocol exposes it.
const (
	MaxOps           = 16
	MaxSnaps         = 1024
	ReplyWireVersion = 7
	PgidVersion      = 1
	ReqidVersion     = 2
	OlocVersion      = 1

	blkinTraceInfoSize = 24 // fixed-size span, skipped unparsed
	rawOpScratchSize   = 64
)

// Opcode identifies a sub-op within an OSD_OP request. The decoder
// tolerates any value that appears below; everything else is
// Malformed at decode time (the wire frame has no room to carry an
// opcode-specific payload it doesn't know the shape of) but the
// dispatcher, not the decoder, is what rejects opcodes this server
// doesn't implement.
type Opcode uint16

const (
	OpRead Opcode = iota + 1
	OpStat
	OpWrite
	OpWriteFull
	OpZero
	OpTruncate
	OpDelete
	OpCreate
	OpCall
	OpWatch
	OpNotify
	OpNotifyAck
	OpListWatchers
	OpSetAllocHint
	OpSetXattr
	OpCmpXattr
	OpCopyFrom2
)

// Per-op flag bits.
const (
	FlagFailOk  uint32 = 1 << 0
	FlagAck     uint32 = 1 << 1
	FlagOndisk  uint32 = 1 << 2
	FlagOnnvram uint32 = 1 << 3
)

// Timespec mirrors the Ceph on-wire timestamp: seconds and
// nanoseconds, both little-endian u32.
type Timespec struct {
	Sec  uint32
	Nsec uint32
}

type Pgid struct {
	Pool      uint64
	Seed      uint32
	Preferred int32 // always -1 on encode, ignored on decode
}

type Spgid struct {
	Pgid  Pgid
	Shard uint8
}

// Oloc is the decoded object locator: a pool id plus an optional
// namespace string.
type Oloc struct {
	Pool   int64
	Nspace string
}

// Hoid is the hobject identifier: the store's key. Two hoids compare
// with Less, an arbitrary but total and stable order; the core treats
// the order as opaque.
type Hoid struct {
	Pool   int64
	Hash   uint32
	Snapid uint64
	Name   string
	Key    string // always empty: unused by this core
	Nspace string
}

// Less defines the total order the store's ordered maps key on. The
// exact ordering is not externally meaningful, only that it is total,
// stable, and supports lower-bound lookups.
func (h Hoid) Less(o Hoid) bool {
	if h.Pool != o.Pool {
		return h.Pool < o.Pool
	}
	if h.Nspace != o.Nspace {
		return h.Nspace < o.Nspace
	}
	if h.Name != o.Name {
		return h.Name < o.Name
	}
	if h.Snapid != o.Snapid {
		return h.Snapid < o.Snapid
	}
	return h.Hash < o.Hash
}

type ExtentPayload struct {
	Offset       uint64
	Length       uint64
	TruncateSize uint64
	TruncateSeq  uint32
}

type CallPayload struct {
	ClassLen  uint32
	MethodLen uint32
	IndataLen uint32
}

type WatchPayload struct {
	Cookie uint64
	Ver    uint64
	Op     uint8
	Gen    uint32
}

type NotifyPayload struct {
	Cookie uint64
}

type AllocHintPayload struct {
	ExpectedObjectSize uint64
	ExpectedWriteSize  uint64
}

type XattrPayload struct {
	NameLen  uint32
	ValueLen uint32
	CmpOp    uint8
	CmpMode  uint8
}

type CopyFromPayload struct {
	Snapid          uint64
	SrcVersion      uint64
	Flags           uint32
	SrcFadviseFlags uint32
}

// Op is one decoded sub-op. Only the payload matching Op's opcode
// class is meaningful; the others are zero value. OutData and Rval are
// populated during dispatch, for use by the reply encoder.
type Op struct {
	Op        Opcode
	Flags     uint32
	IndataLen uint32

	Extent    ExtentPayload
	Call      CallPayload
	Watch     WatchPayload
	Notify    NotifyPayload
	AllocHint AllocHintPayload
	Xattr     XattrPayload
	CopyFrom  CopyFromPayload

	OutData []byte
	Rval    int32
}

func (o *Op) FailOk() bool { return o.Flags&FlagFailOk != 0 }

// OsdOpRequest is the fully decoded in-memory form of an OSD_OP
// message, per the 17-step field list.
type OsdOpRequest struct {
	Tid      uint64
	Features uint64
	Epoch    uint32
	Spgid    Spgid
	Flags    uint32
	Attempts uint32
	Mtime    Timespec
	Oloc     Oloc
	Hoid     Hoid
	SnapSeq  uint64
	Snaps    []uint64
	Ops      []Op
}
