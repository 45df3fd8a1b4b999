package ops

import (
	"github.com/launix-de/cephosd/store"
	"github.com/launix-de/cephosd/wire"
)

// AckType is the durability bitset this core always returns in
// replies: ACK | ONDISK (§4.4, §6).
const AckType = wire.FlagAck | wire.FlagOndisk

// Dispatch runs every op in req against s in index order (§4.4),
// recording each op's result into its Rval. It returns the top-level
// reply result: the first non-short-circuited non-zero result, or 0
// if every op succeeded or was suppressed by FAILOK.
func Dispatch(s *store.Store, req *wire.OsdOpRequest, data wire.DataCursor, opts Options) int32 {
	var result int32
	for i := range req.Ops {
		op := &req.Ops[i]
		result = runOp(s, req, op, data, opts)
		op.Rval = result

		if result != 0 {
			if !isTransient(result) && op.FailOk() {
				result = 0
				continue
			}
			break
		}
	}
	return result
}

func runOp(s *store.Store, req *wire.OsdOpRequest, op *wire.Op, data wire.DataCursor, opts Options) int32 {
	switch op.Op {
	case wire.OpWrite:
		return handleWrite(s, req, op, data, opts)
	case wire.OpRead:
		return handleRead(s, req, op)
	case wire.OpStat:
		return handleStat(s, req, op)
	default:
		return EOPNOTSUPP
	}
}
