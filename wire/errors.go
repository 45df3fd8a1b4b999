package wire

import "errors"

// Error taxonomy for the decode/encode path. These map 1:1 onto the
// codec-level rows of the core's error table: a BufferShort or
// Malformed error means the request is dropped and the connection
// stays open; Unsupported during decode behaves the same way, while
// the dispatcher turns an Unsupported opcode into a per-op rval
// instead of dropping the request.
var (
	ErrBufferShort = errors.New("wire: buffer too short")
	ErrMalformed   = errors.New("wire: malformed frame")
	ErrUnsupported = errors.New("wire: unsupported opcode")
)
