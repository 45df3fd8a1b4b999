// Package server implements the connection glue and lifecycle that sit
// between an external messenger/monitor-client and the wire/store/ops
// core: message allocation and ownership handoff, op-request dispatch
// routing, fault teardown, and the start/stop lifecycle (§4.5-§4.6).
package server

import "github.com/launix-de/cephosd/wire"

// MsgType enumerates the inbound message types the messenger may hand
// to AllocMsg. Only a subset is ever accepted (§4.5).
type MsgType uint8

const (
	MsgOsdMap MsgType = iota
	MsgOsdBackoff
	MsgWatchNotify
	MsgOsdOp
	MsgOsdOpReply // never accepted for inbound allocation
)

// Header is what the messenger has already parsed off the wire before
// asking the core to allocate buffers for the rest of the message.
type Header struct {
	Type     MsgType
	Tid      uint64
	FrontLen uint32
	DataLen  uint32
}

// Message is a reference-counted buffer pair: a front (control) buffer
// and an optional data segment. Messages are shared between the core,
// the messenger, and the sender queue; buffers transfer ownership to
// the message at construction and are released exactly once, when the
// refcount drops to zero (§9 "Reference-counted messages").
type Message struct {
	Header Header
	Front  []byte
	Data   []byte

	refs int32
}

func NewMessage(hdr Header, front, data []byte) *Message {
	return &Message{Header: hdr, Front: front, Data: data, refs: 1}
}

func (m *Message) Get() { m.refs++ }

// Put releases one reference, returning true if this was the last
// one. The core never needs to do anything on drop beyond letting the
// buffers become garbage: there is no separate free list.
func (m *Message) Put() bool {
	m.refs--
	return m.refs <= 0
}

// ConnectionOps is the vtable the core implements and the messenger
// invokes per connection event, mirroring the "invoked messenger
// contract" of §6 from the opposite direction: these are the
// operations invoked ON the core.
type ConnectionOps interface {
	AllocCon() *Conn
	AcceptCon(c *Conn) error
	Get(c *Conn)
	Put(c *Conn)
	AllocMsg(c *Conn, hdr Header) (msg *Message, skip bool)
	Dispatch(c *Conn, msg *Message)
	Fault(c *Conn)
}

// Messenger is the external collaborator the core calls into: start
// listening with a connection-ops vtable, and send outbound messages.
// Framing, authentication, and connection I/O are the messenger's
// concern, out of scope for this core (§1).
type Messenger interface {
	Listen(addr string, ops ConnectionOps) error
	Send(c *Conn, msg *Message) error
	Close() error
}

// DataCursorFromMessage adapts a message's flat data segment into the
// wire.DataCursor the op handlers read WRITE payloads from.
func DataCursorFromMessage(m *Message) wire.DataCursor {
	return wire.NewBytesCursor(m.Data)
}
