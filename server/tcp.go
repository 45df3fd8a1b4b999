package server

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
)

// TCPMessenger is a minimal reference transport satisfying Messenger:
// length-prefixed frames over plain TCP. The wire protocol itself
// leaves messenger transport out of scope (§1), so this exists only so
// main.go has something to actually listen and send on; it is not
// meant to be a faithful rendition of Ceph's real msgr2 framing.
//
// Frame layout: type(u8) tid(u64) frontLen(u32) dataLen(u32) front data.
type TCPMessenger struct {
	mu     sync.Mutex
	ln     net.Listener
	conns  map[*Conn]net.Conn
	closed bool
}

func NewTCPMessenger() *TCPMessenger {
	return &TCPMessenger{conns: make(map[*Conn]net.Conn)}
}

func (t *TCPMessenger) Listen(addr string, ops ConnectionOps) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.ln = ln
	t.mu.Unlock()

	go t.acceptLoop(ln, ops)
	return nil
}

func (t *TCPMessenger) acceptLoop(ln net.Listener, ops ConnectionOps) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		conn := ops.AllocCon()
		if err := ops.AcceptCon(conn); err != nil {
			nc.Close()
			continue
		}

		t.mu.Lock()
		t.conns[conn] = nc
		t.mu.Unlock()

		go t.readLoop(nc, conn, ops)
	}
}

func (t *TCPMessenger) readLoop(nc net.Conn, conn *Conn, ops ConnectionOps) {
	defer func() {
		t.mu.Lock()
		delete(t.conns, conn)
		t.mu.Unlock()
		nc.Close()
		ops.Fault(conn)
	}()

	var hdrBuf [17]byte
	for {
		if _, err := io.ReadFull(nc, hdrBuf[:]); err != nil {
			return
		}
		hdr := Header{
			Type:     MsgType(hdrBuf[0]),
			Tid:      binary.LittleEndian.Uint64(hdrBuf[1:9]),
			FrontLen: binary.LittleEndian.Uint32(hdrBuf[9:13]),
			DataLen:  binary.LittleEndian.Uint32(hdrBuf[13:17]),
		}

		msg, skip := ops.AllocMsg(conn, hdr)
		if skip {
			if _, err := io.CopyN(io.Discard, nc, int64(hdr.FrontLen)+int64(hdr.DataLen)); err != nil {
				return
			}
			continue
		}
		if _, err := io.ReadFull(nc, msg.Front); err != nil {
			return
		}
		if len(msg.Data) > 0 {
			if _, err := io.ReadFull(nc, msg.Data); err != nil {
				return
			}
		}
		ops.Dispatch(conn, msg)
	}
}

func (t *TCPMessenger) Send(c *Conn, msg *Message) error {
	t.mu.Lock()
	nc, ok := t.conns[c]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("server: send on unknown connection %s", c.ID)
	}

	var hdrBuf [17]byte
	hdrBuf[0] = byte(msg.Header.Type)
	binary.LittleEndian.PutUint64(hdrBuf[1:9], msg.Header.Tid)
	binary.LittleEndian.PutUint32(hdrBuf[9:13], msg.Header.FrontLen)
	binary.LittleEndian.PutUint32(hdrBuf[13:17], msg.Header.DataLen)

	if _, err := nc.Write(hdrBuf[:]); err != nil {
		return err
	}
	if _, err := nc.Write(msg.Front); err != nil {
		return err
	}
	if len(msg.Data) > 0 {
		if _, err := nc.Write(msg.Data); err != nil {
			return err
		}
	}
	return nil
}

func (t *TCPMessenger) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	for _, nc := range t.conns {
		nc.Close()
	}
	if t.ln != nil {
		return t.ln.Close()
	}
	return nil
}

var _ Messenger = (*TCPMessenger)(nil)
