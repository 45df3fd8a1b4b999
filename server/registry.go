package server

import (
	nlrm "github.com/launix-de/NonLockingReadMap"
)

// regEntry is the value type stored in the connection registry: just
// enough to satisfy NonLockingReadMap's KeyGetter/Sizable contract
// without duplicating *Conn's own fields.
type regEntry struct {
	id   string
	conn *Conn
}

func (e regEntry) GetKey() string   { return e.id }
func (e regEntry) ComputeSize() uint { return 64 }

// ConnRegistry tracks live connections for the admin/metrics endpoint,
// which runs on its own goroutine and only ever reads. The writers are
// the accept path and the fault/put paths, which TCPMessenger runs on
// one goroutine per connection; NonLockingReadMap's Set and Remove
// publish their changes by compare-and-swap.
type ConnRegistry struct {
	m nlrm.NonLockingReadMap[regEntry, string]
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{m: nlrm.New[regEntry, string]()}
}

func (r *ConnRegistry) Add(c *Conn) {
	r.m.Set(&regEntry{id: c.ID, conn: c})
}

func (r *ConnRegistry) Remove(c *Conn) {
	r.m.Remove(c.ID)
}

func (r *ConnRegistry) Len() int {
	return len(r.m.GetAll())
}

func (r *ConnRegistry) Snapshot() []*Conn {
	all := r.m.GetAll()
	out := make([]*Conn, len(all))
	for i, e := range all {
		out[i] = e.conn
	}
	return out
}
