package server

import (
	"context"
	"time"
)

// OsdMapEntry is the minimal slice of an OSD map entry the lifecycle
// polling loops need: is this OSD listed at this address, and is it
// marked up.
type OsdMapEntry struct {
	Addr string
	Up   bool
}

// OsdMap is the minimal view of the cluster's OSD map the core
// consumes: current epoch plus per-osd-id entries.
type OsdMap struct {
	Epoch   uint32
	Entries map[int]OsdMapEntry
}

// MonClient is the consumed monitor-client contract of §6: cluster
// membership, boot, mark-down, and OSD map subscription. All methods
// are blocking calls that yield to the caller's scheduler (here,
// simply block the calling goroutine; Go's runtime scheduler is the
// "process-wide scheduler" §5 describes).
type MonClient interface {
	OpenSession(ctx context.Context) error
	OsdToCrushAdd(ctx context.Context, osd int, weight string) error
	OsdBoot(ctx context.Context, osd int, fsid string) error
	OsdMarkMeDown(ctx context.Context, osd int) error
	WaitForLatestOsdmap(ctx context.Context, timeout time.Duration) (*OsdMap, error)
}

// StubMonClient is an in-memory MonClient used by default builds (no
// `ceph` build tag) and by tests: it simulates a monitor that marks
// this OSD up immediately after OsdBoot and down immediately after
// OsdMarkMeDown, at the given address.
type StubMonClient struct {
	osdID int
	addr  string
	epoch uint32
	up    bool
}

func NewStubMonClient(osdID int, addr string) *StubMonClient {
	return &StubMonClient{osdID: osdID, addr: addr}
}

func (s *StubMonClient) OpenSession(ctx context.Context) error { return nil }

func (s *StubMonClient) OsdToCrushAdd(ctx context.Context, osd int, weight string) error {
	return nil
}

func (s *StubMonClient) OsdBoot(ctx context.Context, osd int, fsid string) error {
	s.epoch++
	s.up = true
	return nil
}

func (s *StubMonClient) OsdMarkMeDown(ctx context.Context, osd int) error {
	s.epoch++
	s.up = false
	return nil
}

func (s *StubMonClient) WaitForLatestOsdmap(ctx context.Context, timeout time.Duration) (*OsdMap, error) {
	return &OsdMap{
		Epoch: s.epoch,
		Entries: map[int]OsdMapEntry{
			s.osdID: {Addr: s.addr, Up: s.up},
		},
	}, nil
}

var _ MonClient = (*StubMonClient)(nil)
