package server

import (
	"context"
	"fmt"
	"time"
)

// CrushWeight is the fixed weight this OSD always registers with on
// boot; nothing makes it configurable (§4.6, §9).
const CrushWeight = "0.0010"

const (
	pollInterval = 300 * time.Millisecond
	pollTimeout  = 5 * time.Second
)

// Server owns the lifecycle: a Core (store + connection glue), a
// Messenger, and a MonClient.
type Server struct {
	Core      *Core
	Messenger Messenger
	Mon       MonClient

	OsdID      int
	Fsid       string
	Addr       string
	ListenAddr string
}

// Start implements §4.6: open a monitor session, listen, register
// this OSD with the CRUSH map, boot, then poll for the map to report
// this OSD up at this address.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Mon.OpenSession(ctx); err != nil {
		return fmt.Errorf("server: open_session: %w", err)
	}
	if err := s.Messenger.Listen(s.ListenAddr, s.Core); err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	if err := s.Mon.OsdToCrushAdd(ctx, s.OsdID, CrushWeight); err != nil {
		return s.failStart(fmt.Errorf("server: osd_to_crush_add: %w", err))
	}
	if err := s.Mon.OsdBoot(ctx, s.OsdID, s.Fsid); err != nil {
		return s.failStart(fmt.Errorf("server: osd_boot: %w", err))
	}

	deadline := time.Now().Add(pollTimeout)
	for {
		m, err := s.Mon.WaitForLatestOsdmap(ctx, pollInterval)
		if err != nil {
			return s.failStart(fmt.Errorf("server: wait_for_latest_osdmap: %w", err))
		}
		s.Core.Epoch = m.Epoch
		if entry, ok := m.Entries[s.OsdID]; ok && entry.Addr == s.Addr && entry.Up {
			return nil
		}
		if time.Now().After(deadline) {
			return s.failStart(fmt.Errorf("server: timed out waiting for osd %d to come up", s.OsdID))
		}
		time.Sleep(pollInterval)
	}
}

func (s *Server) failStart(err error) error {
	s.Messenger.Close()
	return err
}

// Stop implements §4.6: mark this OSD down, poll for the map to
// confirm it, then destroy the messenger and the object store.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.Mon.OsdMarkMeDown(ctx, s.OsdID); err != nil {
		return fmt.Errorf("server: osd_mark_me_down: %w", err)
	}

	deadline := time.Now().Add(pollTimeout)
	for {
		m, err := s.Mon.WaitForLatestOsdmap(ctx, pollInterval)
		if err != nil {
			return fmt.Errorf("server: wait_for_latest_osdmap: %w", err)
		}
		s.Core.Epoch = m.Epoch
		if entry, ok := m.Entries[s.OsdID]; ok && !entry.Up {
			break
		}
		if time.Now().After(deadline) {
			break // best effort: still tear down below
		}
		time.Sleep(pollInterval)
	}

	err := s.Messenger.Close()
	s.Core.Store.Destroy()
	return err
}
