//go:build ceph

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ceph/go-ceph/rados"
)

// CephMonClient backs MonClient with a real cluster connection, the
// same rados.Conn bootstrap the teacher's storage/persistence-ceph.go
// uses for its CephStorage backend, repurposed here to issue JSON
// monitor admin commands instead of RADOS object I/O.
type CephMonClient struct {
	ClusterName string
	UserName    string
	ConfFile    string
	Addr        string

	conn *rados.Conn
}

func NewCephMonClient(cluster, user, confFile, addr string) *CephMonClient {
	return &CephMonClient{ClusterName: cluster, UserName: user, ConfFile: confFile, Addr: addr}
}

func (c *CephMonClient) OpenSession(ctx context.Context) error {
	conn, err := rados.NewConnWithClusterAndUser(c.ClusterName, c.UserName)
	if err != nil {
		return err
	}
	if c.ConfFile != "" {
		if err := conn.ReadConfigFile(c.ConfFile); err != nil {
			return err
		}
	} else if err := conn.ReadDefaultConfigFile(); err != nil {
		return err
	}
	if err := conn.Connect(); err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *CephMonClient) monCommand(cmd map[string]any) ([]byte, error) {
	raw, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	buf, _, err := c.conn.MonCommand(raw)
	return buf, err
}

func (c *CephMonClient) OsdToCrushAdd(ctx context.Context, osd int, weight string) error {
	_, err := c.monCommand(map[string]any{
		"prefix": "osd crush add",
		"id":     osd,
		"weight": weight,
		"args":   []string{"root=default"},
	})
	return err
}

func (c *CephMonClient) OsdBoot(ctx context.Context, osd int, fsid string) error {
	_, err := c.monCommand(map[string]any{
		"prefix": "osd new",
		"id":     osd,
		"uuid":   fsid,
	})
	return err
}

func (c *CephMonClient) OsdMarkMeDown(ctx context.Context, osd int) error {
	_, err := c.monCommand(map[string]any{
		"prefix": "osd down",
		"ids":    []string{fmt.Sprint(osd)},
	})
	return err
}

type cephOsdDump struct {
	Epoch uint32 `json:"epoch"`
	Osds  []struct {
		Osd     int    `json:"osd"`
		Up      int    `json:"up"`
		PublicAddr string `json:"public_addr"`
	} `json:"osds"`
}

func (c *CephMonClient) WaitForLatestOsdmap(ctx context.Context, timeout time.Duration) (*OsdMap, error) {
	buf, err := c.monCommand(map[string]any{
		"prefix": "osd dump",
		"format": "json",
	})
	if err != nil {
		return nil, err
	}
	var dump cephOsdDump
	if err := json.Unmarshal(buf, &dump); err != nil {
		return nil, err
	}
	m := &OsdMap{Epoch: dump.Epoch, Entries: make(map[int]OsdMapEntry, len(dump.Osds))}
	for _, o := range dump.Osds {
		m.Entries[o.Osd] = OsdMapEntry{Addr: o.PublicAddr, Up: o.Up != 0}
	}
	return m, nil
}

var _ MonClient = (*CephMonClient)(nil)
