// cephosd is a minimal user-space OSD core: it speaks the OSD_OP/
// OSD_OPREPLY subset of the Ceph wire protocol against an in-memory,
// hobject-keyed object store. SPEC_FULL.md in this repository has the
// full module breakdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dc0d/onexit"
	"golang.org/x/sync/errgroup"

	"github.com/launix-de/cephosd/admin"
	"github.com/launix-de/cephosd/config"
	"github.com/launix-de/cephosd/log"
	"github.com/launix-de/cephosd/ops"
	"github.com/launix-de/cephosd/server"
)

func main() {
	opts, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.New(fmt.Sprintf("osd.%d", opts.OsdID))

	listenAddr := opts.Passthrough["listen_addr"]
	if listenAddr == "" {
		listenAddr = "0.0.0.0:0"
	}
	adminAddr := opts.Passthrough["admin_addr"]
	if adminAddr == "" {
		adminAddr = "127.0.0.1:7480"
	}
	fsid := opts.Passthrough["fsid"]
	consoleEnabled := opts.Passthrough["console"] != ""

	messenger := server.NewTCPMessenger()
	core := server.NewCore(messenger, logger, ops.Options{NoopWrite: opts.NoopWrite})

	mon := server.NewStubMonClient(opts.OsdID, listenAddr)

	srv := &server.Server{
		Core:       core,
		Messenger:  messenger,
		Mon:        mon,
		OsdID:      opts.OsdID,
		Fsid:       fsid,
		Addr:       listenAddr,
		ListenAddr: listenAddr,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		logger.Errorf("failed to start: %v", err)
		os.Exit(1)
	}
	logger.Infof("osd %d up at %s", opts.OsdID, listenAddr)

	adminSrv := admin.New(core, logger, adminAddr)
	onexit.Register(func() { adminSrv.Close() })

	watchPath := opts.Passthrough["watch_config"]
	if watchPath != "" {
		stop := make(chan struct{})
		onexit.Register(func() { close(stop) })
		if err := config.WatchPassthrough(watchPath, logger, core.SetNoopWrite, stop); err != nil {
			logger.Warningf("could not watch %s: %v", watchPath, err)
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})

	if consoleEnabled {
		g.Go(func() error {
			Console(core)
			return nil
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("received shutdown signal, stopping osd %d", opts.OsdID)
		if err := srv.Stop(context.Background()); err != nil {
			logger.Errorf("stop: %v", err)
		}
		onexit.Exit(0)
	}()

	if err := g.Wait(); err != nil {
		logger.Errorf("%v", err)
	}
}
