// Package admin exposes an HTTP + websocket status dashboard reporting
// live connection count, object count, and bytes held -- an
// operability feature with no effect on OSD_OP/OSD_OPREPLY semantics,
// adapted from the teacher's scm/network.go HTTP+websocket serving
// pattern (HTTPServe, HttpServer.ServeHTTP, the websocket upgrade/
// write loop).
package admin

import (
	"encoding/json"
	"net/http"
	"time"

	units "github.com/docker/go-units"
	"github.com/gorilla/websocket"

	"github.com/launix-de/cephosd/log"
	"github.com/launix-de/cephosd/server"
)

type Status struct {
	Connections int    `json:"connections"`
	Objects     int    `json:"objects"`
	BytesHeld   uint64 `json:"bytes_held"`
	Human       string `json:"bytes_held_human"`
	Epoch       uint32 `json:"epoch"`
}

func collectStatus(core *server.Core) Status {
	objects, bytesHeld := core.StoreStats()
	return Status{
		Connections: core.Registry.Len(),
		Objects:     objects,
		BytesHeld:   bytesHeld,
		Human:       units.BytesSize(float64(bytesHeld)),
		Epoch:       core.Epoch,
	}
}

// Server is the admin HTTP listener.
type Server struct {
	core *server.Core
	log  *log.Logger
	addr string

	http *http.Server
}

func New(core *server.Core, logger *log.Logger, addr string) *Server {
	s := &Server{core: core, log: logger, addr: addr}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/status/ws", s.handleStatusWS)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

func (s *Server) Close() error {
	return s.http.Close()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(collectStatus(s.core))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStatusWS pushes a status snapshot once per second until the
// client disconnects, mirroring scm/network.go's websocket send-loop
// shape.
func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warningf("admin: websocket upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := ws.WriteJSON(collectStatus(s.core)); err != nil {
			return
		}
	}
}
