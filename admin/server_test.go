package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/launix-de/cephosd/log"
	"github.com/launix-de/cephosd/ops"
	"github.com/launix-de/cephosd/server"
)

func newTestCore() *server.Core {
	return server.NewCore(nil, log.New("admin-test"), ops.Options{})
}

func TestCollectStatusEmptyStore(t *testing.T) {
	core := newTestCore()
	st := collectStatus(core)
	if st.Connections != 0 || st.Objects != 0 || st.BytesHeld != 0 {
		t.Fatalf("expected zeroed status, got %+v", st)
	}
	if st.Human == "" {
		t.Fatalf("expected a human-readable size string")
	}
}

func TestHandleStatusServesJSON(t *testing.T) {
	core := newTestCore()
	s := New(core, log.New("admin-test"), ":0")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
}
