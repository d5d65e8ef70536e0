package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/jimaku/internal/repository"
	"github.com/foxseedlab/jimaku/internal/session"
	"github.com/google/go-cmp/cmp"
)

type fakeControl struct {
	mu       sync.Mutex
	startErr error
	started  []string
	stops    int
	running  bool
	runs     []repository.Run
	runsErr  error
	limit    int
}

func (f *fakeControl) Start(streamURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, streamURL)
	f.running = true
	return nil
}

func (f *fakeControl) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
}

func (f *fakeControl) Status() session.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := session.Status{Running: f.running}
	if len(f.started) > 0 {
		s.StreamURL = f.started[len(f.started)-1]
	}
	return s
}

func (f *fakeControl) RecentRuns(_ context.Context, limit int) ([]repository.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	return f.runs, f.runsErr
}

func newTestServer(ctrl *fakeControl) *httptest.Server {
	ws := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := httptest.NewServer(NewServer(ctrl, ws).Handler())
	return srv
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestStart_JSONBody(t *testing.T) {
	ctrl := &fakeControl{}
	srv := newTestServer(ctrl)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/start", "application/json", strings.NewReader(`{"stream_url":" https://example.com/live "}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var status session.Status
	decodeBody(t, resp, &status)
	if !status.Running || status.StreamURL != "https://example.com/live" {
		t.Fatalf("unexpected status body: %+v", status)
	}
}

func TestStart_FormBody(t *testing.T) {
	ctrl := &fakeControl{}
	srv := newTestServer(ctrl)
	defer srv.Close()

	resp, err := http.PostForm(srv.URL+"/start", url.Values{"stream_url": {"https://example.com/form"}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if diff := cmp.Diff([]string{"https://example.com/form"}, ctrl.started); diff != "" {
		t.Fatalf("unexpected start calls (-want +got):\n%s", diff)
	}
}

func TestStart_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "already running", err: session.ErrAlreadyRunning, want: http.StatusConflict},
		{name: "empty url", err: session.ErrEmptyStreamURL, want: http.StatusBadRequest},
		{name: "spawn failure", err: errors.New("exec: not found"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeControl{startErr: tt.err})
			defer srv.Close()

			resp, err := http.PostForm(srv.URL+"/start", url.Values{"stream_url": {"x"}})
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestStart_RejectsInvalidJSON(t *testing.T) {
	ctrl := &fakeControl{}
	srv := newTestServer(ctrl)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/start", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if len(ctrl.started) != 0 {
		t.Fatal("start must not be called for a malformed body")
	}
}

func TestStopAndStatus(t *testing.T) {
	ctrl := &fakeControl{running: true}
	srv := newTestServer(ctrl)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/stop", "", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var status session.Status
	decodeBody(t, resp, &status)
	if resp.StatusCode != http.StatusOK || status.Running {
		t.Fatalf("unexpected stop response: %d %+v", resp.StatusCode, status)
	}
	if ctrl.stops != 1 {
		t.Fatalf("expected one stop, got %d", ctrl.stops)
	}

	resp, err = http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	decodeBody(t, resp, &status)
	if status.Running {
		t.Fatal("expected status to report stopped")
	}
}

func TestRuns(t *testing.T) {
	ended := time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)
	ctrl := &fakeControl{runs: []repository.Run{{
		ID:         "run-1",
		StreamURL:  "https://example.com/live",
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
		EndedAt:    &ended,
		Status:     repository.RunStatusCompleted,
		StopReason: "stream_ended",
		ChunksRead: 12,
	}}}
	srv := newTestServer(ctrl)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs?limit=5000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got []map[string]any
	decodeBody(t, resp, &got)
	if ctrl.limit != maxRunsLimit {
		t.Fatalf("expected limit to be capped at %d, got %d", maxRunsLimit, ctrl.limit)
	}
	if len(got) != 1 || got[0]["id"] != "run-1" || got[0]["stop_reason"] != "stream_ended" || got[0]["status"] != "completed" {
		t.Fatalf("unexpected runs body: %v", got)
	}
}

func TestRuns_InvalidLimit(t *testing.T) {
	srv := newTestServer(&fakeControl{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs?limit=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRoutes_HealthAndWebsocketMount(t *testing.T) {
	srv := newTestServer(&fakeControl{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status: %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Fatalf("expected /ws to reach the listener handler, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/start")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected GET /start to be rejected, got %d", resp.StatusCode)
	}
}
