package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foxseedlab/jimaku/internal/webhook"
	"github.com/google/go-cmp/cmp"
)

func sampleReport() webhook.SessionReport {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return webhook.SessionReport{
		RunID:           "run-1",
		StreamURL:       "https://example.com/live",
		StartedAt:       started,
		EndedAt:         started.Add(90 * time.Second),
		DurationSeconds: 90,
		StopReason:      "stream_ended",
		StopReasonText:  "the stream ended",
		ChunksRead:      22,
		ChunksSilent:    4,
		Transcripts:     17,
		Deliveries:      34,
	}
}

func TestSendSessionReport_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendSessionReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendSessionReport_Success(t *testing.T) {
	var got webhook.SessionReport
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendSessionReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if diff := cmp.Diff(sampleReport(), got); diff != "" {
		t.Fatalf("unexpected report (-want +got):\n%s", diff)
	}
}

func TestSendSessionReport_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendSessionReport(context.Background(), sampleReport()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestSendSessionReport_RetriesServerErrorOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL).(*HTTPSender)
	sender.retryDelay = time.Millisecond
	if err := sender.SendSessionReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected two attempts, got %d", calls.Load())
	}
}

func TestSendSessionReport_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("unknown field"))
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL).(*HTTPSender)
	sender.retryDelay = time.Millisecond
	err := sender.SendSessionReport(context.Background(), sampleReport())
	if err == nil || !strings.Contains(err.Error(), "unknown field") || !strings.Contains(err.Error(), "run-1") {
		t.Fatalf("expected error naming the run and the response body, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}
