package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/jimaku/internal/webhook"
)

const (
	defaultSendTimeout = 10 * time.Second
	retryDelay         = time.Second
	maxErrorBodyBytes  = 512
	userAgent          = "jimaku-session-report/1"
)

// HTTPSender posts the end-of-session report as JSON. Server errors and transport failures
// are retried once; client errors are not.
type HTTPSender struct {
	webhookURL string
	client     *http.Client
	retryDelay time.Duration
}

func NewHTTPSender(webhookURL string) webhook.Sender {
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: defaultSendTimeout},
		retryDelay: retryDelay,
	}
}

func (s *HTTPSender) SendSessionReport(ctx context.Context, report webhook.SessionReport) error {
	if s.webhookURL == "" {
		return nil
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal session report %s: %w", report.RunID, err)
	}

	retryable, err := s.post(ctx, body)
	if err == nil {
		return nil
	}
	if !retryable {
		return fmt.Errorf("send session report %s: %w", report.RunID, err)
	}
	slog.Warn("session report delivery failed; retrying once", "run_id", report.RunID, "error", err)
	select {
	case <-ctx.Done():
		return fmt.Errorf("send session report %s: %w", report.RunID, ctx.Err())
	case <-time.After(s.retryDelay):
	}
	if _, err := s.post(ctx, body); err != nil {
		return fmt.Errorf("send session report %s after retry: %w", report.RunID, err)
	}
	return nil
}

// post sends one attempt and reports whether a failure is worth retrying.
func (s *HTTPSender) post(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return resp.StatusCode >= 500, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
