package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/foxseedlab/jimaku/internal/transcriber"
)

const maxErrorBodyBytes = 2048

type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// WhisperTranscriber posts each chunk to an OpenAI-compatible /audio/transcriptions endpoint.
type WhisperTranscriber struct {
	cfg    WhisperConfig
	client *http.Client
}

func NewWhisperTranscriber(cfg WhisperConfig, client *http.Client) *WhisperTranscriber {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &WhisperTranscriber{cfg: cfg, client: client}
}

type whisperResponse struct {
	Text string `json:"text"`
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, wav []byte, _ int, hint string) (string, error) {
	body, contentType, err := t.encodeForm(wav, hint)
	if err != nil {
		return "", err
	}
	endpoint := strings.TrimRight(t.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("whisper returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode whisper response: %w", err)
	}
	return out.Text, nil
}

func (t *WhisperTranscriber) encodeForm(wav []byte, hint string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", err
	}
	fields := map[string]string{
		"model":           t.cfg.Model,
		"response_format": "json",
	}
	if strings.TrimSpace(hint) != "" {
		fields["prompt"] = hint
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var _ transcriber.Service = (*WhisperTranscriber)(nil)
