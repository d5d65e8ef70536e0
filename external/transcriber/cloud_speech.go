package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/jimaku/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Languages       []string
	Location        string
	Model           string
}

// CloudSpeechTranscriber sends each chunk as a synchronous Recognize request. The WAV header
// lets the service auto-detect the encoding. Cloud Speech has no free-text prompt, so the
// continuation hint is not used.
type CloudSpeechTranscriber struct {
	cfg CloudSpeechConfig

	mu     sync.Mutex
	client *speech.Client
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) *CloudSpeechTranscriber {
	cfg.Location = strings.TrimSpace(cfg.Location)
	if cfg.Location == "" {
		cfg.Location = "global"
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &CloudSpeechTranscriber{cfg: cfg}
}

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, wav []byte, _ int, _ string) (string, error) {
	client, err := t.getClient(ctx)
	if err != nil {
		return "", err
	}
	req := t.recognizeRequest(wav)

	resp, err := client.Recognize(ctx, req)
	if isRetryable(err) {
		slog.Warn("cloud speech recognize unavailable; retrying once", "error", err)
		resp, err = client.Recognize(ctx, req)
	}
	if err != nil {
		return "", fmt.Errorf("cloud speech recognize: %w", err)
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		if text := strings.TrimSpace(result.GetAlternatives()[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (t *CloudSpeechTranscriber) recognizeRequest(wav []byte) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.cfg.ProjectID, t.cfg.Location),
		Config: &speechpb.RecognitionConfig{
			Model:         t.cfg.Model,
			LanguageCodes: t.cfg.Languages,
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			Features: &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: wav},
	}
}

func (t *CloudSpeechTranscriber) getClient(ctx context.Context) (*speech.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return t.client, nil
	}

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.cfg.CredentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}
	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if t.cfg.Location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.cfg.Location, speechAPIEndpointPort)))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	slog.Info("cloud speech client initialized", "location", t.cfg.Location, "model", t.cfg.Model, "languages", t.cfg.Languages)
	t.client = client
	return client, nil
}

// Shutdown closes the speech client; the injector calls it on shutdown.
func (t *CloudSpeechTranscriber) Shutdown() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unavailable
}

var _ transcriber.Service = (*CloudSpeechTranscriber)(nil)
