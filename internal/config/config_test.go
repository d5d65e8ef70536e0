package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Env:                    "development",
		HTTPAddr:               ":8080",
		ChunkSeconds:           4,
		SampleRate:             16000,
		SilencePeakThreshold:   0.005,
		ContextWindowSize:      3,
		CapabilityTimeout:      20 * time.Second,
		TranslationConcurrency: 4,
		DefaultTargetLanguage:  "ja",
		DefaultStyle:           "serious",
		FetcherBinary:          "streamlink",
		FetcherArgs:            []string{"--stdout", "{url}", "best"},
		DecoderBinary:          "ffmpeg",
		TranscriberProvider:    TranscriberWhisper,
		OpenAIAPIKey:           "sk-test",
		GeminiAPIKey:           "gemini-key",
		GeminiModel:            "gemini-2.5-flash",
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when required fields are missing")
	}
}

func TestValidate_InvalidChunkSeconds(t *testing.T) {
	cfg := validConfig()
	cfg.ChunkSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive chunk seconds")
	}
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.SilencePeakThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold above 1")
	}
}

func TestValidate_FetcherArgsNeedURLPlaceholder(t *testing.T) {
	cfg := validConfig()
	cfg.FetcherArgs = []string{"--stdout", "best"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when {url} placeholder is missing")
	}
}

func TestValidate_CloudSpeechNeedsCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.TranscriberProvider = TranscriberCloudSpeech
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when cloud speech credentials are missing")
	}
	cfg.GoogleCloudProjectID = "project-id"
	cfg.GoogleCloudCredentialsJSON = `{"type":"service_account"}`
	cfg.TranscribeLanguages = []string{"en-US", "ja-JP"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.TranscriberProvider = "vosk"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown transcriber provider")
	}
}

func TestValidate_DiscordMirrorNeedsToken(t *testing.T) {
	cfg := validConfig()
	cfg.DiscordMirrorChannelID = "channel-1"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when mirror channel is set without token")
	}
	cfg.DiscordToken = "token"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.DiscordMirrorEnabled() {
		t.Fatal("expected discord mirror to be enabled")
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode")
	}
	cfg.Env = "production"
	if cfg.IsDevelopment() {
		t.Fatal("expected non-development mode")
	}
}
