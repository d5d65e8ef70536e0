package config

import (
	"fmt"
	"strings"
	"time"
)

// URLPlaceholder is replaced with the stream URL in FETCHER_ARGS.
const URLPlaceholder = "{url}"

const (
	TranscriberCloudSpeech = "cloud_speech"
	TranscriberWhisper     = "whisper"
)

type Config struct {
	Env      string
	HTTPAddr string

	ChunkSeconds           int
	SampleRate             int
	SilencePeakThreshold   float64
	ContextWindowSize      int
	CapabilityTimeout      time.Duration
	TranslationConcurrency int
	DefaultTargetLanguage  string
	DefaultStyle           string
	RefusalPatterns        []string
	AnalysisEvery          int

	FetcherBinary      string
	FetcherArgs        []string
	FetcherCookies     string
	FetcherCookiesFlag string
	DecoderBinary      string

	TranscriberProvider        string
	TranscribeLanguages        []string
	OpenAIAPIKey               string
	OpenAIBaseURL              string
	WhisperModel               string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	GeminiAPIKey string
	GeminiModel  string

	DatabaseURL       string
	SessionWebhookURL string

	DiscordToken                string
	DiscordMirrorChannelID      string
	DiscordMirrorTargetLanguage string
	DiscordMirrorStyle          string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.ChunkSeconds <= 0 {
		return fmt.Errorf("CHUNK_SECONDS must be positive, got %d", c.ChunkSeconds)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.SilencePeakThreshold < 0 || c.SilencePeakThreshold >= 1 {
		return fmt.Errorf("SILENCE_PEAK_THRESHOLD must be in [0, 1), got %v", c.SilencePeakThreshold)
	}
	if c.ContextWindowSize < 0 {
		return fmt.Errorf("CONTEXT_WINDOW_SIZE must not be negative, got %d", c.ContextWindowSize)
	}
	if c.CapabilityTimeout <= 0 {
		return fmt.Errorf("CAPABILITY_TIMEOUT must be positive, got %s", c.CapabilityTimeout)
	}
	if c.TranslationConcurrency <= 0 {
		return fmt.Errorf("TRANSLATION_CONCURRENCY must be positive, got %d", c.TranslationConcurrency)
	}
	if c.AnalysisEvery < 0 {
		return fmt.Errorf("ANALYSIS_EVERY must not be negative, got %d", c.AnalysisEvery)
	}
	if !hasURLPlaceholder(c.FetcherArgs) {
		return fmt.Errorf("FETCHER_ARGS must contain the {url} placeholder")
	}
	switch c.TranscriberProvider {
	case TranscriberCloudSpeech:
		if c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON are required when TRANSCRIBER_PROVIDER=%s", TranscriberCloudSpeech)
		}
		if len(c.TranscribeLanguages) == 0 {
			return fmt.Errorf("TRANSCRIBE_LANGUAGES is required when TRANSCRIBER_PROVIDER=%s", TranscriberCloudSpeech)
		}
	case TranscriberWhisper:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when TRANSCRIBER_PROVIDER=%s", TranscriberWhisper)
		}
	default:
		return fmt.Errorf("TRANSCRIBER_PROVIDER must be %q or %q, got %q", TranscriberCloudSpeech, TranscriberWhisper, c.TranscriberProvider)
	}
	if c.DiscordMirrorChannelID != "" && c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required when DISCORD_MIRROR_CHANNEL_ID is set")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "DEFAULT_TARGET_LANGUAGE", value: c.DefaultTargetLanguage},
		{name: "DEFAULT_STYLE", value: c.DefaultStyle},
		{name: "FETCHER_BINARY", value: c.FetcherBinary},
		{name: "DECODER_BINARY", value: c.DecoderBinary},
		{name: "GEMINI_API_KEY", value: c.GeminiAPIKey},
		{name: "GEMINI_MODEL", value: c.GeminiModel},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DiscordMirrorEnabled reports whether subtitles are mirrored into a Discord text channel.
func (c *Config) DiscordMirrorEnabled() bool {
	return c.DiscordToken != "" && c.DiscordMirrorChannelID != ""
}

func hasURLPlaceholder(args []string) bool {
	for _, v := range args {
		if strings.Contains(v, URLPlaceholder) {
			return true
		}
	}
	return false
}
