package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/jimaku/internal/config"
)

type envConfig struct {
	Env      string `env:"ENV" envDefault:"production"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	ChunkSeconds           int           `env:"CHUNK_SECONDS" envDefault:"4"`
	SampleRate             int           `env:"SAMPLE_RATE" envDefault:"16000"`
	SilencePeakThreshold   float64       `env:"SILENCE_PEAK_THRESHOLD" envDefault:"0.005"`
	ContextWindowSize      int           `env:"CONTEXT_WINDOW_SIZE" envDefault:"3"`
	CapabilityTimeout      time.Duration `env:"CAPABILITY_TIMEOUT" envDefault:"20s"`
	TranslationConcurrency int           `env:"TRANSLATION_CONCURRENCY" envDefault:"4"`
	DefaultTargetLanguage  string        `env:"DEFAULT_TARGET_LANGUAGE" envDefault:"ja"`
	DefaultStyle           string        `env:"DEFAULT_STYLE" envDefault:"serious"`
	RefusalPatterns        []string      `env:"REFUSAL_PATTERNS" envSeparator:"|"`
	AnalysisEvery          int           `env:"ANALYSIS_EVERY" envDefault:"5"`

	FetcherBinary      string   `env:"FETCHER_BINARY" envDefault:"streamlink"`
	FetcherArgs        []string `env:"FETCHER_ARGS" envSeparator:" " envDefault:"--stdout {url} best"`
	FetcherCookies     string   `env:"FETCHER_COOKIES"`
	FetcherCookiesFlag string   `env:"FETCHER_COOKIES_FLAG" envDefault:"--cookies"`
	DecoderBinary      string   `env:"DECODER_BINARY" envDefault:"ffmpeg"`

	TranscriberProvider        string   `env:"TRANSCRIBER_PROVIDER" envDefault:"whisper"`
	TranscribeLanguages        []string `env:"TRANSCRIBE_LANGUAGES" envSeparator:"," envDefault:"en-US,ja-JP"`
	OpenAIAPIKey               string   `env:"OPENAI_API_KEY"`
	OpenAIBaseURL              string   `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	WhisperModel               string   `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	GoogleCloudProjectID       string   `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string   `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string   `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string   `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`

	GeminiAPIKey string `env:"GEMINI_API_KEY,required"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	DatabaseURL       string `env:"DATABASE_URL"`
	SessionWebhookURL string `env:"SESSION_WEBHOOK_URL"`

	DiscordToken                string `env:"DISCORD_TOKEN"`
	DiscordMirrorChannelID      string `env:"DISCORD_MIRROR_CHANNEL_ID"`
	DiscordMirrorTargetLanguage string `env:"DISCORD_MIRROR_TARGET_LANGUAGE" envDefault:"ja"`
	DiscordMirrorStyle          string `env:"DISCORD_MIRROR_STYLE" envDefault:"serious"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	cfg := fromEnv(raw)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv(raw envConfig) *internalconfig.Config {
	return &internalconfig.Config{
		Env:                         raw.Env,
		HTTPAddr:                    raw.HTTPAddr,
		ChunkSeconds:                raw.ChunkSeconds,
		SampleRate:                  raw.SampleRate,
		SilencePeakThreshold:        raw.SilencePeakThreshold,
		ContextWindowSize:           raw.ContextWindowSize,
		CapabilityTimeout:           raw.CapabilityTimeout,
		TranslationConcurrency:      raw.TranslationConcurrency,
		DefaultTargetLanguage:       raw.DefaultTargetLanguage,
		DefaultStyle:                raw.DefaultStyle,
		RefusalPatterns:             raw.RefusalPatterns,
		AnalysisEvery:               raw.AnalysisEvery,
		FetcherBinary:               raw.FetcherBinary,
		FetcherArgs:                 raw.FetcherArgs,
		FetcherCookies:              raw.FetcherCookies,
		FetcherCookiesFlag:          raw.FetcherCookiesFlag,
		DecoderBinary:               raw.DecoderBinary,
		TranscriberProvider:         raw.TranscriberProvider,
		TranscribeLanguages:         raw.TranscribeLanguages,
		OpenAIAPIKey:                raw.OpenAIAPIKey,
		OpenAIBaseURL:               raw.OpenAIBaseURL,
		WhisperModel:                raw.WhisperModel,
		GoogleCloudProjectID:        raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON:  raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:   raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:      raw.GoogleCloudSpeechModel,
		GeminiAPIKey:                raw.GeminiAPIKey,
		GeminiModel:                 raw.GeminiModel,
		DatabaseURL:                 raw.DatabaseURL,
		SessionWebhookURL:           raw.SessionWebhookURL,
		DiscordToken:                raw.DiscordToken,
		DiscordMirrorChannelID:      raw.DiscordMirrorChannelID,
		DiscordMirrorTargetLanguage: raw.DiscordMirrorTargetLanguage,
		DiscordMirrorStyle:          raw.DiscordMirrorStyle,
	}
}
