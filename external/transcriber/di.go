package transcriber

import (
	"fmt"

	"github.com/foxseedlab/jimaku/internal/config"
	"github.com/foxseedlab/jimaku/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Service, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.TranscriberProvider {
		case config.TranscriberCloudSpeech:
			return NewCloudSpeechTranscriber(CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Languages:       c.TranscribeLanguages,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
			}), nil
		case config.TranscriberWhisper:
			return NewWhisperTranscriber(WhisperConfig{
				APIKey:  c.OpenAIAPIKey,
				BaseURL: c.OpenAIBaseURL,
				Model:   c.WhisperModel,
			}, nil), nil
		default:
			return nil, fmt.Errorf("unknown transcriber provider %q", c.TranscriberProvider)
		}
	})
}
