package transcriber

import "context"

// Service converts one WAV-wrapped PCM chunk into text. hint carries the previous chunk's
// transcript so the engine can keep continuity across chunk boundaries; it may be empty.
type Service interface {
	Transcribe(ctx context.Context, wav []byte, sampleRate int, hint string) (string, error)
}
