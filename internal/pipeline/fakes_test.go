package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/foxseedlab/jimaku/internal/audio"
	"github.com/foxseedlab/jimaku/internal/broadcast"
	"github.com/foxseedlab/jimaku/internal/translator"
)

type fakeTranscriber struct {
	mu          sync.Mutex
	texts       []string
	err         error
	calls       int
	hints       []string
	wavs        [][]byte
	hadDeadline bool
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wav []byte, _ int, hint string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.hints = append(f.hints, hint)
	f.wavs = append(f.wavs, wav)
	_, f.hadDeadline = ctx.Deadline()
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "", nil
	}
	text := f.texts[0]
	f.texts = f.texts[1:]
	return text, nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDetector struct {
	code string
	err  error
}

func (f *fakeDetector) Detect(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.code, nil
}

type fakeTranslator struct {
	mu       sync.Mutex
	requests []translator.Request
	// replies is keyed by target language; a missing key echoes a tagged translation.
	replies map[string]string
	errs    map[string]error
	onCall  func()
}

func (f *fakeTranslator) Translate(_ context.Context, req translator.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	if err, ok := f.errs[req.TargetLanguage]; ok {
		return "", err
	}
	if reply, ok := f.replies[req.TargetLanguage]; ok {
		return reply, nil
	}
	return "[" + req.TargetLanguage + "/" + string(req.Style) + "]", nil
}

func (f *fakeTranslator) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type delivered struct {
	id string
	ev broadcast.Event
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []delivered
}

func (f *fakeBroadcaster) Deliver(_ context.Context, id string, ev broadcast.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, delivered{id: id, ev: ev})
}

func (f *fakeBroadcaster) DeliverAll(context.Context, broadcast.Event) {}

func (f *fakeBroadcaster) subtitlesFor(id string) []broadcast.Subtitle {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []broadcast.Subtitle
	for _, d := range f.events {
		if d.id == id && d.ev.Subtitle != nil {
			out = append(out, *d.ev.Subtitle)
		}
	}
	return out
}

var errBoom = errors.New("boom")

// tinyFormat keeps test chunks small: one second is four 16-bit samples.
var tinyFormat = audio.Format{SampleRate: 4, Channels: 1, SampleWidth: 2}

func silentPCM() []byte {
	return make([]byte, tinyFormat.ChunkBytes(time.Second))
}

func loudPCM() []byte {
	return bytes.Repeat([]byte{0xff, 0x7f}, tinyFormat.ChunkBytes(time.Second)/2)
}

func chunkReaderFor(pcm ...[]byte) *audio.ChunkReader {
	return audio.NewChunkReader(bytes.NewReader(bytes.Join(pcm, nil)), tinyFormat, time.Second, audio.SilenceGate{Threshold: audio.DefaultSilenceThreshold})
}
