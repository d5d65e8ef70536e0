package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"
)

// ErrEndOfStream is returned by ChunkReader when the decoder output ends or yields a short chunk.
var ErrEndOfStream = errors.New("audio: end of stream")

const (
	DefaultSampleRate    = 16000
	DefaultChannels      = 1
	DefaultSampleWidth   = 2
	DefaultChunkDuration = 4 * time.Second
	// DefaultSilenceThreshold is roughly -46 dBFS, i.e. near-digital silence.
	DefaultSilenceThreshold = 0.005
)

// Format describes interleaved little-endian signed PCM.
type Format struct {
	SampleRate  int
	Channels    int
	SampleWidth int
}

func DefaultFormat() Format {
	return Format{SampleRate: DefaultSampleRate, Channels: DefaultChannels, SampleWidth: DefaultSampleWidth}
}

// ChunkBytes returns the byte length of a chunk of the given duration.
func (f Format) ChunkBytes(d time.Duration) int {
	frames := int(d.Seconds() * float64(f.SampleRate))
	return frames * f.SampleWidth * f.Channels
}

// Chunk is a fixed-duration slice of decoded PCM. It is not modified after ReadChunk returns it.
type Chunk struct {
	Seq    int64
	PCM    []byte
	Format Format
	Peak   float64
	Silent bool
}

// SilenceGate drops chunks whose peak amplitude is below Threshold.
type SilenceGate struct {
	Threshold float64
}

func (g SilenceGate) IsSilent(peak float64) bool {
	return peak < g.Threshold
}

// PeakAmplitude returns the peak absolute sample value of 16-bit little-endian PCM normalised to [0, 1].
func PeakAmplitude(pcm []byte) float64 {
	var peak int32
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int32(int16(binary.LittleEndian.Uint16(pcm[i : i+2])))
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return math.Min(float64(peak)/32768.0, 1)
}

// ChunkReader cuts a PCM byte stream into fixed-size chunks.
type ChunkReader struct {
	r         io.Reader
	format    Format
	chunkSize int
	gate      SilenceGate
	seq       int64
}

func NewChunkReader(r io.Reader, format Format, duration time.Duration, gate SilenceGate) *ChunkReader {
	return &ChunkReader{
		r:         r,
		format:    format,
		chunkSize: format.ChunkBytes(duration),
		gate:      gate,
	}
}

func (c *ChunkReader) ChunkSize() int {
	return c.chunkSize
}

// ReadChunk blocks until a full chunk is available. A partial or empty read ends the stream.
func (c *ChunkReader) ReadChunk() (Chunk, error) {
	if c.chunkSize <= 0 {
		return Chunk{}, ErrEndOfStream
	}
	buf := make([]byte, c.chunkSize)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Chunk{}, ErrEndOfStream
		}
		return Chunk{}, err
	}
	c.seq++
	peak := PeakAmplitude(buf)
	return Chunk{
		Seq:    c.seq,
		PCM:    buf,
		Format: c.format,
		Peak:   peak,
		Silent: c.gate.IsSilent(peak),
	}, nil
}
