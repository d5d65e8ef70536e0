package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/foxseedlab/jimaku/internal/audio"
	"github.com/foxseedlab/jimaku/internal/process"
)

const urlPlaceholder = "{url}"

// Process is a supervised subprocess owned by one session.
type Process struct {
	name        string
	handle      process.Handle
	diagnostics *Diagnostics
	cleanups    []func() error

	stopOnce sync.Once
}

func newProcess(name string, h process.Handle, cleanups ...func() error) *Process {
	return &Process{
		name:        name,
		handle:      h,
		diagnostics: watchDiagnostics(name, h.Pid(), h.Stderr()),
		cleanups:    cleanups,
	}
}

func (p *Process) Name() string { return p.name }

func (p *Process) Stdout() io.Reader { return p.handle.Stdout() }

func (p *Process) Exited() <-chan struct{} { return p.handle.Exited() }

func (p *Process) Diagnostics() *Diagnostics { return p.diagnostics }

// Stop kills the process and releases everything staged for it. Safe to call more than once;
// an already exited process counts as stopped.
func (p *Process) Stop() {
	p.stopOnce.Do(func() {
		if err := p.handle.Kill(); err != nil {
			slog.Warn("failed to kill process", "process", p.name, "pid", p.handle.Pid(), "error", err)
		}
		for _, cleanup := range p.cleanups {
			if err := cleanup(); err != nil {
				slog.Warn("process cleanup failed", "process", p.name, "error", err)
			}
		}
		slog.Info("process stopped", "process", p.name, "pid", p.handle.Pid(), "exit_error", p.handle.Err(), "stderr_tail", p.diagnostics.Tail())
	})
}

type FetcherConfig struct {
	Binary      string
	Args        []string
	Cookies     string
	CookiesFlag string
}

// Fetcher runs the stream acquisition tool that writes the raw media stream to stdout.
type Fetcher struct {
	runner process.Runner
	cfg    FetcherConfig
}

func NewFetcher(runner process.Runner, cfg FetcherConfig) *Fetcher {
	if cfg.Binary == "" {
		cfg.Binary = "streamlink"
	}
	if len(cfg.Args) == 0 {
		cfg.Args = []string{"--stdout", urlPlaceholder, "best"}
	}
	if cfg.CookiesFlag == "" {
		cfg.CookiesFlag = "--cookies"
	}
	return &Fetcher{runner: runner, cfg: cfg}
}

func (f *Fetcher) Start(ctx context.Context, streamURL string) (*Process, error) {
	args := expandURL(f.cfg.Args, streamURL)

	var staged *stagedCredential
	if strings.TrimSpace(f.cfg.Cookies) != "" {
		var err error
		staged, err = stageCredential(f.cfg.Cookies)
		if err != nil {
			return nil, err
		}
		args = append([]string{f.cfg.CookiesFlag, staged.path}, args...)
	}

	h, err := f.runner.Spawn(ctx, process.Command{Name: f.cfg.Binary, Args: args})
	if err != nil {
		if eraseErr := staged.Erase(); eraseErr != nil {
			slog.Warn("failed to erase staged credentials", "error", eraseErr)
		}
		return nil, fmt.Errorf("start fetcher: %w", err)
	}
	slog.Info("fetcher started", "binary", f.cfg.Binary, "pid", h.Pid(), "with_cookies", staged != nil)
	return newProcess("fetcher", h, staged.Erase), nil
}

func expandURL(args []string, streamURL string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, strings.ReplaceAll(a, urlPlaceholder, streamURL))
	}
	return out
}

// Decoder runs the transcoder that turns the fetched media into raw PCM on stdout.
type Decoder struct {
	runner process.Runner
	binary string
	format audio.Format
}

func NewDecoder(runner process.Runner, binary string, format audio.Format) *Decoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Decoder{runner: runner, binary: binary, format: format}
}

func (d *Decoder) Args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(d.format.Channels),
		"-ar", strconv.Itoa(d.format.SampleRate),
		"pipe:1",
	}
}

func (d *Decoder) Start(ctx context.Context, input io.Reader) (*Process, error) {
	h, err := d.runner.Spawn(ctx, process.Command{Name: d.binary, Args: d.Args(), Stdin: input})
	if err != nil {
		return nil, fmt.Errorf("start decoder: %w", err)
	}
	slog.Info("decoder started", "binary", d.binary, "pid", h.Pid(), "sample_rate", d.format.SampleRate, "channels", d.format.Channels)
	return newProcess("decoder", h), nil
}
