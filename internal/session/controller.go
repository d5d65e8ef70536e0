package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/jimaku/internal/audio"
	"github.com/foxseedlab/jimaku/internal/broadcast"
	"github.com/foxseedlab/jimaku/internal/config"
	"github.com/foxseedlab/jimaku/internal/listener"
	"github.com/foxseedlab/jimaku/internal/media"
	"github.com/foxseedlab/jimaku/internal/pipeline"
	"github.com/foxseedlab/jimaku/internal/process"
	"github.com/foxseedlab/jimaku/internal/repository"
	"github.com/foxseedlab/jimaku/internal/transcriber"
	"github.com/foxseedlab/jimaku/internal/translator"
	"github.com/foxseedlab/jimaku/internal/webhook"
	"github.com/google/uuid"
)

const (
	repositoryTimeout = 10 * time.Second
	finalizeTimeout   = 30 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("session already running")
	ErrEmptyStreamURL = errors.New("stream url is empty")
)

// Mirror is a listener that is registered on every session start, such as a chat channel.
type Mirror struct {
	Settings listener.Settings
	Conn     broadcast.Conn
}

type Dependencies struct {
	Runner      process.Runner
	Transcriber transcriber.Service
	Detector    translator.Detector
	Translator  translator.Translator
	// Analyzer is optional.
	Analyzer   translator.Analyzer
	Refusals   translator.RefusalMatcher
	Repository repository.Repository
	Webhook    webhook.Sender
	Mirrors    []Mirror
}

type Status struct {
	Running   bool       `json:"running"`
	RunID     string     `json:"run_id,omitempty"`
	StreamURL string     `json:"stream_url,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Listeners int        `json:"listeners"`
}

// Controller owns the single active session, the listener registry and the outbound hub.
type Controller struct {
	cfg      *config.Config
	deps     Dependencies
	format   audio.Format
	registry *listener.Registry
	hub      *broadcast.Hub

	// lifecycle serialises Start, stop and teardown so session_state events reach
	// connections in the order the sessions changed.
	lifecycle sync.Mutex
	mu        sync.Mutex
	active    *activeSession

	workers sync.WaitGroup
}

type activeSession struct {
	runID     string
	streamURL string
	startedAt time.Time
	fetcher   *media.Process
	decoder   *media.Process

	running          atomic.Bool
	requestedReason  atomic.Value
	analysisInFlight atomic.Bool
	stopAnnounced    atomic.Bool
}

func (s *activeSession) isRunning() bool {
	return s.running.Load()
}

// requestStop flips the running flag once and records why.
func (s *activeSession) requestStop(reason StopReason) {
	if s.running.CompareAndSwap(true, false) {
		s.requestedReason.Store(reason)
	}
}

func (s *activeSession) stopProcesses() {
	s.decoder.Stop()
	s.fetcher.Stop()
}

func (s *activeSession) stderrTail() []string {
	var tail []string
	for _, p := range []*media.Process{s.fetcher, s.decoder} {
		for _, line := range p.Diagnostics().Tail() {
			tail = append(tail, p.Name()+": "+line)
		}
	}
	return tail
}

func NewController(cfg *config.Config, deps Dependencies) *Controller {
	return &Controller{
		cfg:  cfg,
		deps: deps,
		format: audio.Format{
			SampleRate:  cfg.SampleRate,
			Channels:    audio.DefaultChannels,
			SampleWidth: audio.DefaultSampleWidth,
		},
		registry: listener.NewRegistry(cfg.DefaultTargetLanguage, translator.Style(cfg.DefaultStyle)),
		hub:      broadcast.NewHub(),
	}
}

// Start launches the fetch and decode processes and the pipeline worker, then returns.
func (c *Controller) Start(streamURL string) error {
	streamURL = strings.TrimSpace(streamURL)
	if streamURL == "" {
		return ErrEmptyStreamURL
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.active != nil {
		runID := c.active.runID
		c.mu.Unlock()
		slog.Info("start requested while a session is running", "run_id", runID)
		return ErrAlreadyRunning
	}
	s, err := c.spawn(streamURL)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.active = s
	c.registerMirrors()
	c.workers.Add(1)
	go c.runSessionWorker(s)
	c.mu.Unlock()

	slog.Info("session started", "run_id", s.runID, "stream_url", streamURL)
	c.hub.DeliverAll(context.Background(), broadcast.SessionStateEvent(broadcast.SessionState{Running: true, StreamURL: streamURL}))
	return nil
}

func (c *Controller) spawn(streamURL string) (*activeSession, error) {
	ctx := context.Background()
	fetcher, err := media.NewFetcher(c.deps.Runner, media.FetcherConfig{
		Binary:      c.cfg.FetcherBinary,
		Args:        c.cfg.FetcherArgs,
		Cookies:     c.cfg.FetcherCookies,
		CookiesFlag: c.cfg.FetcherCookiesFlag,
	}).Start(ctx, streamURL)
	if err != nil {
		return nil, err
	}
	decoder, err := media.NewDecoder(c.deps.Runner, c.cfg.DecoderBinary, c.format).Start(ctx, fetcher.Stdout())
	if err != nil {
		fetcher.Stop()
		return nil, err
	}
	s := &activeSession{
		runID:     uuid.NewString(),
		streamURL: streamURL,
		startedAt: time.Now(),
		fetcher:   fetcher,
		decoder:   decoder,
	}
	s.running.Store(true)
	return s, nil
}

func (c *Controller) registerMirrors() {
	for _, m := range c.deps.Mirrors {
		c.hub.Register(m.Settings.ConnectionID, m.Conn)
		c.registry.OnConnectWith(m.Settings)
	}
}

// Stop ends the active session, if any, and clears the listener registry. It does not wait for
// in-flight capability calls; their results are discarded. Safe to call repeatedly.
func (c *Controller) Stop() {
	c.stop(StopReasonStopRequested)
}

func (c *Controller) stop(reason StopReason) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	s := c.active
	c.active = nil
	c.mu.Unlock()
	c.registry.Clear()
	if s == nil {
		return
	}
	slog.Info("stopping session", "run_id", s.runID, "reason", reason)
	s.requestStop(reason)
	s.stopProcesses()
	c.announceStopped(s, reason)
}

// announceStopped tells every connection that s has ended. Only the first call per session sends.
func (c *Controller) announceStopped(s *activeSession, reason StopReason) {
	if !s.stopAnnounced.CompareAndSwap(false, true) {
		return
	}
	c.hub.DeliverAll(context.Background(), broadcast.SessionStateEvent(broadcast.SessionState{Running: false, Reason: string(reason)}))
}

// Wait blocks until the session worker and its background tasks have finished.
func (c *Controller) Wait() {
	c.workers.Wait()
}

// Shutdown stops the session and waits for it to be finalized.
func (c *Controller) Shutdown() {
	c.stop(StopReasonServerClosed)
	c.Wait()
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	s := c.active
	c.mu.Unlock()
	st := Status{Listeners: c.registry.Len()}
	if s == nil {
		return st
	}
	startedAt := s.startedAt
	st.Running = s.isRunning()
	st.RunID = s.runID
	st.StreamURL = s.streamURL
	st.StartedAt = &startedAt
	return st
}

// CloseOrphanedRuns completes history rows left running by a previous process.
func (c *Controller) CloseOrphanedRuns(ctx context.Context) error {
	n, err := c.deps.Repository.CloseOrphanedRuns(ctx, time.Now(), string(StopReasonServerClosed))
	if err != nil {
		return fmt.Errorf("close orphaned runs: %w", err)
	}
	if n > 0 {
		slog.Warn("closed orphaned session runs", "count", n)
	}
	return nil
}

func (c *Controller) RecentRuns(ctx context.Context, limit int) ([]repository.Run, error) {
	return c.deps.Repository.ListRecentRuns(ctx, limit)
}

func (c *Controller) runSessionWorker(s *activeSession) {
	defer c.workers.Done()
	reason := StopReasonUnknownError
	var stats pipeline.Stats
	defer func() {
		if r := recover(); r != nil {
			slog.Error("session worker panicked", "run_id", s.runID, "panic", r)
			reason = StopReasonUnknownError
		}
		c.teardown(s, reason, stats)
	}()

	c.createRun(s)

	reader := audio.NewChunkReader(
		s.decoder.Stdout(),
		c.format,
		time.Duration(c.cfg.ChunkSeconds)*time.Second,
		audio.SilenceGate{Threshold: c.cfg.SilencePeakThreshold},
	)
	router := pipeline.NewRouter(c.deps.Detector, c.deps.Translator, c.deps.Refusals, pipeline.RouterConfig{
		Timeout:     c.cfg.CapabilityTimeout,
		Concurrency: c.cfg.TranslationConcurrency,
	})
	p := pipeline.New(
		reader,
		pipeline.NewTranscriptionStage(c.deps.Transcriber, c.cfg.CapabilityTimeout),
		pipeline.NewContextWindow(c.cfg.ContextWindowSize),
		router,
		c.registry,
		c.hub,
	)
	p.OnTranscript(c.analysisHook(s))

	var err error
	stats, err = p.Run(context.Background(), s.isRunning)
	reason = classifyStop(s, stats, err)
	if err != nil && !pipeline.IsEndOfStream(err) {
		slog.Error("pipeline read failed", "run_id", s.runID, "error", err)
	}
}

func classifyStop(s *activeSession, stats pipeline.Stats, err error) StopReason {
	if r, ok := s.requestedReason.Load().(StopReason); ok {
		return r
	}
	switch {
	case err == nil:
		return StopReasonStopRequested
	case pipeline.IsEndOfStream(err) && stats.ChunksRead == 0:
		return StopReasonFetchFailed
	case pipeline.IsEndOfStream(err):
		return StopReasonStreamEnded
	default:
		return StopReasonDecodeFailed
	}
}

func (c *Controller) createRun(s *activeSession) {
	ctx, cancel := context.WithTimeout(context.Background(), repositoryTimeout)
	defer cancel()
	if _, err := c.deps.Repository.CreateRun(ctx, repository.CreateRunInput{
		RunID:     s.runID,
		StreamURL: s.streamURL,
		StartedAt: s.startedAt,
	}); err != nil {
		slog.Error("failed to record session run", "run_id", s.runID, "error", err)
	}
}

func (c *Controller) teardown(s *activeSession, reason StopReason, stats pipeline.Stats) {
	s.running.Store(false)
	s.stopProcesses()

	c.lifecycle.Lock()
	c.announceStopped(s, reason)
	c.mu.Lock()
	if c.active == s {
		c.active = nil
	}
	c.mu.Unlock()
	c.lifecycle.Unlock()

	summary := runSummary{
		runID:      s.runID,
		streamURL:  s.streamURL,
		startedAt:  s.startedAt,
		endedAt:    time.Now(),
		reason:     reason,
		stats:      stats,
		stderrTail: s.stderrTail(),
	}
	slog.Info("session ended",
		"run_id", s.runID,
		"reason", reason,
		"chunks_read", stats.ChunksRead,
		"chunks_silent", stats.ChunksSilent,
		"transcripts", stats.Transcripts,
		"deliveries", stats.Deliveries)
	c.workers.Add(1)
	go c.finalizeSession(summary)
}

func (c *Controller) finalizeSession(summary runSummary) {
	defer c.workers.Done()
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	if err := c.deps.Repository.CompleteRun(ctx, summary.completeRunInput()); err != nil {
		slog.Error("failed to complete session run", "run_id", summary.runID, "error", err)
	}
	if err := c.deps.Webhook.SendSessionReport(ctx, summary.report()); err != nil {
		slog.Error("failed to send session report", "run_id", summary.runID, "error", err)
	}
}

// OnConnect registers a listener with default settings and attaches its connection.
func (c *Controller) OnConnect(id string, conn broadcast.Conn) listener.Settings {
	c.hub.Register(id, conn)
	return c.registry.OnConnect(id)
}

// Rejoin registers id again with the given settings, e.g. after Stop cleared the registry.
func (c *Controller) Rejoin(s listener.Settings) listener.Settings {
	return c.registry.OnConnectWith(s)
}

func (c *Controller) OnDisconnect(id string) {
	c.registry.OnDisconnect(id)
	c.hub.Unregister(id)
}

func (c *Controller) OnUpdateSettings(id string, u listener.Update) (listener.Settings, bool) {
	return c.registry.OnUpdate(id, u)
}
