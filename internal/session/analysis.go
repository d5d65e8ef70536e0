package session

import (
	"context"
	"log/slog"

	"github.com/foxseedlab/jimaku/internal/broadcast"
	"github.com/foxseedlab/jimaku/internal/pipeline"
)

// analysisHook asks the analyzer about the stream every AnalysisEvery transcripts. At most one
// analysis runs at a time and subtitles never wait for it.
func (c *Controller) analysisHook(s *activeSession) pipeline.TranscriptHook {
	every := c.cfg.AnalysisEvery
	if c.deps.Analyzer == nil || every <= 0 {
		return nil
	}
	var count int
	return func(_ pipeline.Transcript, window []string) {
		count++
		if count%every != 0 {
			return
		}
		if !s.analysisInFlight.CompareAndSwap(false, true) {
			slog.Debug("analysis still in flight; skipping", "run_id", s.runID)
			return
		}
		c.workers.Add(1)
		go c.runAnalysis(s, window)
	}
}

func (c *Controller) runAnalysis(s *activeSession, lines []string) {
	defer c.workers.Done()
	defer s.analysisInFlight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CapabilityTimeout)
	defer cancel()
	a, err := c.deps.Analyzer.Analyze(ctx, lines)
	if err != nil {
		slog.Warn("stream analysis failed", "run_id", s.runID, "error", err)
		return
	}
	if a.Category == "" && a.Summary == "" {
		return
	}
	if !s.isRunning() {
		return
	}
	ev := broadcast.AnalysisEvent(a)
	for _, l := range c.registry.Snapshot() {
		c.hub.Deliver(ctx, l.ConnectionID, ev)
	}
}
