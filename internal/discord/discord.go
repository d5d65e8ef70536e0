package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/jimaku/internal/broadcast"
)

// ConnectionIDPrefix namespaces Discord mirror listeners in the client registry.
const ConnectionIDPrefix = "discord:"

// maxMessageRunes is Discord's message length limit.
const maxMessageRunes = 2000

// sendTimeout bounds one channel post. Deliveries block the next chunk.
const sendTimeout = 5 * time.Second

type Client interface {
	SendChannelMessage(ctx context.Context, channelID, content string) error
	Close() error
}

// MirrorConn posts subtitles into a text channel as a listener would see them.
type MirrorConn struct {
	client    Client
	channelID string
}

func NewMirrorConn(client Client, channelID string) *MirrorConn {
	return &MirrorConn{client: client, channelID: channelID}
}

func (m *MirrorConn) ConnectionID() string {
	return ConnectionIDPrefix + m.channelID
}

func (m *MirrorConn) Send(ctx context.Context, ev broadcast.Event) error {
	content := FormatEvent(ev)
	if content == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return m.client.SendChannelMessage(ctx, m.channelID, content)
}

// FormatEvent renders ev as a Discord message. Events with nothing to show render as "".
func FormatEvent(ev broadcast.Event) string {
	switch ev.Type {
	case broadcast.EventSubtitle:
		if ev.Subtitle == nil {
			return ""
		}
		s := ev.Subtitle
		if s.Translated == s.Original {
			return truncate(s.Original)
		}
		return truncate(fmt.Sprintf("%s\n-# %s", s.Translated, s.Original))
	case broadcast.EventAnalysisUpdate:
		if ev.Analysis == nil || ev.Analysis.Summary == "" {
			return ""
		}
		return truncate(fmt.Sprintf(":mag: **%s**\n%s", ev.Analysis.Category, ev.Analysis.Summary))
	case broadcast.EventSessionState:
		if ev.State == nil {
			return ""
		}
		if ev.State.Running {
			return ":microphone2: **Live subtitles started.**"
		}
		if ev.State.Reason == "" {
			return ":pause_button: **Live subtitles stopped.**"
		}
		return fmt.Sprintf(":pause_button: **Live subtitles stopped.** (%s)", ev.State.Reason)
	default:
		return ""
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxMessageRunes {
		return s
	}
	return string(r[:maxMessageRunes-1]) + "…"
}
