package discord

import (
	"context"
	"strings"
	"testing"

	"github.com/foxseedlab/jimaku/internal/broadcast"
	"github.com/foxseedlab/jimaku/internal/translator"
)

type mockClient struct {
	channelIDs []string
	contents   []string
	deadlines  []bool
}

func (m *mockClient) SendChannelMessage(ctx context.Context, channelID, content string) error {
	_, ok := ctx.Deadline()
	m.deadlines = append(m.deadlines, ok)
	m.channelIDs = append(m.channelIDs, channelID)
	m.contents = append(m.contents, content)
	return nil
}

func (m *mockClient) Close() error { return nil }

func TestMirrorConn_SendsTranslatedSubtitle(t *testing.T) {
	client := &mockClient{}
	conn := NewMirrorConn(client, "123")
	if conn.ConnectionID() != "discord:123" {
		t.Fatalf("unexpected connection id: %s", conn.ConnectionID())
	}

	err := conn.Send(context.Background(), broadcast.SubtitleEvent(broadcast.Subtitle{Original: "hello", Translated: "こんにちは"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.contents) != 1 || client.channelIDs[0] != "123" {
		t.Fatalf("unexpected sends: %v", client.contents)
	}
	if client.contents[0] != "こんにちは\n-# hello" {
		t.Fatalf("unexpected content: %q", client.contents[0])
	}
}

func TestMirrorConn_BoundsEachPost(t *testing.T) {
	client := &mockClient{}
	conn := NewMirrorConn(client, "123")
	if err := conn.Send(context.Background(), broadcast.SubtitleEvent(broadcast.Subtitle{Original: "hello", Translated: "hi"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.deadlines) != 1 || !client.deadlines[0] {
		t.Fatal("expected the post to carry a deadline")
	}
}

func TestMirrorConn_SkipsEmptyEvents(t *testing.T) {
	client := &mockClient{}
	conn := NewMirrorConn(client, "123")
	_ = conn.Send(context.Background(), broadcast.AnalysisEvent(translator.Analysis{Category: "talk"}))
	if len(client.contents) != 0 {
		t.Fatalf("expected no message for an empty analysis, got %v", client.contents)
	}
}

func TestFormatEvent_BypassShowsOriginalOnce(t *testing.T) {
	got := FormatEvent(broadcast.SubtitleEvent(broadcast.Subtitle{Original: "hello", Translated: "hello"}))
	if got != "hello" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestFormatEvent_SessionState(t *testing.T) {
	got := FormatEvent(broadcast.SessionStateEvent(broadcast.SessionState{Running: false, Reason: "stream_ended"}))
	if !strings.Contains(got, "stream_ended") {
		t.Fatalf("expected stop reason in message: %q", got)
	}
}

func TestFormatEvent_TruncatesLongMessages(t *testing.T) {
	long := strings.Repeat("あ", maxMessageRunes+10)
	got := FormatEvent(broadcast.SubtitleEvent(broadcast.Subtitle{Original: long, Translated: long}))
	if n := len([]rune(got)); n != maxMessageRunes {
		t.Fatalf("expected %d runes, got %d", maxMessageRunes, n)
	}
}
