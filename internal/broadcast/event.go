package broadcast

import "github.com/foxseedlab/jimaku/internal/translator"

type EventType string

const (
	EventSubtitle       EventType = "subtitle"
	EventAnalysisUpdate EventType = "analysis_update"
	EventSessionState   EventType = "session_state"
)

// Event is the JSON envelope written to listeners. Exactly one payload field is set, matching Type.
type Event struct {
	Type     EventType            `json:"type"`
	Subtitle *Subtitle            `json:"subtitle,omitempty"`
	Analysis *translator.Analysis `json:"analysis,omitempty"`
	State    *SessionState        `json:"state,omitempty"`
}

type Subtitle struct {
	Seq            int64  `json:"seq"`
	Original       string `json:"original"`
	Translated     string `json:"translated"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Style          string `json:"style"`
}

type SessionState struct {
	Running   bool   `json:"running"`
	StreamURL string `json:"stream_url,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func SubtitleEvent(s Subtitle) Event {
	return Event{Type: EventSubtitle, Subtitle: &s}
}

func AnalysisEvent(a translator.Analysis) Event {
	return Event{Type: EventAnalysisUpdate, Analysis: &a}
}

func SessionStateEvent(s SessionState) Event {
	return Event{Type: EventSessionState, State: &s}
}
