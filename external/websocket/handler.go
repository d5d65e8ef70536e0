package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/jimaku/internal/broadcast"
	"github.com/foxseedlab/jimaku/internal/listener"
	"github.com/foxseedlab/jimaku/internal/translator"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPongWait     = 60 * time.Second
	maxInboundBytes     = 4096

	messageTypeUpdateSettings = "update_settings"
	messageTypeJoin           = "join"
	messageTypeSettings       = "settings"
	messageTypeError          = "error"
)

// ListenerSurface is the part of the session controller a listener connection talks to.
type ListenerSurface interface {
	OnConnect(id string, conn broadcast.Conn) listener.Settings
	OnDisconnect(id string)
	OnUpdateSettings(id string, u listener.Update) (listener.Settings, bool)
	Rejoin(s listener.Settings) listener.Settings
}

type Config struct {
	WriteTimeout time.Duration
	PongWait     time.Duration
}

type Handler struct {
	surface  ListenerSurface
	cfg      Config
	upgrader websocket.Upgrader
}

func NewHandler(surface ListenerSurface, cfg Config) *Handler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	return &Handler{
		surface: surface,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type           string  `json:"type"`
	TargetLanguage *string `json:"target_language,omitempty"`
	Style          *string `json:"style,omitempty"`
}

type settingsMessage struct {
	Type           string   `json:"type"`
	ConnectionID   string   `json:"connection_id"`
	TargetLanguage string   `json:"target_language"`
	Style          string   `json:"style"`
	Styles         []string `json:"styles"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newSettingsMessage(s listener.Settings) settingsMessage {
	styles := translator.Styles()
	names := make([]string, 0, len(styles))
	for _, st := range styles {
		names = append(names, string(st))
	}
	return settingsMessage{
		Type:           messageTypeSettings,
		ConnectionID:   s.ConnectionID,
		TargetLanguage: s.TargetLanguage,
		Style:          string(s.Style.Resolve()),
		Styles:         names,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	ws.SetReadLimit(maxInboundBytes)

	id := uuid.NewString()
	conn := newConn(ws, h.cfg.WriteTimeout)
	settings := h.surface.OnConnect(id, conn)
	slog.Info("listener connected", "connection_id", id, "remote_addr", r.RemoteAddr)
	defer func() {
		h.surface.OnDisconnect(id)
		conn.close(websocket.CloseNormalClosure, "")
		slog.Info("listener disconnected", "connection_id", id)
	}()

	ctx := r.Context()
	if err := conn.writeJSON(ctx, newSettingsMessage(settings)); err != nil {
		slog.Warn("failed to send initial settings", "connection_id", id, "error", err)
		return
	}

	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})
	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(conn, done)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, websocket.ErrCloseSent) {
				slog.Debug("listener read ended", "connection_id", id, "error", err)
			}
			return
		}
		h.handleMessage(ctx, id, conn, data)
	}
}

func (h *Handler) handleMessage(ctx context.Context, id string, conn *Conn, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		_ = conn.writeJSON(ctx, errorMessage{Type: messageTypeError, Message: "invalid json"})
		return
	}
	switch msg.Type {
	case messageTypeUpdateSettings:
		s, ok := h.surface.OnUpdateSettings(id, listener.Update{TargetLanguage: msg.TargetLanguage, Style: msg.Style})
		if !ok {
			slog.Debug("settings update for unregistered listener ignored", "connection_id", id)
			_ = conn.writeJSON(ctx, errorMessage{Type: messageTypeError, Message: "not joined; send a join message first"})
			return
		}
		slog.Info("listener settings updated", "connection_id", id, "target_language", s.TargetLanguage, "style", s.Style)
		_ = conn.writeJSON(ctx, newSettingsMessage(s))
	case messageTypeJoin:
		s := listener.Settings{ConnectionID: id}
		if msg.TargetLanguage != nil {
			s.TargetLanguage = *msg.TargetLanguage
		}
		if msg.Style != nil {
			s.Style = translator.Style(*msg.Style)
		}
		s = h.surface.Rejoin(s)
		slog.Info("listener rejoined", "connection_id", id, "target_language", s.TargetLanguage, "style", s.Style)
		_ = conn.writeJSON(ctx, newSettingsMessage(s))
	default:
		_ = conn.writeJSON(ctx, errorMessage{Type: messageTypeError, Message: "unknown message type"})
	}
}

// keepAlive pings the peer until done closes. Pongs extend the read deadline.
func (h *Handler) keepAlive(conn *Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PongWait / 2)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
