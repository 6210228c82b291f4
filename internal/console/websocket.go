// Package console exposes the logging conversation over a WebSocket, for
// local development and smoke testing without a chat platform.
package console

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/ashureev/daylog/internal/flow"
	"github.com/ashureev/daylog/internal/session"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// LoopbackOrigins are the browser origins accepted when none are configured.
// Clients that send no Origin header, and same-host pages, are always accepted.
var LoopbackOrigins = []string{"localhost", "localhost:*", "127.0.0.1", "127.0.0.1:*", `\[::1\]`, `\[::1\]:*`}

// Engine is the part of flow.Engine the console drives.
type Engine interface {
	Begin(ctx context.Context, userID, userName string, dest session.Destination) error
	HandleMessage(userID, channelID, text string) bool
	Abandon(userID, channelID string) bool
}

// Message is the JSON frame exchanged in both directions.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Frame types.
const (
	TypeMessage = "message"
	TypeError   = "error"
)

// Handler upgrades requests to console WebSocket sessions.
type Handler struct {
	engine  Engine
	prefix  string
	origins []string
	seq     atomic.Int64
}

// NewHandler creates a console handler using the given command prefix.
// origins are host patterns for cross-origin browsers; empty means LoopbackOrigins.
func NewHandler(engine Engine, prefix string, origins ...string) *Handler {
	if len(origins) == 0 {
		origins = LoopbackOrigins
	}
	return &Handler{engine: engine, prefix: prefix, origins: origins}
}

// conn adapts a WebSocket to session.Destination.
type conn struct {
	ws *websocket.Conn
	id string
	mu sync.Mutex
}

func (c *conn) ChannelID() string {
	return c.id
}

func (c *conn) Send(ctx context.Context, text string) error {
	return c.writeJSON(ctx, Message{Type: TypeMessage, Content: text})
}

func (c *conn) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if !userIDPattern.MatchString(userID) {
		id, err := generateAnonID()
		if err != nil {
			http.Error(w, "failed to assign identity", http.StatusInternalServerError)
			return
		}
		userID = id
	}
	userName := strings.TrimSpace(r.URL.Query().Get("name"))
	if userName == "" {
		userName = userID
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "console closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	c := &conn{ws: ws, id: fmt.Sprintf("console:%s:%d", userID, h.seq.Add(1))}
	defer h.engine.Abandon(userID, c.id)

	slog.Info("Console connected", "user_id", userID, "channel_id", c.id)
	h.readLoop(r.Context(), c, userID, userName)
	slog.Info("Console disconnected", "user_id", userID, "channel_id", c.id)
}

func (h *Handler) readLoop(ctx context.Context, c *conn, userID, userName string) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Debug("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Fallback to raw text.
			msg = Message{Type: TypeMessage, Content: string(data)}
		}
		if msg.Type != "" && msg.Type != TypeMessage {
			continue
		}

		switch flow.ParseCommand(h.prefix, msg.Content) {
		case flow.CommandStartLog:
			if err := h.engine.Begin(ctx, userID, userName, c); err != nil {
				slog.Warn("Console flow failed to start", "user_id", userID, "error", err)
				_ = c.writeJSON(ctx, Message{Type: TypeError, Content: "Could not start the activity log."})
			}
		case flow.CommandHello:
			_ = c.Send(ctx, fmt.Sprintf("Hello, %s!", userName))
		default:
			if !h.engine.HandleMessage(userID, c.id, msg.Content) {
				slog.Debug("Console message ignored", "user_id", userID)
			}
		}
	}
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}
