package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/crimestat/crimestat/internal/adapters/nats"
	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/usecases"
	"github.com/crimestat/crimestat/internal/pkg/metrics"
)

// wsMessage is a pointer or control event sent by the client.
type wsMessage struct {
	Action    string             `json:"action"` // "click" | "move" | "toggle_draw" | "month" | "mode" | "snapshot"
	LatLng    domain.GeoPoint    `json:"latlng"`
	Container domain.ScreenPoint `json:"container"`
	Viewport  domain.Viewport    `json:"viewport"`
	Month     int                `json:"month"`
	Mode      domain.RenderMode  `json:"mode"`
}

// wsReply answers a client message. Render events relayed from NATS are
// sent as they were published.
type wsReply struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WebSocketUpgrade admits upgrade requests for an existing session, given
// as ?session=<id>.
func WebSocketUpgrade(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		id := c.Query("session")
		if id == "" {
			return errBadRequest(c, "session query parameter is required")
		}
		if _, err := deps.Maps.Snapshot(c.UserContext(), id); err != nil {
			return errFromDomain(c, err)
		}
		return c.Next()
	}
}

// WebSocketHandler drives a map session over a WebSocket. The client sends
// pointer events; the server answers each with the new view and relays the
// session's render events published on NATS, including fetch results that
// arrive later.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		id := c.Query("session")
		log := slog.Default().With("session", id, "remote", c.RemoteAddr().String())
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		if deps.NATS != nil {
			sub, err := deps.NATS.Subscribe(natsadapter.SessionSubject(id), func(msg *nats.Msg) {
				_ = writeJSON(json.RawMessage(msg.Data))
			})
			if err != nil {
				log.Error("ws subscribe", "error", err)
				return
			}
			defer func() { _ = sub.Unsubscribe() }()
		}

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		ctx := context.Background()
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(wsReply{Kind: "error", Error: "invalid JSON"})
				continue
			}
			if err := writeJSON(dispatch(ctx, deps.Maps, id, m)); err != nil {
				break
			}
		}
		log.Info("ws client disconnected")
	}
}

// dispatch applies one client message to the session.
func dispatch(ctx context.Context, maps *usecases.MapService, id string, m wsMessage) wsReply {
	var (
		payload any
		err     error
	)
	kind := "view"
	switch m.Action {
	case "click":
		payload, err = maps.PointerClick(ctx, id, usecases.ClickInput{LatLng: m.LatLng, Container: m.Container, Viewport: m.Viewport})
	case "move":
		kind = "tooltip"
		payload, err = maps.PointerMove(ctx, id, m.Container)
	case "toggle_draw":
		payload, err = maps.ToggleDraw(ctx, id)
	case "month":
		payload, err = maps.SelectMonth(ctx, id, m.Month)
	case "mode":
		payload, err = maps.SetRenderMode(ctx, id, m.Mode)
	case "snapshot":
		payload, err = maps.Snapshot(ctx, id)
	default:
		return wsReply{Kind: "error", Error: "unknown action: " + m.Action}
	}
	if err != nil {
		return wsReply{Kind: "error", Error: err.Error()}
	}
	return wsReply{Kind: kind, Payload: payload}
}
