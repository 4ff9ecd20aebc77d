package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hlssource/internal/domain/ports"
)

// wsMessage is the envelope every broadcast LoadEvent is wrapped in.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type wsClient struct {
	hub  *wsEventBridge
	conn *websocket.Conn
	send chan []byte
}

// wsEventBridge is a ports.EventSink that fans LoadEvents out to any
// number of connected websocket clients through a register/unregister/
// broadcast goroutine, so a slow client never blocks the source.
type wsEventBridge struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	logger     *slog.Logger
}

func newWSEventBridge(logger *slog.Logger) *wsEventBridge {
	return &wsEventBridge{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *wsEventBridge) run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

func (h *wsEventBridge) Close() { close(h.done) }

// publish marshals and hands the event to the broadcast goroutine.
// The clients map is owned by run(); publish never touches it.
func (h *wsEventBridge) publish(kind string, data any) {
	payload, err := json.Marshal(wsMessage{Type: kind, Data: data})
	if err != nil {
		h.logger.Error("ws marshal failed", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

func (h *wsEventBridge) OnLoadStarted(evt ports.LoadStartedEvent) { h.publish("load_started", evt) }
func (h *wsEventBridge) OnLoadCompleted(evt ports.LoadCompletedEvent) {
	h.publish("load_completed", evt)
}
func (h *wsEventBridge) OnLoadCanceled(evt ports.LoadCanceledEvent) {
	h.publish("load_canceled", evt)
}
func (h *wsEventBridge) OnLoadError(evt ports.LoadErrorEvent) {
	errText := ""
	if evt.Error != nil {
		errText = evt.Error.Error()
	}
	h.publish("load_error", struct {
		Source     ports.SourceID `json:"source"`
		ChunkType  string         `json:"chunkType"`
		Error      string         `json:"error"`
		RetryCount int            `json:"retryCount"`
		Handled    bool           `json:"handled"`
	}{evt.Source, evt.ChunkType.String(), errText, evt.RetryCount, evt.Handled})
}
func (h *wsEventBridge) OnDownstreamFormatChanged(evt ports.DownstreamFormatChangedEvent) {
	h.publish("format_changed", evt)
}

var _ ports.EventSink = (*wsEventBridge)(nil)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *wsEventBridge) serveHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{hub: h, conn: conn, send: make(chan []byte, 16)}
	h.register <- client
	go client.writePump()
	go client.readPump()
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
