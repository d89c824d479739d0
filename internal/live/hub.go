// Package live serves the websocket that keeps a browser's editor and
// preview in sync. The server mirrors both views and runs a scroll sync
// session between them; the browser only applies the resulting commands.
package live

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/patrickward/livepad/internal/files"
	"github.com/patrickward/livepad/internal/logging"
	"github.com/patrickward/livepad/internal/rendering"
	"github.com/patrickward/livepad/internal/scrollsync"
	"github.com/patrickward/livepad/internal/workers"
)

// Hub tracks the connected clients.
type Hub struct {
	renderer *rendering.MarkdownRenderer
	worker   *workers.BackgroundWorker
	opts     scrollsync.Options
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub returns a hub whose clients render with renderer and run their
// render loops on worker.
func NewHub(renderer *rendering.MarkdownRenderer, worker *workers.BackgroundWorker, opts scrollsync.Options) *Hub {
	return &Hub{
		renderer: renderer,
		worker:   worker,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		log:     logging.Component("live"),
		clients: make(map[*Client]struct{}),
	}
}

// ServeDocument upgrades the request and runs a live session for doc
// until the browser disconnects.
func (h *Hub) ServeDocument(w http.ResponseWriter, r *http.Request, doc *files.Document) {
	content, err := doc.Content()
	if err != nil {
		h.log.Error().Err(err).Str("doc", doc.Info.ID).Msg("failed to load document")
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	log := h.log.With().Str("doc", doc.Info.ID).Str("remote", r.RemoteAddr).Logger()
	c := newClient(conn, doc, content, h.renderer, h.opts, log)

	h.register(c)
	defer h.unregister(c)
	defer c.shutdown()

	h.worker.StartOneTimeTask(fmt.Sprintf("render:%s:%p", doc.Info.ID, c), c.renderLoop)
	go c.writePump()

	c.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	c.log.Info().Int("clients", n).Msg("client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.log.Info().Int("clients", n).Msg("client disconnected")
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// ScheduleStats logs the number of connected clients every interval.
func (h *Hub) ScheduleStats(interval time.Duration) {
	h.worker.AddPeriodicTask("live-stats", interval, func(ctx context.Context) error {
		h.log.Debug().Int("clients", h.Count()).Msg("live sessions")
		return nil
	})
}
