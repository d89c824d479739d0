package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/patrickward/livepad/internal/files"
	"github.com/patrickward/livepad/internal/protocol"
	"github.com/patrickward/livepad/internal/rendering"
	"github.com/patrickward/livepad/internal/scrollsync"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Whole documents travel in content messages.
	maxMessageSize = 8 << 20

	sendBuffer = 64
)

// Client is one browser editing one document over a websocket. It owns
// the sync session between the browser's editor and preview.
type Client struct {
	conn     *websocket.Conn
	doc      *files.Document
	renderer *rendering.MarkdownRenderer
	log      zerolog.Logger

	editor  *remoteEditor
	preview *remotePreview
	session *scrollsync.Session

	out     chan []byte
	pending chan string // latest content waiting to be rendered

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, doc *files.Document, content string, renderer *rendering.MarkdownRenderer, opts scrollsync.Options, log zerolog.Logger) *Client {
	c := &Client{
		conn:     conn,
		doc:      doc,
		renderer: renderer,
		log:      log,
		out:      make(chan []byte, sendBuffer),
		pending:  make(chan string, 1),
		done:     make(chan struct{}),
	}
	c.editor = newRemoteEditor(content, c.Send)
	c.preview = newRemotePreview(c.Send)

	if opts.Logger == nil {
		opts.Logger = &c.log
	}
	c.session = scrollsync.Wire(c.editor, c.preview, opts)
	c.queueRender(content)
	return c
}

// Send queues msg for the browser. It never blocks: a client too slow to
// drain its buffer is disconnected.
func (c *Client) Send(msg protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		c.log.Error().Err(err).Str("type", string(msg.MessageType())).Msg("failed to encode message")
		return
	}

	select {
	case <-c.done:
	case c.out <- data:
	default:
		c.log.Warn().Msg("send buffer full, closing connection")
		c.close()
	}
}

// queueRender replaces any content still waiting to be rendered.
func (c *Client) queueRender(content string) {
	for {
		select {
		case c.pending <- content:
			return
		default:
		}
		select {
		case <-c.pending:
		default:
		}
	}
}

// renderLoop renders queued content until the client goes away or ctx is
// cancelled. It runs as a background worker task.
func (c *Client) renderLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.close()
			return nil
		case <-c.done:
			return nil
		case content := <-c.pending:
			c.render(content)
		}
	}
}

func (c *Client) render(content string) {
	rendered := c.renderer.Render(content)
	fragment := string(rendered.HTML)

	c.Send(&protocol.Render{
		HTML:  fragment,
		Title: rendered.Title,
		Tasks: protocol.TaskStats{
			Total:     rendered.TasksTotal,
			Completed: rendered.TasksCompleted,
			Pending:   rendered.TasksPending,
		},
	})

	if err := c.preview.replace(fragment); err != nil {
		c.log.Error().Err(err).Msg("failed to update preview tree")
	}
}

// readPump dispatches browser messages until the connection fails.
func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("connection closed unexpectedly")
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.log.Debug().Err(err).Msg("rejected message")
			c.Send(&protocol.Error{Message: err.Error()})
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Content:
		c.editor.setText(m.Text, m.CursorLine)
		c.queueRender(m.Text)
	case *protocol.Cursor:
		c.editor.setCursor(m.Line)
	case *protocol.Click:
		c.preview.click(m.Path)
	case *protocol.Sync:
		c.session.Sync()
	case *protocol.Save:
		c.save()
	}
}

func (c *Client) save() {
	if err := c.doc.Save(c.editor.Text()); err != nil {
		c.log.Error().Err(err).Msg("failed to save document")
		if errors.Is(err, files.ErrNoRecipients) {
			c.Send(&protocol.Error{Message: "encryption is not configured"})
			return
		}
		c.Send(&protocol.Error{Message: "failed to save document"})
		return
	}
	c.log.Info().Msg("saved document")
	c.Send(&protocol.Saved{ID: c.doc.Info.ID})
}

// writePump drains the send buffer and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// shutdown tears the session down. Views are detached first so nothing
// reaches a connection that is going away.
func (c *Client) shutdown() {
	c.editor.detach()
	c.preview.detach()
	c.session.Close()
	c.close()
}

// close signals every loop of the client to stop. It is safe to call from
// any goroutine, including from inside session callbacks.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		// Unblocks readPump.
		_ = c.conn.SetReadDeadline(time.Now())
	})
}
