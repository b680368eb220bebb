package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/tasks"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = tasks.MaxBodyLen + 1024
	sendBuffer     = 64
)

// Client is one websocket connection hosting a live task view for a
// signed-in identity.
type Client struct {
	Identity domain.Identity
	Conn     *websocket.Conn
	Send     chan []byte
	Done     chan struct{}

	hub  *Hub
	view *tasks.View
	log  *slog.Logger

	sendMu sync.Mutex
	closed bool

	// what the browser last saw
	stateMu    sync.Mutex
	sentAny    bool
	sentDigest string
	sentDraft  tasks.Draft
	sentErr    string
}

func NewClient(identity domain.Identity, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		Identity: identity,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		Done:     make(chan struct{}),
		hub:      hub,
		log:      hub.log.With("identity", identity),

		sentDraft: tasks.Draft{Visibility: domain.VisibilityPrivate},
	}
}

// Run serves the connection until the peer goes away or ctx ends.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.hub.register(c)
	defer c.hub.unregister(c)

	go c.writePump()
	c.enqueue(ReadyPayload{Type: MsgReady, Identity: string(c.Identity)})

	go func() {
		<-ctx.Done()
		_ = c.Conn.Close()
	}()

	c.view = tasks.NewView(c.hub.repo, c.hub.links, c.render)
	if err := c.view.SetIdentity(ctx, c.Identity); err != nil {
		c.log.Error("subscribe failed", "error", err)
		c.sendError(err)
	}

	c.readPump(ctx)

	c.view.Close()
	c.closeSend()
	close(c.Done)
}

// render turns view frames into snapshot, draft and error messages,
// sending only what changed.
func (c *Client) render(f tasks.Frame) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if f.State == tasks.ViewSynced && (!c.sentAny || f.Digest != c.sentDigest) {
		c.sentAny = true
		c.sentDigest = f.Digest
		c.enqueue(SnapshotPayload{Type: MsgSnapshot, Tasks: f.Items, Digest: f.Digest})
	}
	if f.Draft != c.sentDraft {
		c.sentDraft = f.Draft
		c.enqueue(DraftPayload{Type: MsgDraft, Body: f.Draft.Body, Public: f.Draft.Visibility.IsPublic()})
	}
	errText := ""
	if f.Err != nil {
		errText = "task list unavailable"
	}
	if errText != c.sentErr {
		c.sentErr = errText
		if errText != "" {
			c.enqueue(ErrorPayload{Type: MsgError, Error: errText})
		}
	}
}

// WriteText delivers a share link to the browser, which copies it to the
// system clipboard.
func (c *Client) WriteText(ctx context.Context, text string) error {
	if !c.enqueue(ClipboardPayload{Type: MsgClipboard, Text: text}) {
		return errors.New("connection closed")
	}
	return nil
}

func (c *Client) handle(ctx context.Context, raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.enqueue(ErrorPayload{Type: MsgError, Error: "invalid message"})
		return
	}

	switch msg.Type {
	case MsgDraft:
		c.setDraft(msg)

	case MsgCreate:
		c.setDraft(msg)
		t, err := c.view.Submit(ctx)
		if errors.Is(err, tasks.ErrEmptyBody) {
			return
		}
		if err != nil {
			c.sendError(err)
			return
		}
		c.hub.audit.LogTaskCreate(ctx, t)

	case MsgDelete:
		err := c.view.Delete(ctx, msg.ID)
		if errors.Is(err, tasks.ErrForbidden) {
			c.hub.audit.LogTaskDeleteDenied(ctx, c.Identity, msg.ID, c.Conn.RemoteAddr().String())
		}
		if err != nil {
			c.sendError(err)
			return
		}
		c.hub.audit.LogTaskDelete(ctx, c.Identity, msg.ID)

	case MsgShare:
		if _, err := c.view.Share(ctx, msg.ID, c); err != nil {
			c.sendError(err)
		}

	case MsgPing:
		c.enqueue(map[string]string{"type": MsgPong})

	default:
		c.enqueue(ErrorPayload{Type: MsgError, Error: "unknown message type"})
	}
}

// setDraft mirrors the browser's form into the view. The browser already
// shows this draft, so no draft message is echoed.
func (c *Client) setDraft(msg InboundMessage) {
	c.view.SetDraft(msg.Body, domain.VisibilityFromBool(msg.Public))
	c.stateMu.Lock()
	c.sentDraft = c.view.Draft()
	c.stateMu.Unlock()
}

func (c *Client) sendError(err error) {
	c.enqueue(ErrorPayload{Type: MsgError, Error: errorText(err)})
}

func errorText(err error) string {
	switch {
	case errors.Is(err, tasks.ErrForbidden):
		return "forbidden"
	case errors.Is(err, tasks.ErrNotInView):
		return "task not found"
	case errors.Is(err, tasks.ErrNotShareable):
		return "task is private"
	case errors.Is(err, tasks.ErrBodyTooLong):
		return "body too long"
	default:
		return "internal error"
	}
}

// enqueue queues v for the write pump. A client that cannot keep up is
// disconnected; it gets a fresh snapshot on reconnect.
func (c *Client) enqueue(v any) bool {
	msg, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal ws message", "error", err)
		return false
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		c.log.Warn("ws send buffer full, dropping connection")
		_ = c.Conn.Close()
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

//read
func (c *Client) readPump(ctx context.Context) {
	defer c.Conn.Close()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("ws read error", "error", err)
			}
			return
		}
		c.handle(ctx, msg)
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("ws write error", "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
