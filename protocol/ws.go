package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"shen-meme-go/slogger"
)

var wsLogger = slogger.New("protocol.websocket")

var ErrNotConnected = errors.New("connection is nil")

// WebSocketClient keeps a single reconnecting connection and decodes every
// frame into Message.
type WebSocketClient[Message any] struct {
	Url           string
	header        http.Header
	conn          *websocket.Conn
	connMu        sync.RWMutex
	writeMu       sync.Mutex
	messageBuffer chan Message
	wg            sync.WaitGroup
	onConnect     func()
	retryDelay    time.Duration
}

func NewClient[Message any](url string, header http.Header) *WebSocketClient[Message] {
	return &WebSocketClient[Message]{
		Url:           url,
		header:        header,
		messageBuffer: make(chan Message, 16),
		retryDelay:    2 * time.Second,
	}
}

// OnConnect registers a callback that fires after each successful connection (including reconnects).
func (c *WebSocketClient[Message]) OnConnect(fn func()) {
	c.onConnect = fn
}

func (c *WebSocketClient[Message]) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.Url, c.header)
	if err != nil {
		wsLogger.Error("[WebSocket] Failed to dial", slog.String("url", c.Url), slog.Any("error", err))
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	wsLogger.Info("[WebSocket] Successfully connected.", slog.String("url", c.Url))
	if c.onConnect != nil {
		go c.onConnect()
	}
	return nil
}

func (c *WebSocketClient[Message]) currentConn() *websocket.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

// Send writes message as a JSON frame. Safe for concurrent use.
func (c *WebSocketClient[Message]) Send(message any) error {
	conn := c.currentConn()
	if conn == nil {
		wsLogger.Error("[WebSocket] Connection is nil, cannot send message.", slog.String("url", c.Url))
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(message); err != nil {
		wsLogger.Error("[WebSocket] Failed to write JSON", slog.String("url", c.Url), slog.Any("error", err))
		return err
	}
	return nil
}

func (c *WebSocketClient[Message]) Listen(ctx context.Context) error {
	defer close(c.messageBuffer)
	for {
		if ctx.Err() != nil {
			wsLogger.Info("[WebSocket] Context done, exiting message loop.")
			c.close()
			return ctx.Err()
		}

		conn := c.currentConn()
		if conn == nil {
			if err := c.Connect(ctx); err != nil {
				c.sleep(ctx)
				continue
			}
			conn = c.currentConn()
		}

		var message Message
		err := conn.ReadJSON(&message)
		if err == nil {
			select {
			case c.messageBuffer <- message:
			case <-ctx.Done():
				continue
			case <-time.After(1 * time.Second):
				wsLogger.Warn("[WebSocket] Timeout sending message to processing channel. Channel might be full or processor stuck.", slog.String("url", c.Url))
			}
			continue
		}

		if ctx.Err() != nil {
			continue
		}
		if isTerminalError(err) {
			wsLogger.Warn("[WebSocket] Terminal error occurred", slog.String("url", c.Url), slog.Any("error", err))
			c.dropConn()
			c.sleep(ctx)
			continue
		}
		wsLogger.Warn("[WebSocket] Failed to decode frame", slog.String("url", c.Url), slog.Any("error", err))
	}
}

func (c *WebSocketClient[Message]) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.retryDelay):
	}
}

func (c *WebSocketClient[Message]) dropConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *WebSocketClient[Message]) close() {
	wsLogger.Info("[WebSocket] Closing connection.", slog.String("url", c.Url))
	c.dropConn()
}

// Run dials, reads frames until ctx is done and hands each one to onMessage
// from a single processing goroutine.
func (c *WebSocketClient[Message]) Run(ctx context.Context, onMessage func(msg *Message)) error {
	// the read loop can block in ReadJSON, so unblock it on shutdown
	go func() {
		<-ctx.Done()
		c.dropConn()
	}()
	c.wg.Add(1)
	go c.processMessages(ctx, onMessage)
	err := c.Listen(ctx)
	c.wg.Wait()
	return err
}

func (c *WebSocketClient[Message]) processMessages(ctx context.Context, onMessage func(msg *Message)) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			wsLogger.Info("[WebSocket] Context done, exiting message processing loop.")
			return
		case message, ok := <-c.messageBuffer:
			if !ok {
				return
			}
			onMessage(&message)
		}
	}
}

// isTerminalError reports whether the connection must be redialed. Only
// payload decoding errors leave the connection usable.
func isTerminalError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		wsLogger.Info("[WebSocket] Connection closed by peer (CloseError)", slog.Any("error", err))
	} else if _, ok := err.(*net.OpError); ok || errors.Is(err, net.ErrClosed) {
		wsLogger.Error("[WebSocket] Network error or closed connection during ReadJSON", slog.Any("error", err))
	}
	return true
}
