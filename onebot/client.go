package onebot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"shen-meme-go/config"
	"shen-meme-go/contract"
	"shen-meme-go/protocol"
	"shen-meme-go/slogger"
)

var logger = slogger.New("onebot")

const defaultActionTimeout = 10 * time.Second

// ActionRequest is the frame sent to call an action.
type ActionRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
	Echo   string         `json:"echo"`
}

// ActionError is returned when the implementation answers with a failed status.
type ActionError struct {
	Action  string
	Status  string
	RetCode int64
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s failed: status=%s retcode=%d msg=%s", e.Action, e.Status, e.RetCode, e.Message)
}

// Client speaks OneBot v11 over a forward WebSocket.
type Client struct {
	ws            *protocol.WebSocketClient[json.RawMessage]
	handlers      []func(ctx context.Context, msg contract.GenericMessage) bool
	actionTimeout time.Duration
	appCtx        context.Context

	seq       atomic.Uint64
	pendingMu sync.Mutex
	pending   map[string]chan json.RawMessage

	selfId atomic.Value // string

	inflight sync.WaitGroup
}

var _ contract.GenericClient = (*Client)(nil)
var _ contract.ActionInvoker = (*Client)(nil)

func NewClient(cfg *config.OneBotConfig) *Client {
	header := http.Header{}
	if cfg.AccessToken != "" {
		header.Set("Authorization", "Bearer "+cfg.AccessToken)
	}
	timeout := cfg.ActionTimeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	c := &Client{
		ws:            protocol.NewClient[json.RawMessage](cfg.Server, header),
		actionTimeout: timeout,
		pending:       make(map[string]chan json.RawMessage),
		appCtx:        context.Background(),
	}
	c.selfId.Store("")
	return c
}

func (c *Client) AddMessageHandler(handler func(ctx context.Context, msg contract.GenericMessage) bool) {
	c.handlers = append(c.handlers, handler)
}

// Start blocks until ctx is done and every dispatched handler has returned.
func (c *Client) Start(ctx context.Context) error {
	c.appCtx = ctx
	c.ws.OnConnect(func() {
		c.fetchLoginInfo(ctx)
	})
	logger.Info("Starting OneBot client", slog.String("server", c.ws.Url))
	err := c.ws.Run(ctx, c.onFrame)
	c.inflight.Wait()
	return err
}

func (c *Client) fetchLoginInfo(ctx context.Context) {
	raw, err := c.CallAction(ctx, "get_login_info", map[string]any{})
	if err != nil {
		logger.Warn("Failed to get login info", slog.Any("error", err))
		return
	}
	if id := gjson.GetBytes(raw, "data.user_id"); id.Exists() {
		c.selfId.Store(id.String())
		logger.Info("Logged in", slog.String("selfId", id.String()), slog.String("nickname", gjson.GetBytes(raw, "data.nickname").String()))
	}
}

func (c *Client) GetSelfUserId() string {
	return c.selfId.Load().(string)
}

func (c *Client) onFrame(raw *json.RawMessage) {
	frame := gjson.ParseBytes(*raw)
	if !frame.IsObject() {
		logger.Warn("Dropping non-object frame")
		return
	}
	postType := frame.Get("post_type")
	if !postType.Exists() {
		if echo := frame.Get("echo"); echo.Exists() {
			c.resolve(echo.String(), *raw)
		}
		return
	}
	switch postType.String() {
	case "message":
		ev, err := ParseEvent(*raw)
		if err != nil {
			logger.Error("Failed to parse message event", slog.Any("error", err))
			return
		}
		msg, err := ev.ToMessage()
		if err != nil {
			logger.Error("Failed to parse message", slog.Any("error", err))
			return
		}
		if msg.selfId != "" && c.GetSelfUserId() == "" {
			c.selfId.Store(msg.selfId)
		}
		// handlers may block on actions whose responses arrive on this same
		// read loop, so they never run on it
		c.inflight.Add(1)
		go c.dispatch(msg)
	case "meta_event":
		logger.Debug("Meta event", slog.String("type", frame.Get("meta_event_type").String()))
	default:
		// message_sent, notice, request
	}
}

func (c *Client) dispatch(msg *Message) {
	defer c.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in message handler", slog.Any("panic", r), slog.String("msgId", msg.id))
		}
	}()
	for _, handler := range c.handlers {
		if handler(c.appCtx, msg) {
			return
		}
	}
}

func (c *Client) resolve(echo string, raw json.RawMessage) {
	c.pendingMu.Lock()
	ch, ok := c.pending[echo]
	delete(c.pending, echo)
	c.pendingMu.Unlock()
	if !ok {
		logger.Debug("Dropping response without pending call", slog.String("echo", echo))
		return
	}
	ch <- raw
}

// CallAction sends an action and waits for the response carrying the same
// echo. The returned payload is the whole response object.
func (c *Client) CallAction(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.actionTimeout)
	defer cancel()

	echo := strconv.FormatUint(c.seq.Add(1), 10)
	ch := make(chan json.RawMessage, 1)
	c.pendingMu.Lock()
	c.pending[echo] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, echo)
		c.pendingMu.Unlock()
	}()

	if params == nil {
		params = map[string]any{}
	}
	if err := c.ws.Send(ActionRequest{Action: action, Params: params, Echo: echo}); err != nil {
		return nil, fmt.Errorf("failed to send action %s: %w", action, err)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("action %s: %w", action, ctx.Err())
	case raw := <-ch:
		res := gjson.ParseBytes(raw)
		status := res.Get("status").String()
		retcode := res.Get("retcode").Int()
		if status == "failed" || retcode != 0 {
			msg := res.Get("wording").String()
			if msg == "" {
				msg = res.Get("message").String()
			}
			return raw, &ActionError{Action: action, Status: status, RetCode: retcode, Message: msg}
		}
		return raw, nil
	}
}

func (c *Client) SendText(ctx context.Context, target contract.SendTarget, text string) (string, error) {
	return c.sendMessage(ctx, target, []contract.Segment{contract.TextSegment(text)})
}

func (c *Client) SendImage(ctx context.Context, target contract.SendTarget, file string) (string, error) {
	return c.sendMessage(ctx, target, []contract.Segment{contract.ImageSegment(file)})
}

func (c *Client) sendMessage(ctx context.Context, target contract.SendTarget, message []contract.Segment) (string, error) {
	params := map[string]any{"message": message}
	if target.IsGroup() {
		params["message_type"] = "group"
		params["group_id"] = ID(target.GetTarget())
	} else {
		params["message_type"] = "private"
		params["user_id"] = ID(target.GetTarget())
	}
	raw, err := c.CallAction(ctx, "send_msg", params)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(raw, "data.message_id").String(), nil
}

// ID converts a numeric id to int64, which is what implementations expect;
// anything else is passed through untouched.
func ID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
