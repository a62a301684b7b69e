package middlewares

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"shen-meme-go/config"
	"shen-meme-go/contract"
)

type fakeMessage struct {
	id       string
	userId   string
	selfId   string
	groupId  string
	text     string
	segments []contract.Segment
}

func (m *fakeMessage) GetId() string { return m.id }
func (m *fakeMessage) GetText() string { return m.text }
func (m *fakeMessage) GetUserId() string { return m.userId }
func (m *fakeMessage) GetSelfId() string { return m.selfId }
func (m *fakeMessage) GetGroupId() string { return m.groupId }
func (m *fakeMessage) GetSegments() []contract.Segment { return m.segments }
func (m *fakeMessage) IsGroup() bool { return m.groupId != "" }
func (m *fakeMessage) GetTarget() string {
	if m.groupId != "" {
		return m.groupId
	}
	return m.userId
}

type sent struct {
	target string
	group  bool
	body   string
}

type fakeClient struct {
	mu       sync.Mutex
	handlers []func(ctx context.Context, msg contract.GenericMessage) bool
	texts    []sent
	images   []sent
}

func (c *fakeClient) Start(ctx context.Context) error { return nil }

func (c *fakeClient) AddMessageHandler(handler func(ctx context.Context, msg contract.GenericMessage) bool) {
	c.handlers = append(c.handlers, handler)
}

func (c *fakeClient) SendText(ctx context.Context, target contract.SendTarget, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, sent{target.GetTarget(), target.IsGroup(), text})
	return "1", nil
}

func (c *fakeClient) SendImage(ctx context.Context, target contract.SendTarget, file string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = append(c.images, sent{target.GetTarget(), target.IsGroup(), file})
	return "2", nil
}

func (c *fakeClient) GetSelfUserId() string { return "99999" }

// dispatch runs the handler chain the way the onebot client does.
func (c *fakeClient) dispatch(ctx context.Context, msg contract.GenericMessage) bool {
	for _, h := range c.handlers {
		if h(ctx, msg) {
			return true
		}
	}
	return false
}

// invokerClient can also call actions.
type invokerClient struct {
	fakeClient
	responses map[string]string
	calls     []string
}

func (c *invokerClient) CallAction(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	c.calls = append(c.calls, action)
	c.mu.Unlock()
	return json.RawMessage(c.responses[action]), nil
}

func testConfig(t *testing.T, apiBaseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{DataDir: t.TempDir(), LogLevel: "debug"},
		Shen: config.ShenConfig{
			Trigger:    "神",
			ApiBaseURL: apiBaseURL,
		},
	}
}

func newTestContext(t *testing.T, client contract.GenericClient, cfg *config.Config) *MiddlewareContext {
	t.Helper()
	mctx := NewMiddlewareContext(context.Background(), client, cfg, nil)
	t.Cleanup(mctx.Close)
	return mctx
}
