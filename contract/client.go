package contract

import (
	"context"
	"encoding/json"
)

type SendTarget interface {
	// user id for private chats, group id for group chats
	GetTarget() string
	IsGroup() bool
}

// ActionInvoker calls a named platform action and returns the raw response
// payload. Clients that can't call actions simply don't implement it.
type ActionInvoker interface {
	CallAction(ctx context.Context, action string, params map[string]any) (json.RawMessage, error)
}

type GenericClient interface {
	Start(ctx context.Context) error
	// handler返回true表示消息已被处理，不需要继续传递给其他handler
	AddMessageHandler(handler func(ctx context.Context, msg GenericMessage) bool)
	SendText(ctx context.Context, target SendTarget, text string) (messageId string, err error)
	// file is a URI the platform can read, e.g. file:///tmp/a.png
	SendImage(ctx context.Context, target SendTarget, file string) (messageId string, err error)
	GetSelfUserId() string
}
