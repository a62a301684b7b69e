package middlewares

import (
	"context"
	"log/slog"

	"shen-meme-go/contract"
)

type logMsgMiddleware struct {
	*MiddlewareContext
}

func NewLogMsgMiddleware(base *MiddlewareContext) Middleware {
	return &logMsgMiddleware{
		MiddlewareContext: base,
	}
}

func (l *logMsgMiddleware) OnMessage(ctx context.Context, msg contract.GenericMessage) bool {
	sender := ""
	if named, ok := msg.(interface{ SenderName() string }); ok {
		sender = named.SenderName()
	}
	logger.Debug("Received message",
		slog.String("MsgId", msg.GetId()),
		slog.String("UserId", msg.GetUserId()),
		slog.String("Sender", sender),
		slog.String("GroupId", msg.GetGroupId()),
		slog.String("Text", msg.GetText()),
	)
	return false
}
