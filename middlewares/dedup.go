package middlewares

import (
	"context"
	"log/slog"

	"shen-meme-go/contract"
	"shen-meme-go/db"
)

// dedupMiddleware swallows events redelivered after a reconnect.
type dedupMiddleware struct {
	*MiddlewareContext
	store *db.DedupStore
}

func NewDedupMiddleware(base *MiddlewareContext) Middleware {
	if base.redis == nil {
		return nil
	}
	return &dedupMiddleware{
		MiddlewareContext: base,
		store:             db.NewDedupStore(base.redis),
	}
}

func (d *dedupMiddleware) OnMessage(ctx context.Context, msg contract.GenericMessage) bool {
	if msg.GetId() == "" {
		return false
	}
	first, err := d.store.FirstSeen(msg.GetSelfId(), msg.GetId())
	if err != nil {
		// fail open
		logger.Warn("Dedup check failed", slog.String("msgId", msg.GetId()), slog.Any("error", err))
		return false
	}
	if !first {
		logger.Debug("Skipping duplicate message", slog.String("msgId", msg.GetId()))
		return true
	}
	return false
}
