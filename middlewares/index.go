package middlewares

import (
	"context"
	"fmt"
	"log/slog"

	"shen-meme-go/config"
	"shen-meme-go/contract"
	"shen-meme-go/db"
	"shen-meme-go/slogger"
)

var logger = slogger.New("middlewares")

type Middleware interface {
	OnMessage(ctx context.Context, msg contract.GenericMessage) bool
	Start() error
	Stop() error
}

type MiddlewareContext struct {
	redis  *db.Redis // nil when app.redis is empty
	cron   *CronTask
	cfg    *config.Config
	ctx    context.Context
	client contract.GenericClient
}

func NewMiddlewareContext(ctx context.Context, client contract.GenericClient, cfg *config.Config, redis *db.Redis) *MiddlewareContext {
	cron := newCronTask()
	// init
	cron.Start()
	return &MiddlewareContext{
		redis:  redis,
		cron:   cron,
		cfg:    cfg,
		ctx:    ctx,
		client: client,
	}
}

func (mctx *MiddlewareContext) Close() {
	mctx.cron.Stop()
}

func (m *MiddlewareContext) OnMessage(ctx context.Context, msg contract.GenericMessage) bool {
	return false
}

func (m *MiddlewareContext) Start() error {
	return nil
}

func (m *MiddlewareContext) Stop() error {
	return nil
}

// SendText replies to target and logs on failure.
func (m *MiddlewareContext) SendText(ctx context.Context, target contract.SendTarget, text string) {
	if _, err := m.client.SendText(ctx, target, text); err != nil {
		logger.Error("Failed to send text", slog.String("target", target.GetTarget()), slog.Any("error", err))
	}
}

type RootMiddleware struct {
	*MiddlewareContext
	middlewares []Middleware
}

func NewRootMiddleware(
	mctx *MiddlewareContext,
) *RootMiddleware {
	return &RootMiddleware{
		MiddlewareContext: mctx,
	}
}

// AddMiddlewares instantiates each factory in order. Factories may return nil
// when their feature is disabled.
func (r *RootMiddleware) AddMiddlewares(middlewares ...func(m *MiddlewareContext) Middleware) {
	for _, mw := range middlewares {
		instance := mw(r.MiddlewareContext)
		if instance != nil {
			r.middlewares = append(r.middlewares, instance)
		}
	}
}

func (r *RootMiddleware) Start() error {
	for _, mw := range r.middlewares {
		if r.client != nil {
			r.client.AddMessageHandler(mw.OnMessage)
		}
		if err := mw.Start(); err != nil {
			return err
		}
		logger.Info("Middleware started", slog.String("type", fmt.Sprintf("%T", mw)))
	}
	return nil
}

func (r *RootMiddleware) Stop() error {
	for _, mw := range r.middlewares {
		if err := mw.Stop(); err != nil {
			return err
		}
	}
	return nil
}
