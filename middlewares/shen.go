package middlewares

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shen-meme-go/contract"
	"shen-meme-go/service"
)

// UserAgent is sent to the meme API. main overrides it with the build version.
var UserAgent = "shen-meme-go"

// files written by the meme handler, see writeTemp
const tmpFilePattern = "shen_*.png"

type shenMiddleware struct {
	*MiddlewareContext
	trigger   string
	usage     string
	extractor *service.Extractor
	resolver  *service.NicknameResolver
	meme      *service.MemeService
	tmpDir    string
}

func NewShenMiddleware(base *MiddlewareContext) Middleware {
	cfg := &base.cfg.Shen
	// nil when the platform can't call actions; names then fall back to ids
	invoker, _ := base.client.(contract.ActionInvoker)
	return &shenMiddleware{
		MiddlewareContext: base,
		trigger:           cfg.Trigger,
		usage:             fmt.Sprintf("用法：%s @某人  或  %s 12345678", cfg.Trigger, cfg.Trigger),
		extractor:         service.NewExtractor(cfg.Trigger),
		resolver:          service.NewNicknameResolver(invoker, cfg.PreferCard),
		meme:              service.NewMemeService(cfg, UserAgent),
		tmpDir:            base.cfg.TmpDir(),
	}
}

func (s *shenMiddleware) Start() error {
	logger.Info("Shen meme plugin loaded",
		slog.String("trigger", s.trigger),
		slog.String("apiBaseUrl", s.cfg.Shen.ApiBaseURL),
		slog.String("tmpDir", s.tmpDir),
	)
	return nil
}

func (s *shenMiddleware) Stop() error {
	logger.Info("Shen meme plugin terminated")
	return s.meme.Close()
}

func (s *shenMiddleware) OnMessage(ctx context.Context, msg contract.GenericMessage) bool {
	if contract.IsFromSelf(msg) {
		return false
	}
	text := strings.TrimSpace(msg.GetText())
	if !strings.HasPrefix(text, s.trigger) {
		return false
	}
	if err := s.handle(ctx, msg, text); err != nil {
		logger.Error("Unhandled error in shen handler",
			slog.String("msgId", msg.GetId()),
			slog.Any("error", err),
		)
	}
	return true
}

// handle runs one triggered message to a reply. Only filesystem and send
// errors are returned; the rest become chat replies.
func (s *shenMiddleware) handle(ctx context.Context, msg contract.GenericMessage, text string) error {
	target, err := s.extractTarget(msg, text)
	if err != nil {
		logger.Debug("No target in message", slog.String("text", text), slog.Any("reason", err))
		s.SendText(ctx, msg, s.usage)
		return nil
	}

	target.Name = s.resolver.Resolve(ctx, target.Id, msg.GetGroupId())

	img, err := s.meme.Fetch(ctx, service.MemeRequest{
		Qq:      target.Id,
		Name:    target.Name,
		GroupId: msg.GetGroupId(),
	})
	if err != nil {
		logger.Error("Failed to fetch meme",
			slog.String("qq", target.Id),
			slog.String("name", target.Name),
			slog.Any("error", err),
		)
		s.SendText(ctx, msg, fmt.Sprintf("生成失败：%v", err))
		return nil
	}

	path, err := s.writeTemp(target.Id, img)
	if err != nil {
		return err
	}
	logger.Info("Sending meme", slog.String("qq", target.Id), slog.String("name", target.Name), slog.String("file", path))
	if _, err := s.client.SendImage(ctx, msg, "file://"+path); err != nil {
		return fmt.Errorf("failed to send image: %w", err)
	}
	return nil
}

func (s *shenMiddleware) extractTarget(msg contract.GenericMessage, text string) (*service.Target, error) {
	id, ok := s.extractor.Extract(msg.GetSegments(), text)
	if !ok {
		return nil, service.ErrNoTarget
	}
	target, err := service.NewTarget(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrNoTarget, err)
	}
	return target, nil
}

// writeTemp stores img as shen_<id>_<unixmilli>_<rand>.png and returns the
// absolute path.
func (s *shenMiddleware) writeTemp(id string, img []byte) (string, error) {
	if err := os.MkdirAll(s.tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	f, err := os.CreateTemp(s.tmpDir, fmt.Sprintf("shen_%s_%d_*.png", id, time.Now().UnixMilli()))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(img); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	// the OneBot implementation may run as another user
	if err := f.Chmod(0o644); err != nil {
		logger.Warn("Failed to chmod temp file", slog.String("file", name), slog.Any("error", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return filepath.Abs(name)
}
