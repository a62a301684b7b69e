package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"resty.dev/v3"

	"shen-meme-go/config"
	"shen-meme-go/slogger"
)

var memeLogger = slogger.New("service.meme")

const DefaultFetchTimeout = 20 * time.Second

// MemeRequest holds the query sent to the renderer.
type MemeRequest struct {
	Qq      string
	Name    string
	GroupId string
}

// Encode renders qq, name and the optional group_id in that order, percent
// encoded as UTF-8.
func (r MemeRequest) Encode() string {
	var sb strings.Builder
	sb.WriteString("qq=")
	sb.WriteString(url.QueryEscape(r.Qq))
	sb.WriteString("&name=")
	sb.WriteString(url.QueryEscape(r.Name))
	if r.GroupId != "" {
		sb.WriteString("&group_id=")
		sb.WriteString(url.QueryEscape(r.GroupId))
	}
	return sb.String()
}

// MemeService fetches rendered images from the remote meme API.
type MemeService struct {
	client      *resty.Client
	sendGroupId bool
}

func NewMemeService(cfg *config.ShenConfig, userAgent string) *MemeService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.ApiBaseURL), "/")
	if baseURL == "" {
		baseURL = config.DefaultApiBaseURL
	}
	return &MemeService{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent),
		sendGroupId: cfg.SendGroupId,
	}
}

// Fetch returns the image bytes. Transport errors, timeouts and non-2xx
// statuses are wrapped in ErrFetch. No retries.
func (s *MemeService) Fetch(ctx context.Context, req MemeRequest) ([]byte, error) {
	if !s.sendGroupId {
		req.GroupId = ""
	}
	path := "/meme?" + req.Encode()
	memeLogger.Debug("Fetching meme", slog.String("path", path))

	resp, err := s.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: unexpected status code: %s", ErrFetch, resp.Status())
	}
	body := resp.Bytes()
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrFetch)
	}
	return body, nil
}

func (s *MemeService) Close() error {
	return s.client.Close()
}
