package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"shen-meme-go/contract"
	"shen-meme-go/onebot"
	"shen-meme-go/slogger"
)

var nicknameLogger = slogger.New("service.nickname")

// UserInfo is the part of a member/stranger info response we read.
type UserInfo struct {
	Nickname string
	Card     string
}

var payloadKeys = []string{"data", "result", "response"}

// ParseUserInfo normalizes an action response. The fields may sit under
// data, result or response, or at the top level. Any other shape is no data.
func ParseUserInfo(raw []byte) (UserInfo, bool) {
	if !gjson.ValidBytes(raw) {
		return UserInfo{}, false
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return UserInfo{}, false
	}
	obj := gjson.Result{}
	for _, key := range payloadKeys {
		if v := root.Get(key); v.IsObject() {
			obj = v
			break
		}
	}
	if !obj.Exists() {
		if !root.Get("nickname").Exists() && !root.Get("card").Exists() {
			return UserInfo{}, false
		}
		obj = root
	}
	return UserInfo{
		Nickname: stringField(obj, "nickname"),
		Card:     stringField(obj, "card"),
	}, true
}

func stringField(obj gjson.Result, key string) string {
	if v := obj.Get(key); v.Type == gjson.String {
		return strings.TrimSpace(v.String())
	}
	return ""
}

// NicknameResolver looks up display names through platform actions.
// A nil invoker means the platform can't, and ids are used as names.
type NicknameResolver struct {
	invoker    contract.ActionInvoker
	preferCard bool
}

func NewNicknameResolver(invoker contract.ActionInvoker, preferCard bool) *NicknameResolver {
	return &NicknameResolver{invoker: invoker, preferCard: preferCard}
}

// Resolve never fails: every lookup error degrades to returning targetId.
func (r *NicknameResolver) Resolve(ctx context.Context, targetId, groupId string) string {
	if r == nil || r.invoker == nil {
		return targetId
	}

	if groupId != "" {
		info, ok := r.lookup(ctx, "get_group_member_info", map[string]any{
			"group_id": onebot.ID(groupId),
			"user_id":  onebot.ID(targetId),
			"no_cache": true,
		})
		if ok {
			if r.preferCard && info.Card != "" {
				return info.Card
			}
			if info.Nickname != "" {
				return info.Nickname
			}
		}
	}

	info, ok := r.lookup(ctx, "get_stranger_info", map[string]any{
		"user_id":  onebot.ID(targetId),
		"no_cache": true,
	})
	if ok && info.Nickname != "" {
		return info.Nickname
	}
	return targetId
}

func (r *NicknameResolver) lookup(ctx context.Context, action string, params map[string]any) (info UserInfo, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			nicknameLogger.Warn("Action panicked", slog.String("action", action), slog.Any("panic", p))
			info, ok = UserInfo{}, false
		}
	}()
	raw, err := r.invoker.CallAction(ctx, action, params)
	if err != nil {
		nicknameLogger.Warn("Action failed", slog.String("action", action), slog.Any("error", err))
		return UserInfo{}, false
	}
	info, ok = ParseUserInfo(raw)
	if !ok {
		nicknameLogger.Warn("Malformed action response", slog.String("action", action), slog.String("body", string(raw)))
	}
	return info, ok
}
