package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	SegmentText  = "text"
	SegmentAt    = "at"
	SegmentImage = "image"
)

// Segment is one structured part of a message, e.g. text, at or image.
type Segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Str returns the field as a string. Numbers are formatted without exponent.
func (s Segment) Str(key string) string {
	return stringify(s.Data[key])
}

func TextSegment(text string) Segment {
	return Segment{Type: SegmentText, Data: map[string]any{"text": text}}
}

func ImageSegment(file string) Segment {
	return Segment{Type: SegmentImage, Data: map[string]any{"file": file}}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

type GenericMessage interface {
	SendTarget
	// GetId returns the unique id of the message, if available. Otherwise returns empty string
	GetId() string
	// GetText returns the text segments joined and trimmed. Mentions are rendered
	// inline as [CQ:at,qq=N]; other segments are dropped.
	GetText() string
	// GetUserId returns the user id of the sender
	GetUserId() string
	// GetSelfId returns the id of the bot account that received the message
	GetSelfId() string
	// GetGroupId returns the group id if the message is sent in a group chat, otherwise returns empty string
	GetGroupId() string
	// GetSegments returns the ordered message segments
	GetSegments() []Segment
}

// IsFromSelf reports whether the bot received its own message.
func IsFromSelf(msg GenericMessage) bool {
	self := msg.GetSelfId()
	return self != "" && msg.GetUserId() == self
}
