package onebot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"shen-meme-go/contract"
)

// Event is the subset of a OneBot v11 event this bot reads.
type Event struct {
	Time        int64           `json:"time"`
	SelfId      json.Number     `json:"self_id"`
	PostType    string          `json:"post_type"`
	MessageType string          `json:"message_type"` // private, group
	SubType     string          `json:"sub_type"`
	MessageId   json.Number     `json:"message_id"`
	UserId      json.Number     `json:"user_id"`
	GroupId     json.Number     `json:"group_id"`
	Message     json.RawMessage `json:"message"`
	RawMessage  string          `json:"raw_message"`
	Sender      Sender          `json:"sender"`
}

type Sender struct {
	UserId   json.Number `json:"user_id"`
	Nickname string      `json:"nickname"`
	Card     string      `json:"card,omitempty"`
}

// Message implements contract.GenericMessage
type Message struct {
	id       string
	userId   string
	selfId   string
	groupId  string
	text     string
	segments []contract.Segment
	sender   Sender
}

var _ contract.GenericMessage = (*Message)(nil)

func ParseEvent(raw []byte) (*Event, error) {
	var ev Event
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &ev, nil
}

// ToMessage converts a message event. The message field may be a segment
// array or a CQ-coded string depending on the implementation's settings.
func (ev *Event) ToMessage() (*Message, error) {
	segments, err := parseSegments(ev.Message, ev.RawMessage)
	if err != nil {
		return nil, err
	}
	msg := &Message{
		id:       ev.MessageId.String(),
		userId:   ev.UserId.String(),
		selfId:   ev.SelfId.String(),
		segments: segments,
		sender:   ev.Sender,
	}
	if ev.MessageType == "group" {
		msg.groupId = ev.GroupId.String()
	}
	msg.text = strings.TrimSpace(renderText(segments))
	return msg, nil
}

func parseSegments(message json.RawMessage, rawMessage string) ([]contract.Segment, error) {
	message = bytes.TrimSpace(message)
	if len(message) == 0 || string(message) == "null" {
		return ParseCQ(rawMessage), nil
	}
	if message[0] == '"' {
		var s string
		if err := json.Unmarshal(message, &s); err != nil {
			return nil, fmt.Errorf("failed to decode message string: %w", err)
		}
		return ParseCQ(s), nil
	}
	var segments []contract.Segment
	dec := json.NewDecoder(bytes.NewReader(message))
	dec.UseNumber()
	if err := dec.Decode(&segments); err != nil {
		return nil, fmt.Errorf("failed to decode message segments: %w", err)
	}
	return segments, nil
}

func (m *Message) GetId() string {
	return m.id
}

func (m *Message) GetText() string {
	return m.text
}

func (m *Message) GetUserId() string {
	return m.userId
}

func (m *Message) GetSelfId() string {
	return m.selfId
}

func (m *Message) GetGroupId() string {
	return m.groupId
}

func (m *Message) GetTarget() string {
	if m.groupId != "" {
		return m.groupId
	}
	return m.userId
}

func (m *Message) IsGroup() bool {
	return m.groupId != ""
}

func (m *Message) GetSegments() []contract.Segment {
	return m.segments
}

func (m *Message) SenderName() string {
	if m.sender.Card != "" {
		return m.sender.Card
	}
	return m.sender.Nickname
}

var cqRegex = regexp.MustCompile(`\[CQ:([a-zA-Z0-9_.\-]+)((?:,[^\]]*)?)\]`)

var (
	cqTextUnescaper  = strings.NewReplacer("&#91;", "[", "&#93;", "]", "&amp;", "&")
	cqParamUnescaper = strings.NewReplacer("&#91;", "[", "&#93;", "]", "&#44;", ",", "&amp;", "&")
)

// ParseCQ splits a CQ-coded string such as "神 [CQ:at,qq=10001]" into segments.
func ParseCQ(s string) []contract.Segment {
	var segments []contract.Segment
	appendText := func(text string) {
		if text != "" {
			segments = append(segments, contract.TextSegment(cqTextUnescaper.Replace(text)))
		}
	}
	last := 0
	for _, loc := range cqRegex.FindAllStringSubmatchIndex(s, -1) {
		appendText(s[last:loc[0]])
		seg := contract.Segment{Type: s[loc[2]:loc[3]], Data: map[string]any{}}
		if params := s[loc[4]:loc[5]]; params != "" {
			for _, kv := range strings.Split(params[1:], ",") {
				k, v, _ := strings.Cut(kv, "=")
				seg.Data[k] = cqParamUnescaper.Replace(v)
			}
		}
		segments = append(segments, seg)
		last = loc[1]
	}
	appendText(s[last:])
	return segments
}

// renderText keeps the unescaped text segments and writes mentions as
// [CQ:at,qq=N]. Replies, faces, images and the rest are dropped.
func renderText(segments []contract.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		switch seg.Type {
		case contract.SegmentText:
			sb.WriteString(seg.Str("text"))
		case contract.SegmentAt:
			if qq := seg.Str("qq"); qq != "" {
				sb.WriteString("[CQ:at,qq=")
				sb.WriteString(qq)
				sb.WriteString("]")
			}
		}
	}
	return sb.String()
}
