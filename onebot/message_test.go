package onebot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shen-meme-go/contract"
)

func TestParseCQ(t *testing.T) {
	segs := ParseCQ("神 [CQ:at,qq=10001,name=A&#44;B] hi&#91;x&#93;")
	require.Len(t, segs, 3)
	assert.Equal(t, contract.TextSegment("神 "), segs[0])
	assert.Equal(t, "at", segs[1].Type)
	assert.Equal(t, "10001", segs[1].Str("qq"))
	assert.Equal(t, "A,B", segs[1].Str("name"))
	assert.Equal(t, " hi[x]", segs[2].Str("text"))
}

func TestParseCQWithoutParams(t *testing.T) {
	segs := ParseCQ("[CQ:shake]")
	require.Len(t, segs, 1)
	assert.Equal(t, "shake", segs[0].Type)
	assert.Empty(t, segs[0].Data)
}

func messageText(t *testing.T, raw string) string {
	t.Helper()
	ev, err := ParseEvent([]byte(raw))
	require.NoError(t, err)
	msg, err := ev.ToMessage()
	require.NoError(t, err)
	return msg.GetText()
}

func TestTextDropsNonTextSegments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		text string
	}{
		{
			"reply prefix, CQ string",
			`{"post_type":"message","message":"[CQ:reply,id=5]神 12345678","raw_message":"[CQ:reply,id=5]神 12345678"}`,
			"神 12345678",
		},
		{
			"face suffix, CQ string",
			`{"post_type":"message","message":"神 12345678[CQ:face,id=1]"}`,
			"神 12345678",
		},
		{
			"reply prefix, segment array",
			`{"post_type":"message","message":[
				{"type":"reply","data":{"id":"5"}},
				{"type":"text","data":{"text":"神 12345678"}},
				{"type":"image","data":{"file":"a.png"}}
			],"raw_message":"[CQ:reply,id=5]神 12345678[CQ:image,file=a.png]"}`,
			"神 12345678",
		},
		{
			"escaped brackets are unescaped",
			`{"post_type":"message","message":"神 &#91;At:10001&#93; &amp;","raw_message":"神 &#91;At:10001&#93; &amp;"}`,
			"神 [At:10001] &",
		},
		{
			"typed marker, segment array",
			`{"post_type":"message","message":[{"type":"text","data":{"text":"神 [At:10001]"}}],"raw_message":"神 &#91;At:10001&#93;"}`,
			"神 [At:10001]",
		},
		{
			"mention keeps only qq",
			`{"post_type":"message","message":[
				{"type":"text","data":{"text":"神 "}},
				{"type":"at","data":{"qq":"10001","name":"A,B"}}
			]}`,
			"神 [CQ:at,qq=10001]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.text, messageText(t, tt.raw))
		})
	}
}

func TestEventWithSegmentArray(t *testing.T) {
	raw := []byte(`{
		"time": 1700000000, "self_id": 99999, "post_type": "message",
		"message_type": "group", "message_id": 42, "user_id": 12345, "group_id": 67890,
		"message": [
			{"type": "text", "data": {"text": "神 "}},
			{"type": "at", "data": {"qq": 10001, "name": "Alice"}}
		],
		"raw_message": "神 [CQ:at,qq=10001]",
		"sender": {"user_id": 12345, "nickname": "bob", "card": "Bobby"}
	}`)
	ev, err := ParseEvent(raw)
	require.NoError(t, err)
	msg, err := ev.ToMessage()
	require.NoError(t, err)

	assert.Equal(t, "42", msg.GetId())
	assert.Equal(t, "12345", msg.GetUserId())
	assert.Equal(t, "99999", msg.GetSelfId())
	assert.Equal(t, "67890", msg.GetGroupId())
	assert.Equal(t, "67890", msg.GetTarget())
	assert.True(t, msg.IsGroup())
	assert.Equal(t, "神 [CQ:at,qq=10001]", msg.GetText())
	assert.Equal(t, "Bobby", msg.SenderName())

	segs := msg.GetSegments()
	require.Len(t, segs, 2)
	assert.Equal(t, "10001", segs[1].Str("qq"))
}

func TestEventWithStringMessage(t *testing.T) {
	raw := []byte(`{
		"self_id": "99999", "post_type": "message", "message_type": "private",
		"user_id": "12345", "group_id": 0,
		"message": "神[CQ:at,qq=10002]"
	}`)
	ev, err := ParseEvent(raw)
	require.NoError(t, err)
	msg, err := ev.ToMessage()
	require.NoError(t, err)

	assert.False(t, msg.IsGroup())
	assert.Empty(t, msg.GetGroupId())
	assert.Equal(t, "12345", msg.GetTarget())
	// raw_message missing, text is rendered from segments
	assert.Equal(t, "神[CQ:at,qq=10002]", msg.GetText())
	require.Len(t, msg.GetSegments(), 2)
	assert.Equal(t, "10002", msg.GetSegments()[1].Str("qq"))
}

func TestEventWithBrokenMessage(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"post_type":"message","message":{"oops":1}}`))
	require.NoError(t, err)
	_, err = ev.ToMessage()
	assert.Error(t, err)
}
