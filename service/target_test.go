package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shen-meme-go/contract"
	"shen-meme-go/onebot"
)

func at(field string, v any) contract.Segment {
	return contract.Segment{Type: contract.SegmentAt, Data: map[string]any{field: v}}
}

func TestNewTarget(t *testing.T) {
	for _, id := range []string{"12345", "123456789012", "10001"} {
		target, err := NewTarget(id)
		require.NoError(t, err, id)
		assert.Equal(t, id, target.Id)
		assert.Equal(t, id, target.Name)
	}
	for _, id := range []string{"", "1234", "1234567890123", "12a45", "１２３４５", " 12345"} {
		_, err := NewTarget(id)
		assert.ErrorIs(t, err, ErrInvalidTarget, id)
	}
}

func TestExtractTriggerDigits(t *testing.T) {
	e := NewExtractor("神")
	tests := []struct {
		text string
		id   string
		ok   bool
	}{
		{"神12345678", "12345678", true},
		{"神 12345", "12345", true},
		{"神\t123456789012 ", "123456789012", true},
		{"神 1234", "", false},
		{"神 1234567890123", "", false},
		{"神 abc", "", false},
		{"神 12345678 extra", "", false},
		{"神", "", false},
	}
	for _, tt := range tests {
		id, ok := e.Extract(nil, tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.id, id, tt.text)
	}
}

func TestExtractMentionSegments(t *testing.T) {
	e := NewExtractor("神")

	id, ok := e.Extract([]contract.Segment{contract.TextSegment("神 "), at("qq", "10001")}, "神 @Alice(id=10001)")
	assert.True(t, ok)
	assert.Equal(t, "10001", id)

	// numeric field values, alternate field names
	id, ok = e.Extract([]contract.Segment{at("user_id", float64(20002))}, "神")
	assert.True(t, ok)
	assert.Equal(t, "20002", id)

	// @all is skipped
	_, ok = e.Extract([]contract.Segment{at("qq", "all")}, "神 [CQ:at,qq=all]")
	assert.False(t, ok)
}

func TestExtractMentionWinsOverText(t *testing.T) {
	e := NewExtractor("神")
	id, ok := e.Extract([]contract.Segment{at("qq", "10001")}, "神 [At:20002] [CQ:at,qq=30003]")
	assert.True(t, ok)
	assert.Equal(t, "10001", id)

	id, ok = e.Extract([]contract.Segment{at("qq", "10001")}, "神 99999999")
	assert.True(t, ok)
	assert.Equal(t, "10001", id)
}

func TestExtractTextMarkers(t *testing.T) {
	e := NewExtractor("神")

	id, ok := e.Extract(nil, "神 [At:20002] [CQ:at,qq=30003]")
	assert.True(t, ok)
	assert.Equal(t, "20002", id)

	id, ok = e.Extract(nil, "神 [CQ:at,qq=30003,name=bob]")
	assert.True(t, ok)
	assert.Equal(t, "30003", id)

	// CQ string parsed by the adapter ends up as a segment too
	segs := onebot.ParseCQ("神[CQ:at,qq=40004]")
	id, ok = e.Extract(segs, "神[CQ:at,qq=40004]")
	assert.True(t, ok)
	assert.Equal(t, "40004", id)
}

func TestExtractCustomTrigger(t *testing.T) {
	e := NewExtractor("神.")
	id, ok := e.Extract(nil, "神.12345")
	assert.True(t, ok)
	assert.Equal(t, "12345", id)

	_, ok = e.Extract(nil, "神x12345")
	assert.False(t, ok)
}
