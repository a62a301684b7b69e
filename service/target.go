package service

import (
	"fmt"
	"regexp"

	"shen-meme-go/contract"
)

// field names implementations use for the mentioned user in an at segment
var mentionFields = []string{"qq", "user_id", "id", "target"}

var (
	atMarkerRegex   = regexp.MustCompile(`\[At:(\d+)\]`)
	cqAtMarkerRegex = regexp.MustCompile(`\[CQ:at,qq=(\d+)[,\]]`)
)

// Target is the user a meme is generated for.
type Target struct {
	Id   string
	Name string
}

// NewTarget validates id, which must be 5-12 ASCII digits. Name starts out
// as the id.
func NewTarget(id string) (*Target, error) {
	if len(id) < 5 || len(id) > 12 || !isDigits(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, id)
	}
	return &Target{Id: id, Name: id}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Extractor finds the target user id in a triggered message.
type Extractor struct {
	wholeRegex *regexp.Regexp
}

func NewExtractor(trigger string) *Extractor {
	return &Extractor{
		wholeRegex: regexp.MustCompile(`^` + regexp.QuoteMeta(trigger) + `\s*([0-9]{5,12})\s*$`),
	}
}

// Extract returns the first match of: an at segment, an inline [At:N] or
// [CQ:at,qq=N] marker, or the whole text being "<trigger> N".
func (e *Extractor) Extract(segments []contract.Segment, text string) (string, bool) {
	for _, seg := range segments {
		if seg.Type != contract.SegmentAt {
			continue
		}
		for _, field := range mentionFields {
			if id := seg.Str(field); isDigits(id) {
				return id, true
			}
		}
	}
	if m := atMarkerRegex.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := cqAtMarkerRegex.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := e.wholeRegex.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}
