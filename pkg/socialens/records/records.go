// Package records holds the scraped input collections (comments, videos,
// creators, mappings) and their JSON loaders.
//
// Records are immutable once loaded. Identifiers may arrive as JSON numbers
// or strings and are normalized to strings. Engagement counters keep their
// raw JSON token until a consumer coerces them, so a malformed value can be
// told apart from a genuine zero.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is an identifier normalized to its string form.
type ID string

// UnmarshalJSON accepts strings and numbers. Integral floats such as 42.0
// lose their fractional part.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}

	s := string(b)
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("id %s: not a string or number", s)
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	*id = ID(s)
	return nil
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Number is a numeric field kept as its original JSON token.
type Number struct {
	raw string
	set bool
}

// NumberOf wraps a literal token, mostly for tests and fixtures.
func NumberOf(raw string) Number {
	return Number{raw: raw, set: true}
}

var (
	errMissing    = errors.New("missing value")
	errNotNumeric = errors.New("not numeric")
)

// UnmarshalJSON stores the token verbatim.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*n = Number{}
		return nil
	}
	*n = Number{raw: string(b), set: true}
	return nil
}

// MarshalJSON writes the original token, or null when absent.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte("null"), nil
	}
	if json.Valid([]byte(n.raw)) {
		return []byte(n.raw), nil
	}
	return json.Marshal(n.raw)
}

// IsSet reports whether the field was present and not null.
func (n Number) IsSet() bool { return n.set }

// Raw returns the original token text.
func (n Number) Raw() string { return n.raw }

// Float64 coerces the value. Quoted numerals are accepted; anything else
// (missing, null, booleans, free text, NaN) is an error.
func (n Number) Float64() (float64, error) {
	if !n.set {
		return 0, errMissing
	}
	s := strings.TrimSpace(n.raw)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal([]byte(s), &s); err != nil {
			return 0, fmt.Errorf("%s: %w", n.raw, errNotNumeric)
		}
		s = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %w", n.raw, errNotNumeric)
	}
	return f, nil
}

// Int64 coerces the value to an integer. Non-integral values are errors.
func (n Number) Int64() (int64, error) {
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	// float64(MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%s: not an integer", n.raw)
	}
	return int64(f), nil
}

// Comment is one scraped comment.
type Comment struct {
	CommentID       ID     `json:"comment_id"`
	Content         string `json:"content"`
	CreateTime      Number `json:"create_time"`
	UserID          ID     `json:"user_id"`
	VideoID         ID     `json:"video_id,omitempty"`
	SubCommentCount Number `json:"sub_comment_count"`
	LastModifyTS    Number `json:"last_modify_ts"`
}

// Video is one scraped video.
type Video struct {
	VideoID        ID     `json:"video_id"`
	Title          string `json:"title"`
	Desc           string `json:"desc"`
	CreateTime     Number `json:"create_time"`
	UserID         ID     `json:"user_id"`
	LikedCount     Number `json:"liked_count"`
	VideoPlayCount Number `json:"video_play_count"`
	VideoComment   Number `json:"video_comment"`
	VideoDanmaku   Number `json:"video_danmaku"`
}

// Text returns the title and description joined for topic extraction.
func (v Video) Text() string {
	return strings.TrimSpace(v.Title + " " + v.Desc)
}

// Creator is one scraped creator profile.
type Creator struct {
	UserID       ID     `json:"user_id"`
	Nickname     string `json:"nickname"`
	TotalFans    Number `json:"total_fans"`
	TotalLiked   Number `json:"total_liked"`
	LastModifyTS Number `json:"last_modify_ts"`
}

// Mapping links a comment to a video.
type Mapping struct {
	CommentID ID `json:"comment_id"`
	VideoID   ID `json:"video_id"`
}

// Required fields per collection. A field absent from every object of a
// collection is a configuration error.
var (
	CommentFields = []string{"comment_id", "content", "create_time", "user_id", "sub_comment_count", "last_modify_ts"}
	VideoFields   = []string{"video_id", "title", "desc", "create_time", "user_id", "liked_count", "video_play_count", "video_comment", "video_danmaku"}
	CreatorFields = []string{"user_id", "nickname", "total_fans", "total_liked", "last_modify_ts"}
	MappingFields = []string{"comment_id", "video_id"}
)
