package likeapi

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"
)

// Count is a like total as the API reports it. The server has sent numbers,
// numeric strings and nulls over time, so decoding never fails: anything that
// cannot be read as a number leaves Valid false and N zero.
type Count struct {
	N     int
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	*c = Count{}
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		unquoted, err := strconv.Unquote(string(raw))
		if err != nil {
			return nil
		}
		if n, ok := leadingInt(unquoted); ok {
			*c = Count{N: clampCount(n), Valid: true}
		}
		return nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*c = Count{N: clampFloat(f), Valid: true}
	return nil
}

// leadingInt parses an optional sign followed by decimal digits at the start
// of s, ignoring whatever follows ("12abc" -> 12, "3.7" -> 3).
func leadingInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		// Overflow: the digits are real, the magnitude is not representable.
		if strings.HasPrefix(s, "-") {
			return 0, true
		}
		return math.MaxInt64, true
	}
	return n, true
}

func clampCount(n int64) int {
	if n < 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func clampFloat(f float64) int {
	if f <= 0 {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// firstCount returns the first valid count, or zero.
func firstCount(counts ...Count) int {
	for _, c := range counts {
		if c.Valid {
			return c.N
		}
	}
	return 0
}

// Comment is a single entry in a page's comment list.
type Comment struct {
	Name string `json:"name"`
	Body string `json:"comment"`
	Time string `json:"time,omitempty"`
}

const defaultDisplayName = "User"

// DefaultDisplayName is shown for comments that carry no author name.
func DefaultDisplayName() string {
	return defaultDisplayName
}

// DisplayName returns the author name, or the generic label when empty.
func (c Comment) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return defaultDisplayName
}

// ParsedTime returns the comment timestamp, zero when absent or unparsable.
func (c Comment) ParsedTime() time.Time {
	return parseTime(c.Time)
}

// PageState is the normalized result of GET /api/page/{key}.
type PageState struct {
	Likes    int
	Comments []Comment
}

// LikeResult is the normalized result of POST /api/like.
type LikeResult struct {
	Likes         int
	LimitExceeded bool
	// Reason carries the server's message when LimitExceeded is set.
	Reason string
}

// CommentResult is the normalized result of POST /api/comment.
type CommentResult struct {
	// ConfirmedName is the name the server stored, empty when not reported.
	ConfirmedName string
}

type pageResponse struct {
	Likes      Count     `json:"likes"`
	TotalLikes Count     `json:"total_likes"`
	Comments   []Comment `json:"comments"`
	Error      string    `json:"error"`
}

type likeResponse struct {
	Likes      Count  `json:"likes"`
	TotalLikes Count  `json:"total_likes"`
	Error      string `json:"error"`
}

type commentResponse struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type pageKeyRequest struct {
	PageKey string `json:"page_key"`
}

type commentRequest struct {
	PageKey string `json:"page_key"`
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

const isoNoZoneLayout = "2006-01-02T15:04:05.999999"

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	// The API emits naive UTC timestamps.
	if t, err := time.ParseInLocation(isoNoZoneLayout, value, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}
