package widget

import (
	"time"

	"github.com/five82/likebar/internal/likeapi"
)

// Comment is one entry of a widget's comment list.
type Comment = likeapi.Comment

// LikeState is the like control's position in the widget state machine.
type LikeState int

const (
	// Idle accepts a like intent.
	Idle LikeState = iota
	// Liking has a like submission in flight.
	Liking
	// LikeLocked is terminal for the session: already liked, or the server
	// reported the like quota as exhausted.
	LikeLocked
)

func (s LikeState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Liking:
		return "liking"
	case LikeLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// ViewState is everything the presentation layer renders for one widget.
type ViewState struct {
	Likes           int
	HasLikedLocally bool
	Like            LikeState
	// QuotaReason is the server message when the like quota was exhausted.
	QuotaReason string

	Comments     []Comment // newest first
	CommentCount int
	Expanded     bool

	// Pulse is raised by a like intent and drops on its own shortly after.
	Pulse bool
	// CommentInFlight is informational; it never blocks likes or polls.
	CommentInFlight bool
}

// QuotaExceeded reports whether the like control is locked by the server quota.
func (v ViewState) QuotaExceeded() bool {
	return v.Like == LikeLocked && v.QuotaReason != ""
}

// SyncStatus describes poll health. It is kept apart from ViewState so a
// failed poll leaves the view untouched.
type SyncStatus struct {
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s SyncStatus) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Snapshot is a point-in-time copy of a widget.
type Snapshot struct {
	PageKey string
	View    ViewState
	Sync    SyncStatus
}

func cloneComments(items []Comment) []Comment {
	dup := make([]Comment, len(items))
	copy(dup, items)
	return dup
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
