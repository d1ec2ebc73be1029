package widget

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/likebar/internal/likeapi"
	"github.com/five82/likebar/internal/prefs"
)

// API is the subset of the remote service a widget talks to.
type API interface {
	FetchPageState(ctx context.Context, pageKey string) (likeapi.PageState, error)
	InitPage(ctx context.Context, pageKey string) error
	SubmitLike(ctx context.Context, pageKey string) (likeapi.LikeResult, error)
	SubmitComment(ctx context.Context, pageKey, name, body string) (likeapi.CommentResult, error)
}

// LikeOutcome describes what a like intent did.
type LikeOutcome int

const (
	// LikeIgnored means the intent arrived while not Idle; nothing was sent.
	LikeIgnored LikeOutcome = iota
	LikeConfirmed
	LikeQuotaExceeded
	LikeFailed
)

// Widget reconciles one page's like count and comment list with the server.
// All methods are safe for concurrent use. Network calls never run under the
// state lock, so responses apply in arrival order.
type Widget struct {
	cfg    Config
	api    API
	likes  prefs.LikeStore
	logger *zap.Logger

	mu               sync.RWMutex
	view             ViewState
	status           SyncStatus
	commentsInFlight int
	pulseGen         uint64
	pulseTimer       *time.Timer

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a widget. The liked flag is read before anything touches the
// network, so a page liked in an earlier session starts locked.
func New(cfg Config, api API, likes prefs.LikeStore, logger *zap.Logger) (*Widget, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if api == nil {
		return nil, fmt.Errorf("%w: no api client", ErrInvalidConfig)
	}
	if likes == nil {
		likes = prefs.NewMemoryLikeStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Widget{
		cfg:    cfg.withDefaults(),
		api:    api,
		likes:  likes,
		logger: logger.With(zap.String("page_key", cfg.PageKey)),
		view:   ViewState{Comments: []Comment{}},
	}
	if likes.HasLiked(cfg.PageKey) {
		w.view.HasLikedLocally = true
		w.view.Like = LikeLocked
	}
	return w, nil
}

// PageKey returns the page this widget is bound to.
func (w *Widget) PageKey() string {
	return w.cfg.PageKey
}

// Config returns the effective configuration.
func (w *Widget) Config() Config {
	return w.cfg
}

// Snapshot returns a copy of the current state.
func (w *Widget) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	view := w.view
	view.Comments = cloneComments(w.view.Comments)
	return Snapshot{PageKey: w.cfg.PageKey, View: view, Sync: w.status}
}

// Like submits a like when the control is Idle and ignores the intent
// otherwise, so at most one submission is ever in flight.
func (w *Widget) Like(ctx context.Context) (LikeOutcome, error) {
	w.mu.Lock()
	if w.view.Like != Idle {
		w.mu.Unlock()
		return LikeIgnored, nil
	}
	w.view.Like = Liking
	w.startPulseLocked()
	w.mu.Unlock()

	res, err := w.api.SubmitLike(ctx, w.cfg.PageKey)

	w.mu.Lock()
	switch {
	case err != nil:
		// Back to Idle so the user can try again.
		w.view.Like = Idle
		w.mu.Unlock()
		w.logger.Error("like submission failed", zap.Error(err))
		return LikeFailed, err

	case res.LimitExceeded:
		w.view.Like = LikeLocked
		w.view.QuotaReason = res.Reason
		w.mu.Unlock()
		w.logger.Info("like quota exhausted", zap.String("reason", res.Reason))
		return LikeQuotaExceeded, nil
	}

	w.setLikesLocked(res.Likes)
	w.view.Like = LikeLocked
	w.view.HasLikedLocally = true
	w.mu.Unlock()

	if err := w.likes.MarkLiked(w.cfg.PageKey); err != nil {
		w.logger.Warn("persist liked flag", zap.Error(err))
	}
	w.logger.Info("like confirmed", zap.Int("likes", res.Likes))
	return LikeConfirmed, nil
}

// SubmitComment posts a comment. A blank body is ignored without a request
// and reported as posted=false. On success the comment is prepended and the
// list is expanded; on failure nothing changes and the error is returned so
// the caller can keep the composer text.
func (w *Widget) SubmitComment(ctx context.Context, name, body string) (Comment, bool, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, false, nil
	}
	name = strings.TrimSpace(name)

	w.mu.Lock()
	w.commentsInFlight++
	w.view.CommentInFlight = true
	w.mu.Unlock()

	res, err := w.api.SubmitComment(ctx, w.cfg.PageKey, name, body)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.commentsInFlight--
	w.view.CommentInFlight = w.commentsInFlight > 0

	if err != nil {
		w.logger.Error("comment submission failed", zap.Error(err))
		return Comment{}, false, err
	}

	display := res.ConfirmedName
	if display == "" {
		display = name
	}
	if display == "" {
		display = likeapi.DefaultDisplayName()
	}
	posted := Comment{Name: display, Body: body, Time: time.Now().UTC().Format(time.RFC3339)}

	comments := make([]Comment, 0, len(w.view.Comments)+1)
	comments = append(comments, posted)
	comments = append(comments, w.view.Comments...)
	w.view.Comments = comments
	w.view.CommentCount = len(comments)
	w.view.Expanded = true
	return posted, true, nil
}

// Toggle flips comment list visibility and returns the new value.
func (w *Widget) Toggle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.view.Expanded = !w.view.Expanded
	return w.view.Expanded
}

// Refresh performs one poll tick. On success the like count and the whole
// comment list are replaced by the server's; on failure the view is left
// exactly as it was and the error is recorded in SyncStatus.
func (w *Widget) Refresh(ctx context.Context) error {
	state, err := w.api.FetchPageState(ctx, w.cfg.PageKey)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		w.mu.Lock()
		w.status.LastError = err
		w.status.LastUpdated = time.Now()
		w.status.ConsecutiveFailures++
		failures := w.status.ConsecutiveFailures
		w.mu.Unlock()
		w.logger.Warn("page poll failed", zap.Error(err), zap.Int("consecutive_failures", failures))
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.setLikesLocked(state.Likes)
	w.view.Comments = cloneComments(state.Comments)
	w.view.CommentCount = len(state.Comments)
	w.status = SyncStatus{LastUpdated: time.Now()}
	return nil
}

func (w *Widget) setLikesLocked(n int) {
	n = nonNegative(n)
	if w.cfg.MonotonicLikes && n < w.view.Likes {
		return
	}
	w.view.Likes = n
}

func (w *Widget) startPulseLocked() {
	w.view.Pulse = true
	w.pulseGen++
	gen := w.pulseGen
	if w.pulseTimer != nil {
		w.pulseTimer.Stop()
	}
	w.pulseTimer = time.AfterFunc(w.cfg.PulseDuration, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.pulseGen == gen {
			w.view.Pulse = false
		}
	})
}
