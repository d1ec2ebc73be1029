package widget

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/likebar/internal/likeapi"
	"github.com/five82/likebar/internal/prefs"
)

type fakeAPI struct {
	fetch   func(ctx context.Context) (likeapi.PageState, error)
	like    func(ctx context.Context) (likeapi.LikeResult, error)
	comment func(ctx context.Context, name, body string) (likeapi.CommentResult, error)

	fetchCalls   atomic.Int32
	initCalls    atomic.Int32
	likeCalls    atomic.Int32
	commentCalls atomic.Int32

	mu          sync.Mutex
	initBefore  bool // InitPage ran before the first fetch
	lastComment [2]string
}

func (f *fakeAPI) FetchPageState(ctx context.Context, pageKey string) (likeapi.PageState, error) {
	if f.fetchCalls.Add(1) == 1 {
		f.mu.Lock()
		f.initBefore = f.initCalls.Load() > 0
		f.mu.Unlock()
	}
	if f.fetch == nil {
		return likeapi.PageState{Comments: []likeapi.Comment{}}, nil
	}
	return f.fetch(ctx)
}

func (f *fakeAPI) InitPage(ctx context.Context, pageKey string) error {
	f.initCalls.Add(1)
	return nil
}

func (f *fakeAPI) SubmitLike(ctx context.Context, pageKey string) (likeapi.LikeResult, error) {
	f.likeCalls.Add(1)
	if f.like == nil {
		return likeapi.LikeResult{}, nil
	}
	return f.like(ctx)
}

func (f *fakeAPI) SubmitComment(ctx context.Context, pageKey, name, body string) (likeapi.CommentResult, error) {
	f.commentCalls.Add(1)
	f.mu.Lock()
	f.lastComment = [2]string{name, body}
	f.mu.Unlock()
	if f.comment == nil {
		return likeapi.CommentResult{}, nil
	}
	return f.comment(ctx, name, body)
}

func staticPage(likes int, comments ...likeapi.Comment) func(context.Context) (likeapi.PageState, error) {
	return func(context.Context) (likeapi.PageState, error) {
		return likeapi.PageState{Likes: likes, Comments: comments}, nil
	}
}

func newWidget(t *testing.T, api *fakeAPI, store prefs.LikeStore) *Widget {
	t.Helper()
	w, err := New(Config{PageKey: "demo-page", APIBase: "https://api.example.com"}, api, store, nil)
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	return w
}

func TestScenario_LikeThenComment(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryLikeStore()
	api := &fakeAPI{
		fetch: staticPage(3),
		like: func(context.Context) (likeapi.LikeResult, error) {
			return likeapi.LikeResult{Likes: 4}, nil
		},
		comment: func(context.Context, string, string) (likeapi.CommentResult, error) {
			return likeapi.CommentResult{ConfirmedName: "Anon"}, nil
		},
	}
	w := newWidget(t, api, store)

	require.NoError(t, w.Refresh(ctx))
	view := w.Snapshot().View
	require.Equal(t, 3, view.Likes)
	require.Equal(t, 0, view.CommentCount)
	require.Equal(t, Idle, view.Like)

	outcome, err := w.Like(ctx)
	require.NoError(t, err)
	require.Equal(t, LikeConfirmed, outcome)
	view = w.Snapshot().View
	require.Equal(t, 4, view.Likes)
	require.Equal(t, LikeLocked, view.Like)
	require.True(t, view.HasLikedLocally)
	require.True(t, store.HasLiked("demo-page"))

	posted, ok, err := w.SubmitComment(ctx, "", "hello")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Anon", posted.Name)

	view = w.Snapshot().View
	require.Len(t, view.Comments, 1)
	require.Equal(t, "Anon", view.Comments[0].Name)
	require.Equal(t, "hello", view.Comments[0].Body)
	require.Equal(t, 1, view.CommentCount)
	require.True(t, view.Expanded)
}

func TestScenario_QuotaExhaustedKeepsCount(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryLikeStore()
	api := &fakeAPI{
		fetch: staticPage(2),
		like: func(context.Context) (likeapi.LikeResult, error) {
			return likeapi.LikeResult{Likes: 5, LimitExceeded: true, Reason: "total like limit reached"}, nil
		},
	}
	w := newWidget(t, api, store)
	require.NoError(t, w.Refresh(ctx))

	outcome, err := w.Like(ctx)
	require.NoError(t, err)
	require.Equal(t, LikeQuotaExceeded, outcome)

	view := w.Snapshot().View
	require.Equal(t, 2, view.Likes, "count must not move on quota refusal")
	require.Equal(t, LikeLocked, view.Like)
	require.True(t, view.QuotaExceeded())
	require.Equal(t, "total like limit reached", view.QuotaReason)
	require.False(t, store.HasLiked("demo-page"))

	outcome, err = w.Like(ctx)
	require.NoError(t, err)
	require.Equal(t, LikeIgnored, outcome)
	require.EqualValues(t, 1, api.likeCalls.Load())
}

func TestScenario_FailedPollLeavesViewUntouched(t *testing.T) {
	ctx := context.Background()
	fail := atomic.Bool{}
	api := &fakeAPI{}
	api.fetch = func(context.Context) (likeapi.PageState, error) {
		if fail.Load() {
			return likeapi.PageState{}, errors.New("network down")
		}
		return likeapi.PageState{Likes: 7, Comments: []likeapi.Comment{{Name: "a", Body: "b"}}}, nil
	}
	w := newWidget(t, api, nil)
	require.NoError(t, w.Refresh(ctx))
	w.Toggle()
	before := w.Snapshot()

	fail.Store(true)
	require.NotPanics(t, func() {
		require.Error(t, w.Refresh(ctx))
	})

	after := w.Snapshot()
	require.Equal(t, before.View, after.View)
	require.Equal(t, 1, after.Sync.ConsecutiveFailures)
	require.Error(t, after.Sync.LastError)
	require.False(t, after.Sync.IsOffline())

	require.Error(t, w.Refresh(ctx))
	require.True(t, w.Snapshot().Sync.IsOffline())

	fail.Store(false)
	require.NoError(t, w.Refresh(ctx))
	require.Zero(t, w.Snapshot().Sync.ConsecutiveFailures)
}

func TestRefresh_ReplacesListWholesale(t *testing.T) {
	ctx := context.Background()
	page := []likeapi.Comment{{Name: "x", Body: "newest"}, {Name: "y", Body: "older"}}
	api := &fakeAPI{fetch: staticPage(1, page...)}
	w := newWidget(t, api, nil)

	require.NoError(t, w.Refresh(ctx))
	first := w.Snapshot().View
	require.NoError(t, w.Refresh(ctx))
	require.Equal(t, first, w.Snapshot().View, "identical responses must not change the view")
	require.Len(t, w.Snapshot().View.Comments, 2)

	// A locally posted comment is dropped if the next poll does not carry it.
	_, ok, err := w.SubmitComment(ctx, "me", "local")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, w.Snapshot().View.Comments, 3)

	require.NoError(t, w.Refresh(ctx))
	view := w.Snapshot().View
	require.Equal(t, page, view.Comments)
	require.Equal(t, 2, view.CommentCount)
}

func TestNew_PersistedFlagLocksBeforeNetwork(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryLikeStore()
	api := &fakeAPI{like: func(context.Context) (likeapi.LikeResult, error) {
		return likeapi.LikeResult{Likes: 1}, nil
	}}

	first := newWidget(t, api, store)
	outcome, err := first.Like(ctx)
	require.NoError(t, err)
	require.Equal(t, LikeConfirmed, outcome)

	// Re-initializing over the same store models a page reload.
	second := newWidget(t, api, store)
	view := second.Snapshot().View
	require.Equal(t, LikeLocked, view.Like)
	require.True(t, view.HasLikedLocally)
	require.Zero(t, api.fetchCalls.Load())

	outcome, err = second.Like(ctx)
	require.NoError(t, err)
	require.Equal(t, LikeIgnored, outcome)
	require.EqualValues(t, 1, api.likeCalls.Load())
}

func TestLike_AtMostOneInFlight(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var inFlight, maxInFlight atomic.Int32
	api := &fakeAPI{like: func(context.Context) (likeapi.LikeResult, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return likeapi.LikeResult{Likes: 10}, nil
	}}
	w := newWidget(t, api, nil)

	var wg sync.WaitGroup
	outcomes := make(chan LikeOutcome, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, _ := w.Like(ctx)
			outcomes <- outcome
		}()
	}

	require.Eventually(t, func() bool { return api.likeCalls.Load() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, Liking, w.Snapshot().View.Like)
	close(release)
	wg.Wait()
	close(outcomes)

	confirmed := 0
	for outcome := range outcomes {
		if outcome == LikeConfirmed {
			confirmed++
		}
	}
	require.Equal(t, 1, confirmed)
	require.EqualValues(t, 1, api.likeCalls.Load())
	require.EqualValues(t, 1, maxInFlight.Load())
	require.Equal(t, 10, w.Snapshot().View.Likes)
}

func TestLike_TransportFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	attempts := atomic.Int32{}
	api := &fakeAPI{
		fetch: staticPage(3),
		like: func(context.Context) (likeapi.LikeResult, error) {
			if attempts.Add(1) == 1 {
				return likeapi.LikeResult{}, errors.New("connection reset")
			}
			return likeapi.LikeResult{Likes: 4}, nil
		},
	}
	w := newWidget(t, api, nil)
	require.NoError(t, w.Refresh(ctx))

	outcome, err := w.Like(ctx)
	require.Error(t, err)
	require.Equal(t, LikeFailed, outcome)
	view := w.Snapshot().View
	require.Equal(t, Idle, view.Like)
	require.Equal(t, 3, view.Likes)

	outcome, err = w.Like(ctx)
	require.NoError(t, err)
	require.Equal(t, LikeConfirmed, outcome)
	require.Equal(t, 4, w.Snapshot().View.Likes)
}

func TestScenario_EmptySubmitResponsesChangeNothing(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `{"likes": 3, "comments": []}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client, err := likeapi.NewClient(server.URL)
	require.NoError(t, err)
	store := prefs.NewMemoryLikeStore()
	w, err := New(Config{PageKey: "demo-page", APIBase: server.URL}, client, store, nil)
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	require.NoError(t, w.Refresh(ctx))

	outcome, err := w.Like(ctx)
	var decodeErr *likeapi.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, LikeFailed, outcome)
	view := w.Snapshot().View
	require.Equal(t, 3, view.Likes)
	require.Equal(t, Idle, view.Like)
	require.False(t, view.HasLikedLocally)
	require.False(t, store.HasLiked("demo-page"))

	_, ok, err := w.SubmitComment(ctx, "Ann", "hi")
	require.ErrorAs(t, err, &decodeErr)
	require.False(t, ok)
	view = w.Snapshot().View
	require.Empty(t, view.Comments)
	require.Zero(t, view.CommentCount)
	require.False(t, view.Expanded)
	require.False(t, view.CommentInFlight)
}

func TestSubmitComment_BlankBodyIsIgnored(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{fetch: staticPage(1, likeapi.Comment{Name: "a", Body: "b"})}
	w := newWidget(t, api, nil)
	require.NoError(t, w.Refresh(ctx))
	before := w.Snapshot().View

	for _, body := range []string{"", "   ", "\n\t  \r\n"} {
		_, ok, err := w.SubmitComment(ctx, "name", body)
		require.NoError(t, err)
		require.False(t, ok)
	}
	require.Zero(t, api.commentCalls.Load())
	require.Equal(t, before, w.Snapshot().View)
}

func TestSubmitComment_NameFallbacks(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name      string
		typed     string
		confirmed string
		want      string
	}{
		{"server name wins", "typed", "Server", "Server"},
		{"typed name", "  typed  ", "", "typed"},
		{"default label", "   ", "", "User"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{comment: func(context.Context, string, string) (likeapi.CommentResult, error) {
				return likeapi.CommentResult{ConfirmedName: tc.confirmed}, nil
			}}
			w := newWidget(t, api, nil)
			posted, ok, err := w.SubmitComment(ctx, tc.typed, "  body  ")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, tc.want, posted.Name)
			require.Equal(t, "body", posted.Body)

			api.mu.Lock()
			sent := api.lastComment
			api.mu.Unlock()
			require.Equal(t, "body", sent[1], "body is trimmed before sending")
		})
	}
}

func TestSubmitComment_FailureChangesNothing(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{
		fetch: staticPage(1, likeapi.Comment{Name: "a", Body: "b"}),
		comment: func(context.Context, string, string) (likeapi.CommentResult, error) {
			return likeapi.CommentResult{}, errors.New("boom")
		},
	}
	w := newWidget(t, api, nil)
	require.NoError(t, w.Refresh(ctx))
	before := w.Snapshot().View

	_, ok, err := w.SubmitComment(ctx, "", "hello")
	require.Error(t, err)
	require.False(t, ok)
	require.Equal(t, before, w.Snapshot().View)
}

func TestSubmitComment_DoesNotDependOnExpandedOrLikeState(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	api := &fakeAPI{like: func(context.Context) (likeapi.LikeResult, error) {
		<-release
		return likeapi.LikeResult{Likes: 1}, nil
	}}
	w := newWidget(t, api, nil)
	require.False(t, w.Snapshot().View.Expanded)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.Like(ctx)
	}()
	require.Eventually(t, func() bool { return w.Snapshot().View.Like == Liking }, time.Second, time.Millisecond)

	_, ok, err := w.SubmitComment(ctx, "", "while liking")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, w.Snapshot().View.Expanded)

	close(release)
	<-done
}

func TestToggle(t *testing.T) {
	w := newWidget(t, &fakeAPI{}, nil)
	require.True(t, w.Toggle())
	require.False(t, w.Toggle())

	// A posted comment forces the list open regardless of prior state.
	_, _, err := w.SubmitComment(context.Background(), "", "x")
	require.NoError(t, err)
	require.True(t, w.Snapshot().View.Expanded)
	require.False(t, w.Toggle())
}

func TestLike_PulseResetsItself(t *testing.T) {
	api := &fakeAPI{like: func(context.Context) (likeapi.LikeResult, error) {
		return likeapi.LikeResult{}, errors.New("offline")
	}}
	w, err := New(Config{
		PageKey:       "p",
		APIBase:       "https://api.example.com",
		PulseDuration: 5 * time.Millisecond,
	}, api, nil, nil)
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	_, _ = w.Like(context.Background())
	require.Eventually(t, func() bool { return !w.Snapshot().View.Pulse }, time.Second, time.Millisecond)
}

func TestRefresh_CountCoercionAndMonotonicOption(t *testing.T) {
	ctx := context.Background()
	likes := atomic.Int32{}
	api := &fakeAPI{fetch: func(context.Context) (likeapi.PageState, error) {
		return likeapi.PageState{Likes: int(likes.Load())}, nil
	}}

	plain := newWidget(t, api, nil)
	likes.Store(5)
	require.NoError(t, plain.Refresh(ctx))
	likes.Store(3)
	require.NoError(t, plain.Refresh(ctx))
	require.Equal(t, 3, plain.Snapshot().View.Likes, "last writer wins by default")
	likes.Store(-4)
	require.NoError(t, plain.Refresh(ctx))
	require.Equal(t, 0, plain.Snapshot().View.Likes)

	mono, err := New(Config{PageKey: "p", APIBase: "https://api.example.com", MonotonicLikes: true}, api, nil, nil)
	require.NoError(t, err)
	likes.Store(5)
	require.NoError(t, mono.Refresh(ctx))
	likes.Store(3)
	require.NoError(t, mono.Refresh(ctx))
	require.Equal(t, 5, mono.Snapshot().View.Likes)
}

func TestStart_PollsImmediatelyAndUntilStopped(t *testing.T) {
	api := &fakeAPI{fetch: staticPage(2)}
	w, err := New(Config{
		PageKey:      "p",
		APIBase:      "https://api.example.com",
		PollInterval: 5 * time.Millisecond,
		InitPage:     true,
	}, api, nil, nil)
	require.NoError(t, err)

	w.Start(context.Background())
	w.Start(context.Background()) // second start is a no-op

	require.Eventually(t, func() bool { return api.fetchCalls.Load() >= 3 }, 2*time.Second, time.Millisecond)
	require.Equal(t, 2, w.Snapshot().View.Likes)
	require.EqualValues(t, 1, api.initCalls.Load())
	api.mu.Lock()
	require.True(t, api.initBefore, "page init must precede the first poll")
	api.mu.Unlock()

	w.Stop()
	stopped := api.fetchCalls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, stopped, api.fetchCalls.Load())
}

func TestStart_ContextCancelEndsLoop(t *testing.T) {
	api := &fakeAPI{fetch: func(ctx context.Context) (likeapi.PageState, error) {
		return likeapi.PageState{}, errors.New("unreachable")
	}}
	w, err := New(Config{PageKey: "p", APIBase: "https://api.example.com", PollInterval: time.Hour}, api, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	require.Eventually(t, func() bool { return api.fetchCalls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	finished := make(chan struct{})
	go func() {
		w.Stop()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
	require.Equal(t, 1, w.Snapshot().Sync.ConsecutiveFailures)
}

func TestConfigValidate(t *testing.T) {
	_, err := New(Config{APIBase: "https://x"}, &fakeAPI{}, nil, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorContains(t, err, "page key")

	_, err = New(Config{PageKey: "   ", APIBase: "https://x"}, &fakeAPI{}, nil, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorContains(t, err, "page key")

	_, err = New(Config{PageKey: "p", APIBase: "  "}, &fakeAPI{}, nil, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorContains(t, err, "api base url")

	_, err = New(Config{PageKey: "p", APIBase: "https://x"}, nil, nil, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	w, err := New(Config{PageKey: "p", APIBase: "https://x"}, &fakeAPI{}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultPollInterval, w.Config().PollInterval)
	require.Equal(t, DefaultPulseDuration, w.Config().PulseDuration)
}
