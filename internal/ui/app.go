package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/likebar/internal/logtail"
	"github.com/five82/likebar/internal/prefs"
	"github.com/five82/likebar/internal/widget"
)

// Engine is the part of a widget the UI drives.
type Engine interface {
	PageKey() string
	Snapshot() widget.Snapshot
	Like(ctx context.Context) (widget.LikeOutcome, error)
	SubmitComment(ctx context.Context, name, body string) (widget.Comment, bool, error)
	Toggle() bool
}

// Options configures the UI.
type Options struct {
	Context      context.Context
	Widgets      []Engine
	LogPath      string
	Logger       *zap.Logger
	RefreshEvery time.Duration
	ThemeName    string
	PrefsPath    string
}

const (
	defaultRefresh = 250 * time.Millisecond
	logFetchLimit  = 2000
	logPaneHeight  = 8
	statusTTL      = 4 * time.Second
)

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusSuccess
	statusWarning
	statusError
)

type statusLine struct {
	text  string
	level statusLevel
	seq   int
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	widgets   []Engine
	logPath   string
	logger    *zap.Logger
	prefsPath string
	refresh   time.Duration

	keys   keyMap
	theme  Theme
	width  int
	height int
	ready  bool

	snapshots []widget.Snapshot
	selected  int
	now       time.Time

	showHelp    bool
	showLogs    bool
	logViewport viewport.Model
	logEntries  []logtail.Entry
	logErr      error

	composer composer
	status   statusLine
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	refresh := opts.RefreshEvery
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Load(opts.PrefsPath).Theme
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := Model{
		ctx:       ctx,
		widgets:   opts.Widgets,
		logPath:   opts.LogPath,
		logger:    logger,
		prefsPath: prefsPath,
		refresh:   refresh,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(themeName),
		now:       time.Now(),
		composer:  newComposer(),
	}
	m.snapshots = collectSnapshots(m.widgets)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.refresh),
		fetchSnapshotsCmd(m.widgets),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(m.paneWidth(), logPaneHeight)
		}
		m.ready = true
		m.logViewport.Width = m.paneWidth()
		m.composer.setWidth(m.paneWidth())
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotsMsg:
		m.snapshots = []widget.Snapshot(msg)
		m.clampSelection()
		return m, nil

	case likeDoneMsg:
		m.handleLikeDone(msg)
		return m, m.expireStatusCmd()

	case commentDoneMsg:
		cmd := m.handleCommentDone(msg)
		return m, tea.Batch(cmd, m.expireStatusCmd())

	case logEntriesMsg:
		m.handleLogEntries(msg)
		return m, nil

	case statusExpiredMsg:
		if msg.seq == m.status.seq {
			m.status.text = ""
		}
		return m, nil
	}

	if m.composer.open {
		var cmd tea.Cmd
		m.composer, cmd = m.composer.update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.composer.open {
		return m.handleComposerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefsPath != "" {
			if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name}); err != nil {
				m.logger.Warn("save theme preference", zap.Error(err))
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
		if m.showLogs {
			return m, m.refreshLogs()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.widgets)-1 {
			m.selected++
			return m, m.selectionChanged()
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			return m, m.selectionChanged()
		}
		return m, nil
	}

	target := m.current()
	if target == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Like):
		return m, likeCmd(m.ctx, target, m.selected)

	case key.Matches(msg, m.keys.Toggle):
		target.Toggle()
		m.snapshots = collectSnapshots(m.widgets)
		return m, nil

	case key.Matches(msg, m.keys.Compose):
		return m, m.composer.openFor(m.selected)
	}

	return m, nil
}

func (m Model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.composer.cancel()
		return m, nil

	case key.Matches(msg, m.keys.SwitchField):
		return m, m.composer.switchField()

	case key.Matches(msg, m.keys.Submit):
		if m.composer.submitting {
			return m, nil
		}
		idx := m.composer.target
		if idx < 0 || idx >= len(m.widgets) {
			m.composer.cancel()
			return m, nil
		}
		m.composer.submitting = true
		name, body := m.composer.values()
		return m, submitCommentCmd(m.ctx, m.widgets[idx], idx, name, body)
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.update(msg)
	return m, cmd
}

// handleTick re-reads every widget and schedules the next tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.now = now
	cmds := []tea.Cmd{fetchSnapshotsCmd(m.widgets)}
	if m.showLogs {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, tickCmd(m.refresh))
	return m, tea.Batch(cmds...)
}

func (m *Model) handleLikeDone(msg likeDoneMsg) {
	m.snapshots = collectSnapshots(m.widgets)
	page := m.pageKeyAt(msg.index)

	switch msg.outcome {
	case widget.LikeConfirmed:
		m.setStatus(statusSuccess, "Liked "+page)
	case widget.LikeQuotaExceeded:
		reason := msg.reason
		if reason == "" {
			reason = "like limit reached"
		}
		m.setStatus(statusWarning, fmt.Sprintf("%s: %s", page, reason))
	case widget.LikeFailed:
		m.setStatus(statusError, fmt.Sprintf("Like failed for %s: %v", page, msg.err))
	}
}

func (m *Model) handleCommentDone(msg commentDoneMsg) tea.Cmd {
	m.composer.submitting = false
	m.snapshots = collectSnapshots(m.widgets)

	switch {
	case msg.err != nil:
		// Keep the composer and its text so the user can retry.
		m.setStatus(statusError, fmt.Sprintf("Comment not posted: %v", msg.err))
		return nil
	case !msg.posted:
		return nil
	}

	if m.composer.target == msg.index {
		m.composer.done()
	}
	m.setStatus(statusSuccess, fmt.Sprintf("Comment posted as %s", msg.comment.DisplayName()))
	return nil
}

func (m *Model) handleLogEntries(msg logEntriesMsg) {
	if msg.pageKey != m.pageKeyAt(m.selected) {
		return
	}
	m.logEntries = msg.entries
	m.logErr = msg.err
	m.updateLogViewport()
}

func (m *Model) setStatus(level statusLevel, text string) {
	m.status = statusLine{text: text, level: level, seq: m.status.seq + 1}
}

func (m Model) expireStatusCmd() tea.Cmd {
	if m.status.text == "" {
		return nil
	}
	seq := m.status.seq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return statusExpiredMsg{seq: seq}
	})
}

func (m *Model) selectionChanged() tea.Cmd {
	m.logEntries = nil
	m.logErr = nil
	m.updateLogViewport()
	if m.showLogs {
		return m.refreshLogs()
	}
	return nil
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.snapshots) {
		m.selected = len(m.snapshots) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) current() Engine {
	if m.selected < 0 || m.selected >= len(m.widgets) {
		return nil
	}
	return m.widgets[m.selected]
}

func (m Model) pageKeyAt(idx int) string {
	if idx < 0 || idx >= len(m.widgets) {
		return ""
	}
	return m.widgets[idx].PageKey()
}

func (m Model) refreshLogs() tea.Cmd {
	if strings.TrimSpace(m.logPath) == "" {
		return nil
	}
	page := m.pageKeyAt(m.selected)
	if page == "" {
		return nil
	}
	return fetchLogsCmd(m.logPath, page)
}

func (m Model) paneWidth() int {
	if m.width <= 4 {
		return 1
	}
	return m.width - 4
}

// Messages

type tickMsg time.Time

type snapshotsMsg []widget.Snapshot

type likeDoneMsg struct {
	index   int
	outcome widget.LikeOutcome
	reason  string
	err     error
}

type commentDoneMsg struct {
	index   int
	comment widget.Comment
	posted  bool
	err     error
}

type logEntriesMsg struct {
	pageKey string
	entries []logtail.Entry
	err     error
}

type statusExpiredMsg struct {
	seq int
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotsCmd(widgets []Engine) tea.Cmd {
	return func() tea.Msg {
		return snapshotsMsg(collectSnapshots(widgets))
	}
}

func likeCmd(ctx context.Context, w Engine, idx int) tea.Cmd {
	return func() tea.Msg {
		outcome, err := w.Like(ctx)
		msg := likeDoneMsg{index: idx, outcome: outcome, err: err}
		if outcome == widget.LikeQuotaExceeded {
			msg.reason = w.Snapshot().View.QuotaReason
		}
		return msg
	}
}

func submitCommentCmd(ctx context.Context, w Engine, idx int, name, body string) tea.Cmd {
	return func() tea.Msg {
		posted, ok, err := w.SubmitComment(ctx, name, body)
		return commentDoneMsg{index: idx, comment: posted, posted: ok, err: err}
	}
}

func fetchLogsCmd(path, pageKey string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, logFetchLimit)
		return logEntriesMsg{pageKey: pageKey, entries: logtail.ForPage(lines, pageKey), err: err}
	}
}

func collectSnapshots(widgets []Engine) []widget.Snapshot {
	out := make([]widget.Snapshot, 0, len(widgets))
	for _, w := range widgets {
		out = append(out, w.Snapshot())
	}
	return out
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
