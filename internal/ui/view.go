package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/likebar/internal/widget"
)

const maxCommentsShown = 20

// renderMain renders header, cards, optional panes and the footer.
func (m Model) renderMain() string {
	header := m.renderHeader()
	footer := m.renderFooter()

	var panes []string
	if m.showLogs {
		panes = append(panes, m.renderLogPane())
	}
	if m.composer.open {
		panes = append(panes, m.renderComposer())
	}

	used := lipgloss.Height(header) + lipgloss.Height(footer)
	for _, p := range panes {
		used += lipgloss.Height(p)
	}

	parts := []string{header, m.renderCards(m.height - used)}
	parts = append(parts, panes...)
	parts = append(parts, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	left := styles.Logo.Render("♥ likebar")
	right := styles.MutedText.Render(fmt.Sprintf("%d pages · %s", len(m.snapshots), m.theme.Name))
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return styles.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.status.text != "" {
		var style lipgloss.Style
		switch m.status.level {
		case statusSuccess:
			style = styles.SuccessText
		case statusWarning:
			style = styles.WarningText
		case statusError:
			style = styles.DangerText
		default:
			style = styles.InfoText
		}
		return styles.Footer.Width(m.width).Render(style.Render(truncate(m.status.text, m.width-2)))
	}

	bindings := []struct{ keys, desc string }{
		{"l", "like"}, {"t", "comments"}, {"c", "write"}, {"j/k", "move"},
		{"L", "log"}, {"?", "help"}, {"q", "quit"},
	}
	if m.composer.open {
		bindings = []struct{ keys, desc string }{
			{"enter", "post"}, {"tab", "name/comment"}, {"esc", "cancel"},
		}
	}
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		hints = append(hints, styles.AccentText.Render(b.keys)+" "+b.desc)
	}
	return styles.Footer.Width(m.width).Render(strings.Join(hints, "  "))
}

// renderCards renders as many cards as fit in height, keeping the selected
// card visible.
func (m Model) renderCards(height int) string {
	styles := m.theme.Styles()
	if len(m.snapshots) == 0 {
		return styles.MutedText.Render("  No pages configured")
	}

	cards := make([]string, len(m.snapshots))
	for i, snap := range m.snapshots {
		cards[i] = renderCard(snap, i == m.selected, m.width, m.now, styles)
	}
	if height <= 0 {
		return cards[m.selected]
	}

	// Walk back from the selection, then fill forward with what remains.
	first, used := m.selected, lipgloss.Height(cards[m.selected])
	for first > 0 && used+lipgloss.Height(cards[first-1]) <= height {
		first--
		used += lipgloss.Height(cards[first])
	}
	last := m.selected
	for last < len(cards)-1 && used+lipgloss.Height(cards[last+1]) <= height {
		last++
		used += lipgloss.Height(cards[last])
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards[first:last+1]...)
}

// renderCard draws one widget: title and sync health, the like control, the
// comment counter with its toggle arrow and, when expanded, the comments.
func renderCard(snap widget.Snapshot, selected bool, width int, now time.Time, styles Styles) string {
	inner := max(width-4, 10)
	view := snap.View

	title := styles.Text.Bold(true).Render(truncate(snap.PageKey, inner/2))
	health := syncLabel(snap.Sync, now, styles)
	gap := max(inner-lipgloss.Width(title)-lipgloss.Width(health), 1)

	var b strings.Builder
	b.WriteString(title + strings.Repeat(" ", gap) + health)
	b.WriteString("\n")

	arrow := "▸"
	if view.Expanded {
		arrow = "▾"
	}
	counter := fmt.Sprintf("💬 %d %s", view.CommentCount, arrow)
	b.WriteString(likeControl(view, styles))
	b.WriteString("   ")
	b.WriteString(styles.Text.Render(counter))
	if view.CommentInFlight {
		b.WriteString(" " + styles.FaintText.Render("posting…"))
	}

	if view.Expanded {
		b.WriteString("\n")
		b.WriteString(renderComments(view.Comments, inner, now, styles))
	}

	style := styles.Card
	if selected {
		style = styles.CardFocus
	}
	return style.Width(width - 2).Render(b.String())
}

// likeControl derives the heart from state: pulsing while a like is sent,
// filled once liked, muted with the server's reason when the quota is gone.
func likeControl(view widget.ViewState, styles Styles) string {
	count := fmt.Sprintf("%d", view.Likes)
	switch {
	case view.Pulse || view.Like == widget.Liking:
		return styles.HeartPulse.Render("❤ " + count)
	case view.QuotaExceeded():
		return styles.MutedText.Render("♡ "+count) + " " + styles.WarningText.Render(truncate(view.QuotaReason, 40))
	case view.Like == widget.LikeLocked:
		return styles.Heart.Render("❤ "+count) + " " + styles.MutedText.Render("liked")
	default:
		return styles.Text.Render("♡ " + count)
	}
}

func syncLabel(status widget.SyncStatus, now time.Time, styles Styles) string {
	switch {
	case status.IsOffline():
		return styles.DangerText.Render("offline")
	case status.LastError != nil:
		return styles.WarningText.Render("retrying")
	case status.LastUpdated.IsZero():
		return styles.FaintText.Render("loading")
	default:
		return styles.FaintText.Render("synced " + ageLabel(status.LastUpdated, now))
	}
}

func renderComments(comments []widget.Comment, width int, now time.Time, styles Styles) string {
	if len(comments) == 0 {
		return styles.FaintText.Render("  No comments yet")
	}

	shown := comments
	if len(shown) > maxCommentsShown {
		shown = shown[:maxCommentsShown]
	}

	body := lipgloss.NewStyle().Width(max(width-4, 1)).PaddingLeft(4)
	lines := make([]string, 0, len(shown)*2+1)
	for _, c := range shown {
		meta := "  " + styles.AccentText.Bold(true).Render(truncate(c.DisplayName(), 32))
		if age := ageLabel(c.ParsedTime(), now); age != "" {
			meta += styles.FaintText.Render(" · " + age)
		}
		lines = append(lines, meta, body.Render(styles.Text.Render(strings.TrimSpace(c.Body))))
	}
	if extra := len(comments) - len(shown); extra > 0 {
		lines = append(lines, styles.FaintText.Render(fmt.Sprintf("  +%d more", extra)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLogPane() string {
	styles := m.theme.Styles()
	title := styles.AccentText.Bold(true).Render("Log · " + m.pageKeyAt(m.selected))
	return styles.Card.Width(m.width - 2).Render(title + "\n" + m.logViewport.View())
}

// updateLogViewport formats the log entries of the selected page.
func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	styles := m.theme.Styles()

	var lines []string
	switch {
	case m.logErr != nil:
		lines = []string{styles.DangerText.Render(m.logErr.Error())}
	case strings.TrimSpace(m.logPath) == "":
		lines = []string{styles.FaintText.Render("Logging is disabled")}
	case len(m.logEntries) == 0:
		lines = []string{styles.FaintText.Render("No log entries for this page")}
	default:
		for _, e := range m.logEntries {
			line := truncate(firstLine(e.String()), m.paneWidth())
			switch e.Level {
			case "ERROR", "DPANIC", "PANIC", "FATAL":
				line = styles.DangerText.Render(line)
			case "WARN":
				line = styles.WarningText.Render(line)
			case "DEBUG":
				line = styles.FaintText.Render(line)
			default:
				line = styles.Text.Render(line)
			}
			lines = append(lines, line)
		}
	}
	m.logViewport.SetContent(strings.Join(lines, "\n"))
	m.logViewport.GotoBottom()
}

func (m Model) renderComposer() string {
	styles := m.theme.Styles()
	title := "Comment on " + m.pageKeyAt(m.composer.target)
	if m.composer.submitting {
		title += " · posting…"
	}
	content := strings.Join([]string{
		styles.AccentText.Bold(true).Render(title),
		m.composer.body.View(),
		m.composer.name.View(),
	}, "\n")
	return styles.CardFocus.Width(m.width - 2).Render(content)
}
