package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	composerBody = iota
	composerName
)

// composer holds the comment form for one widget.
type composer struct {
	open       bool
	submitting bool
	target     int
	focus      int
	name       textinput.Model
	body       textinput.Model
}

func newComposer() composer {
	name := textinput.New()
	name.Placeholder = "Name (optional)"
	name.Prompt = "name › "
	name.CharLimit = 60

	body := textinput.New()
	body.Placeholder = "Write a comment"
	body.Prompt = "comment › "
	body.CharLimit = 1000

	return composer{target: -1, name: name, body: body}
}

// openFor shows the form for the widget at idx with the comment field focused.
// The typed name is kept between comments.
func (c *composer) openFor(idx int) tea.Cmd {
	if c.target != idx {
		c.body.SetValue("")
	}
	c.open = true
	c.submitting = false
	c.target = idx
	c.focus = composerBody
	c.name.Blur()
	return c.body.Focus()
}

func (c *composer) cancel() {
	c.open = false
	c.submitting = false
	c.body.SetValue("")
	c.name.Blur()
	c.body.Blur()
}

// done closes the form after a successful post.
func (c *composer) done() {
	c.cancel()
}

func (c *composer) switchField() tea.Cmd {
	if c.focus == composerBody {
		c.focus = composerName
		c.body.Blur()
		return c.name.Focus()
	}
	c.focus = composerBody
	c.name.Blur()
	return c.body.Focus()
}

func (c composer) values() (name, body string) {
	return strings.TrimSpace(c.name.Value()), c.body.Value()
}

func (c *composer) setWidth(width int) {
	c.name.Width = max(width-lipgloss.Width(c.name.Prompt)-1, 1)
	c.body.Width = max(width-lipgloss.Width(c.body.Prompt)-1, 1)
}

func (c composer) update(msg tea.Msg) (composer, tea.Cmd) {
	var cmd tea.Cmd
	if c.focus == composerName {
		c.name, cmd = c.name.Update(msg)
	} else {
		c.body, cmd = c.body.Update(msg)
	}
	return c, cmd
}
