// Package ui renders likebar widgets in the terminal with Bubble Tea.
//
// # Layout
//
// One card per configured page, stacked vertically:
//
//	╭──────────────────────────────────────────────╮
//	│ demo-page                        synced 2s ago│
//	│ ❤ 4 liked   💬 2 ▾                            │
//	│   Anon · 1m ago                               │
//	│     hello                                     │
//	╰──────────────────────────────────────────────╯
//
// The like control is derived from widget state only: a highlighted heart
// while a like is in flight, a filled heart once liked, and a muted heart
// with the server's message when the like quota is exhausted.
//
// # Event flow
//
// Key presses turn into widget intents. Likes and comments run inside
// tea.Cmds so the event loop never waits on the network; their results come
// back as messages that update the status line. Toggling is local and
// applied at once.
//
// Cards re-render from widget snapshots on a short tick, so changes made by
// the background poll loops show up without any coupling between the
// widgets and the UI.
//
// # Files
//
//   - app.go: Model, Update loop, messages and commands
//   - view.go: header, cards, log pane, composer and footer rendering
//   - composer.go: the two-field comment form
//   - keys.go: key bindings
//   - theme.go: palettes, cycled with T and saved to prefs
//   - help.go: help overlay
package ui
