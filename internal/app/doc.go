// Package app is the composition root of likebar.
//
// Run wires the pieces together in this order:
//
//	config.Load()          read ~/.config/likebar/config.toml (+ environment)
//	logging.OpenOrNop()    JSON log file, or a no-op logger if it cannot open
//	openLikeStore()        liked flags on disk, in memory with --ephemeral
//	BuildWidgets()         one likeapi.Client per api base, one widget per page
//	StartPollers()         every widget's poll loop
//	ui.Run()               the TUI, blocks until quit or ctx is cancelled
//
// A widget entry that fails validation, or whose api base cannot be parsed,
// is logged and skipped. Only an empty result is fatal (ErrNoWidgets).
// Poll, like and comment failures are never fatal; they surface in the
// widget's SyncStatus, the status line and the log file.
package app
