// Package config loads the likebar configuration file.
//
// The file is TOML and optional; a missing file yields defaults and no
// widgets. Values the file leaves empty are filled from the environment
// (LIKEBAR_API, LIKEBAR_TENANT_ID, LIKEBAR_PAGE_KEYS), which cmd/likebar
// seeds from a .env file when one is present.
//
//	api = "https://likes.example.com"
//	tenant_id = "acme"
//	poll_seconds = 5
//	init_pages = true
//	monotonic_likes = false
//	log_file = "~/.local/state/likebar/likebar.log"
//	liked_file = "~/.local/share/likebar/liked.toml"
//
//	[[widget]]
//	page_key = "demo-page"
//	api = "https://other.example.com"
//
// Widgets are validated one by one. WidgetConfigs returns the valid ones
// together with a WidgetError for each widget that has to be skipped.
package config
