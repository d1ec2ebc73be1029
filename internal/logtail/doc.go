// Package logtail reads the tail of the likebar log file for the log pane.
//
// Read extracts the last N lines with a fixed-size ring buffer, so large
// files are never held in memory. ForPage then decodes the JSON records
// written by package logging and keeps those tagged with one page key.
package logtail
