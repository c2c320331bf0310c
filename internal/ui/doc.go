// Package ui renders wifiprov's terminal output.
//
// Most commands are "run once and exit": they print a Header, do their
// work, then print a Result box through a Printer. `wifiprov watch` is the
// exception. It runs WatchModel, a Bubble Tea program that follows a
// device's status stream and redraws on every state change.
//
// Logging is controlled by WIFIPROV_LOG_LEVEL. When unset, zap is silent
// so the styled output is not interleaved with log lines.
package ui
