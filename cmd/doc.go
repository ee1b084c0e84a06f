// Package cmd implements the command-line interface for meetscribe.
//
// This package provides the following commands:
//   - browse: Interactive terminal browser (default)
//   - serve: Web UI with health and metrics endpoints
//   - auth status, auth login: Backend sign-in
//   - meetings list: List calendar meetings
//   - transcripts list, show, download: Work with the transcripts of a meeting
//   - config show, config init: Inspect or persist the configuration
//   - doctor: Check backend reachability and sign-in
//   - version: Display version information
//
// The browse command is the default command when no subcommand is specified.
package cmd
