// Package terminal is the interactive text front-end. It renders an app.View
// as numbered menus and reads one command per line.
package terminal
