// Package cli provides colored status output for the command-line entry
// point, the same role github.com/fatih/color plays in the teacher's
// go.mod (listed as a dependency, reached for here since the copied
// server/*.go files only ever used plain fmt.Printf for CLI status).
package cli

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
)

// Success prints a green, checkmark-prefixed status line.
func Success(format string, args ...any) {
	successColor.Print("✓ ")
	fmt.Printf(format+"\n", args...)
}

// Error prints a red, cross-prefixed status line to stdout (the teacher's
// CLI handlers print errors with fmt.Printf rather than to stderr, and
// still exit zero on a per-item failure within a batch).
func Error(format string, args ...any) {
	errorColor.Print("✗ ")
	fmt.Printf(format+"\n", args...)
}

// Info prints a cyan, unprefixed status line.
func Info(format string, args ...any) {
	infoColor.Printf(format+"\n", args...)
}

// Warn prints a yellow, bang-prefixed status line. (The zero-fingerprint
// ingest warning goes through the engine's slog logger, not through Warn.)
func Warn(format string, args ...any) {
	warnColor.Print("! ")
	fmt.Printf(format+"\n", args...)
}
