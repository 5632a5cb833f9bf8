// Package version exposes the build version embedded at compile time.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// String returns the current webpilot version.
func String() string {
	return strings.TrimSpace(raw)
}
