// internal/util/util.go

// Package util holds small text and file helpers shared by the report and tui packages.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// WriteFile writes data to path with 0o644 permissions, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// TruncateRunes truncates a string to a maximum number of runes,
// appending an ellipsis if truncated.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}

// Preview flattens text onto one line and truncates it to maxRunes.
func Preview(text string, maxRunes int) string {
	return TruncateRunes(strings.Join(strings.Fields(text), " "), maxRunes)
}

// WrapToWidth wraps each line of text at word boundaries so no line exceeds
// width runes. Words longer than width are split. Blank lines are preserved.
func WrapToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		current := []rune{}
		flush := func() {
			if len(current) > 0 {
				out = append(out, string(current))
				current = current[:0]
			}
		}
		for _, word := range words {
			w := []rune(word)
			switch {
			case len(current) == 0 && len(w) <= width:
				current = append(current, w...)
			case len(current) > 0 && len(current)+1+len(w) <= width:
				current = append(append(current, ' '), w...)
			default:
				flush()
				for len(w) > width {
					out = append(out, string(w[:width]))
					w = w[width:]
				}
				current = append(current, w...)
			}
		}
		flush()
	}
	return strings.Join(out, "\n")
}
