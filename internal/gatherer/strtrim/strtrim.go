// Package strtrim shortens text previews carried in run messages.
package strtrim

import (
	"strings"
)

const cut = "[...]"

// ToRect keeps at most maxHeight lines of at most maxWidth bytes each.
func ToRect(s string, maxHeight int, maxWidth int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
		lines = append(lines, cut)
	}
	var res strings.Builder
	for i, line := range lines {
		if i > 0 {
			res.WriteByte('\n')
		}
		if len(line) > maxWidth {
			res.WriteString(line[:maxWidth])
			res.WriteString(cut)
		} else {
			res.WriteString(line)
		}
	}
	return res.String()
}

// Preview trims input to the message preview size. Empty input has no preview.
func Preview(input []byte, maxHeight int, maxWidth int) *string {
	p := ToRect(string(input), maxHeight, maxWidth)
	if p == "" {
		return nil
	}
	return &p
}
