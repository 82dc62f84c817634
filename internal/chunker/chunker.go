// Package chunker splits extracted text into bounded-size pieces that end
// on sentence boundaries where possible.
package chunker

import "strings"

// Split cuts text into chunks of at most maxSize characters. A window that
// does not reach the end of the text is truncated at the last period found
// past the window's midpoint, so chunks tend to end on sentence boundaries.
// The next chunk starts immediately after the emitted one, so concatenating
// the chunks (modulo trimmed whitespace) reconstructs the input.
func Split(text string, maxSize int) []string {
	runes := []rune(text)
	if maxSize <= 0 || len(runes) <= maxSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Snap to the last sentence end inside the window, keeping
			// the period, but only when it sits past the midpoint.
			window := runes[start:end]
			if idx := lastPeriod(window); idx > maxSize/2 {
				end = start + idx + 1
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}
	return chunks
}

func lastPeriod(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' {
			return i
		}
	}
	return -1
}
