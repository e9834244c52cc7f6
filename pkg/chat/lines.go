package chat

import "strings"

// SplitLines splits text into buffer lines. A single trailing newline does
// not produce a trailing empty line.
func SplitLines(text string) []string {
	text = normalize(text)
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// StreamLines splits a partial reply for rendering. Unlike SplitLines, a
// trailing newline yields a trailing empty line so the cursor can sit on
// the line being written.
func StreamLines(text string) []string {
	text = normalize(text)
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func normalize(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}
