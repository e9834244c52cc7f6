package chat

import (
	"fmt"

	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/merkle"
)

// ShortHash abbreviates a node hash for display.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}

// Transcript renders an ancestry (node first, root last) the way Send
// writes a conversation into the chat buffer.
func Transcript(ancestry []*merkle.Node) []string {
	var lines []string
	for i := len(ancestry) - 1; i >= 0; i-- {
		n := ancestry[i]

		switch n.Bucket.Role {
		case llm.RoleUser:
			header := "@me:"
			if !n.CreatedAt.IsZero() {
				header = fmt.Sprintf("@me (%s):", n.CreatedAt.Local().Format("15:04:05"))
			}
			lines = append(lines, header)
		default:
			lines = append(lines, fmt.Sprintf("@%s:", n.Bucket.Model))
		}

		lines = append(lines, SplitLines(n.Bucket.Content)...)
		lines = append(lines, "")
	}
	return lines
}
