package evolver

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/codevolver/api/schemas"
)

// History is the conversation of the current pass. It is append-only apart
// from Truncate, which discards a failed attempt's turns.
type History struct {
	turns []schemas.Content
}

func (h *History) Append(c schemas.Content) { h.turns = append(h.turns, c) }

func (h *History) Len() int { return len(h.turns) }

// Truncate drops every turn from index n onward.
func (h *History) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(h.turns) {
		h.turns = h.turns[:n]
	}
}

func (h *History) Reset() { h.turns = nil }

// Contents returns a copy suitable for a request.
func (h *History) Contents() []schemas.Content {
	out := make([]schemas.Content, len(h.turns))
	copy(out, h.turns)
	return out
}

// Transcript renders the conversation for debug display.
func (h *History) Transcript() string {
	var sb strings.Builder
	for i, turn := range h.turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s]\n", turn.Role)
		for _, p := range turn.Parts {
			switch {
			case p.Text != "":
				sb.WriteString(strings.TrimRight(p.Text, "\n"))
				sb.WriteString("\n")
			case p.InlineData != nil:
				fmt.Fprintf(&sb, "<%s, %d bytes>\n", p.InlineData.MIMEType, len(p.InlineData.Data))
			}
		}
	}
	return sb.String()
}
