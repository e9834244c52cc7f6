package chat

import "github.com/papercomputeco/vilm/pkg/editor"

// DefaultModel is used when neither Neovim nor the config names one.
const DefaultModel = "llama3.2:3b"

// Size is the chat window pair's dimensions.
type Size struct {
	Width       int
	Height      int
	InputHeight int
}

// DefaultSize is 80 columns, a 20 line transcript and a 5 line input.
var DefaultSize = Size{Width: 80, Height: 20, InputHeight: 5}

// Layout centers the chat window above the input window. Both share a
// column; the input sits one line (the border) below the chat.
func Layout(columns, lines int, s Size) (chat, input editor.Float) {
	col := max((columns-s.Width)/2, 0)
	chatRow := max((lines-(s.Height+s.InputHeight+1))/2, 0)

	chat = editor.Float{Row: chatRow, Col: col, Width: s.Width, Height: s.Height}
	input = editor.Float{Row: chatRow + s.Height + 1, Col: col, Width: s.Width, Height: s.InputHeight}
	return chat, input
}
