// Package editor is the narrow slice of the Neovim API the chat commands use.
package editor

// Buffer is an editor buffer handle. The zero value is never a valid buffer.
type Buffer int

// Window is an editor window handle. The zero value is never a valid window.
type Window int

// Float positions a floating window relative to the whole editor.
type Float struct {
	Row    int
	Col    int
	Width  int
	Height int
}

// QuickfixItem is one entry of the quickfix list.
type QuickfixItem struct {
	Filename string `msgpack:"filename"`
	Lnum     int    `msgpack:"lnum"`
	Col      int    `msgpack:"col"`
	Text     string `msgpack:"text"`
}

// Editor is implemented by Nvim and by test fakes. Line indexes are
// zero-based and end-exclusive; -1 means "past the last line".
// Cursor rows are one-based as in Neovim.
type Editor interface {
	CreateBuffer(listed, scratch bool) (Buffer, error)
	SetBufferOption(buf Buffer, name string, value any) error
	BufferValid(buf Buffer) (bool, error)
	Lines(buf Buffer, start, end int) ([]string, error)
	SetLines(buf Buffer, start, end int, lines []string) error
	LineCount(buf Buffer) (int, error)
	SetKeyMap(buf Buffer, mode, lhs, rhs string) error

	OpenFloat(buf Buffer, f Float) (Window, error)
	WindowValid(win Window) (bool, error)
	CloseWindow(win Window, force bool) error
	Cursor(win Window) (row, col int, err error)
	SetCursor(win Window, row, col int) error
	WindowBuffer(win Window) (Buffer, error)
	CurrentWindow() (Window, error)
	CurrentBuffer() (Buffer, error)

	// Size returns the editor's columns and lines.
	Size() (columns, lines int, err error)

	// GlobalVar returns g:<name> as a string, reporting whether it is set.
	GlobalVar(name string) (string, bool, error)

	// Echo writes msg to the message area.
	Echo(msg string) error

	// SetQuickfix replaces the quickfix list and opens its window.
	SetQuickfix(items []QuickfixItem) error
}

var _ Editor = (*Nvim)(nil)
