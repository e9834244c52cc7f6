package editor

import (
	"fmt"

	"github.com/neovim/go-client/nvim"
)

// keymapOpts are applied to every buffer-local mapping.
var keymapOpts = map[string]bool{
	"nowait":  true,
	"noremap": true,
	"silent":  true,
}

// Nvim implements Editor over a msgpack-RPC connection to Neovim.
type Nvim struct {
	v *nvim.Nvim
}

// NewNvim wraps an established Neovim connection.
func NewNvim(v *nvim.Nvim) *Nvim {
	return &Nvim{v: v}
}

func (n *Nvim) CreateBuffer(listed, scratch bool) (Buffer, error) {
	b, err := n.v.CreateBuffer(listed, scratch)
	return Buffer(b), err
}

func (n *Nvim) SetBufferOption(buf Buffer, name string, value any) error {
	return n.v.SetBufferOption(nvim.Buffer(buf), name, value)
}

func (n *Nvim) BufferValid(buf Buffer) (bool, error) {
	return n.v.IsBufferValid(nvim.Buffer(buf))
}

func (n *Nvim) Lines(buf Buffer, start, end int) ([]string, error) {
	raw, err := n.v.BufferLines(nvim.Buffer(buf), start, end, false)
	if err != nil {
		return nil, err
	}

	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}
	return lines, nil
}

func (n *Nvim) SetLines(buf Buffer, start, end int, lines []string) error {
	raw := make([][]byte, len(lines))
	for i, l := range lines {
		raw[i] = []byte(l)
	}
	return n.v.SetBufferLines(nvim.Buffer(buf), start, end, false, raw)
}

func (n *Nvim) LineCount(buf Buffer) (int, error) {
	return n.v.BufferLineCount(nvim.Buffer(buf))
}

func (n *Nvim) SetKeyMap(buf Buffer, mode, lhs, rhs string) error {
	return n.v.SetBufferKeyMap(nvim.Buffer(buf), mode, lhs, rhs, keymapOpts)
}

// OpenFloat opens an entered, minimal, single-bordered floating window.
func (n *Nvim) OpenFloat(buf Buffer, f Float) (Window, error) {
	var win nvim.Window
	err := n.v.Request("nvim_open_win", &win, nvim.Buffer(buf), true, map[string]any{
		"relative": "editor",
		"row":      f.Row,
		"col":      f.Col,
		"width":    f.Width,
		"height":   f.Height,
		"style":    "minimal",
		"border":   "single",
	})
	if err != nil {
		return 0, fmt.Errorf("open floating window: %w", err)
	}
	return Window(win), nil
}

func (n *Nvim) WindowValid(win Window) (bool, error) {
	return n.v.IsWindowValid(nvim.Window(win))
}

func (n *Nvim) CloseWindow(win Window, force bool) error {
	return n.v.CloseWindow(nvim.Window(win), force)
}

func (n *Nvim) Cursor(win Window) (int, int, error) {
	pos, err := n.v.WindowCursor(nvim.Window(win))
	if err != nil {
		return 0, 0, err
	}
	return pos[0], pos[1], nil
}

func (n *Nvim) SetCursor(win Window, row, col int) error {
	return n.v.SetWindowCursor(nvim.Window(win), [2]int{row, col})
}

func (n *Nvim) WindowBuffer(win Window) (Buffer, error) {
	b, err := n.v.WindowBuffer(nvim.Window(win))
	return Buffer(b), err
}

func (n *Nvim) CurrentWindow() (Window, error) {
	w, err := n.v.CurrentWindow()
	return Window(w), err
}

func (n *Nvim) CurrentBuffer() (Buffer, error) {
	b, err := n.v.CurrentBuffer()
	return Buffer(b), err
}

func (n *Nvim) Size() (int, int, error) {
	var columns, lines int
	if err := n.v.Option("columns", &columns); err != nil {
		return 0, 0, err
	}
	if err := n.v.Option("lines", &lines); err != nil {
		return 0, 0, err
	}
	return columns, lines, nil
}

// GlobalVar treats any lookup failure as "unset": Neovim reports a missing
// variable as an error.
func (n *Nvim) GlobalVar(name string) (string, bool, error) {
	var value any
	if err := n.v.Var(name, &value); err != nil {
		return "", false, nil
	}

	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case []byte:
		return string(v), true, nil
	default:
		return fmt.Sprint(v), true, nil
	}
}

func (n *Nvim) Echo(msg string) error {
	return n.v.WriteOut(msg + "\n")
}

func (n *Nvim) SetQuickfix(items []QuickfixItem) error {
	var result int
	if err := n.v.Call("setqflist", &result, items, "r"); err != nil {
		return fmt.Errorf("setqflist: %w", err)
	}
	return n.v.Command("copen")
}
