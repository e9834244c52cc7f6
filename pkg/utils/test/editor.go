package testutils

import (
	"errors"
	"fmt"
	"sync"

	"github.com/papercomputeco/vilm/pkg/editor"
)

// ErrNotModifiable mirrors Neovim refusing to edit a non-modifiable buffer.
var ErrNotModifiable = errors.New("buffer is not 'modifiable'")

// KeyMap is a recorded buffer-local mapping.
type KeyMap struct {
	Mode string
	LHS  string
	RHS  string
}

type fakeBuffer struct {
	lines   []string
	options map[string]any
	keymaps []KeyMap
	valid   bool
}

type fakeWindow struct {
	buf   editor.Buffer
	float editor.Float
	row   int
	col   int
	valid bool
}

// FakeEditor is an in-memory editor.Editor. New buffers hold a single
// empty line, and writes to non-modifiable buffers fail, as in Neovim.
type FakeEditor struct {
	mu sync.Mutex

	Columns int
	Rows    int
	Vars    map[string]string

	// Fail maps a method name to the error it should return.
	Fail map[string]error

	buffers  map[editor.Buffer]*fakeBuffer
	windows  map[editor.Window]*fakeWindow
	nextBuf  editor.Buffer
	nextWin  editor.Window
	curWin   editor.Window
	messages []string
	qf       []editor.QuickfixItem
}

// NewFakeEditor creates an editor with one window showing one buffer.
func NewFakeEditor(columns, rows int) *FakeEditor {
	f := &FakeEditor{
		Columns: columns,
		Rows:    rows,
		Vars:    map[string]string{},
		Fail:    map[string]error{},
		buffers: map[editor.Buffer]*fakeBuffer{},
		windows: map[editor.Window]*fakeWindow{},
		nextBuf: 1,
		nextWin: 1000,
	}

	buf := f.newBuffer()
	f.curWin = f.newWindow(buf, editor.Float{})
	return f
}

func (f *FakeEditor) newBuffer() editor.Buffer {
	b := f.nextBuf
	f.nextBuf++
	f.buffers[b] = &fakeBuffer{
		lines:   []string{""},
		options: map[string]any{"modifiable": true},
		valid:   true,
	}
	return b
}

func (f *FakeEditor) newWindow(buf editor.Buffer, fl editor.Float) editor.Window {
	w := f.nextWin
	f.nextWin++
	f.windows[w] = &fakeWindow{buf: buf, float: fl, row: 1, valid: true}
	return w
}

func (f *FakeEditor) fail(method string) error {
	return f.Fail[method]
}

func (f *FakeEditor) buffer(buf editor.Buffer) (*fakeBuffer, error) {
	b, ok := f.buffers[buf]
	if !ok || !b.valid {
		return nil, fmt.Errorf("invalid buffer id: %d", buf)
	}
	return b, nil
}

func (f *FakeEditor) window(win editor.Window) (*fakeWindow, error) {
	w, ok := f.windows[win]
	if !ok || !w.valid {
		return nil, fmt.Errorf("invalid window id: %d", win)
	}
	return w, nil
}

func clamp(idx, n int) int {
	if idx < 0 {
		idx = n + 1 + idx
	}
	return max(0, min(idx, n))
}

func (f *FakeEditor) CreateBuffer(_, _ bool) (editor.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateBuffer"); err != nil {
		return 0, err
	}
	return f.newBuffer(), nil
}

func (f *FakeEditor) SetBufferOption(buf editor.Buffer, name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.buffer(buf)
	if err != nil {
		return err
	}
	b.options[name] = value
	return nil
}

func (f *FakeEditor) BufferValid(buf editor.Buffer) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buffers[buf]
	return ok && b.valid, nil
}

func (f *FakeEditor) Lines(buf editor.Buffer, start, end int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.buffer(buf)
	if err != nil {
		return nil, err
	}
	s, e := clamp(start, len(b.lines)), clamp(end, len(b.lines))
	if s > e {
		return nil, nil
	}
	return append([]string(nil), b.lines[s:e]...), nil
}

func (f *FakeEditor) SetLines(buf editor.Buffer, start, end int, lines []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SetLines"); err != nil {
		return err
	}
	b, err := f.buffer(buf)
	if err != nil {
		return err
	}
	if m, _ := b.options["modifiable"].(bool); !m {
		return ErrNotModifiable
	}

	s, e := clamp(start, len(b.lines)), clamp(end, len(b.lines))
	if e < s {
		e = s
	}

	out := append([]string(nil), b.lines[:s]...)
	out = append(out, lines...)
	out = append(out, b.lines[e:]...)
	if len(out) == 0 {
		out = []string{""}
	}
	b.lines = out
	return nil
}

func (f *FakeEditor) LineCount(buf editor.Buffer) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.buffer(buf)
	if err != nil {
		return 0, err
	}
	return len(b.lines), nil
}

func (f *FakeEditor) SetKeyMap(buf editor.Buffer, mode, lhs, rhs string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.buffer(buf)
	if err != nil {
		return err
	}
	b.keymaps = append(b.keymaps, KeyMap{Mode: mode, LHS: lhs, RHS: rhs})
	return nil
}

func (f *FakeEditor) OpenFloat(buf editor.Buffer, fl editor.Float) (editor.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("OpenFloat"); err != nil {
		return 0, err
	}
	if _, err := f.buffer(buf); err != nil {
		return 0, err
	}
	w := f.newWindow(buf, fl)
	f.curWin = w
	return w, nil
}

func (f *FakeEditor) WindowValid(win editor.Window) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[win]
	return ok && w.valid, nil
}

func (f *FakeEditor) CloseWindow(win editor.Window, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CloseWindow"); err != nil {
		return err
	}
	w, err := f.window(win)
	if err != nil {
		return err
	}
	w.valid = false
	return nil
}

func (f *FakeEditor) Cursor(win editor.Window) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.window(win)
	if err != nil {
		return 0, 0, err
	}
	return w.row, w.col, nil
}

func (f *FakeEditor) SetCursor(win editor.Window, row, col int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.window(win)
	if err != nil {
		return err
	}
	b, err := f.buffer(w.buf)
	if err != nil {
		return err
	}
	if row < 1 || row > len(b.lines) {
		return fmt.Errorf("cursor position outside buffer: %d", row)
	}
	w.row, w.col = row, col
	return nil
}

func (f *FakeEditor) WindowBuffer(win editor.Window) (editor.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.window(win)
	if err != nil {
		return 0, err
	}
	return w.buf, nil
}

func (f *FakeEditor) CurrentWindow() (editor.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.curWin, nil
}

func (f *FakeEditor) CurrentBuffer() (editor.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.window(f.curWin)
	if err != nil {
		return 0, err
	}
	return w.buf, nil
}

func (f *FakeEditor) Size() (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Columns, f.Rows, nil
}

func (f *FakeEditor) GlobalVar(name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Vars[name]
	return v, ok, nil
}

func (f *FakeEditor) Echo(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *FakeEditor) SetQuickfix(items []editor.QuickfixItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SetQuickfix"); err != nil {
		return err
	}
	f.qf = append([]editor.QuickfixItem(nil), items...)
	return nil
}

// Messages returns everything echoed so far.
func (f *FakeEditor) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

// LastMessage returns the most recent echo, or "".
func (f *FakeEditor) LastMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

// Quickfix returns the current quickfix list.
func (f *FakeEditor) Quickfix() []editor.QuickfixItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]editor.QuickfixItem(nil), f.qf...)
}

// BufferLines returns a buffer's content regardless of validity.
func (f *FakeEditor) BufferLines(buf editor.Buffer) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buffers[buf]; ok {
		return append([]string(nil), b.lines...)
	}
	return nil
}

// SetBufferLines overwrites a buffer without the modifiable check.
func (f *FakeEditor) SetBufferLines(buf editor.Buffer, lines []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buffers[buf]; ok {
		b.lines = append([]string(nil), lines...)
	}
}

// Option returns a buffer option as set by SetBufferOption.
func (f *FakeEditor) Option(buf editor.Buffer, name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buffers[buf]; ok {
		return b.options[name]
	}
	return nil
}

// KeyMaps returns the mappings set on a buffer.
func (f *FakeEditor) KeyMaps(buf editor.Buffer) []KeyMap {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buffers[buf]; ok {
		return append([]KeyMap(nil), b.keymaps...)
	}
	return nil
}

// Float returns the placement a window was opened with.
func (f *FakeEditor) Float(win editor.Window) editor.Float {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[win]; ok {
		return w.float
	}
	return editor.Float{}
}

// WipeBuffer invalidates a buffer, as :bwipeout would.
func (f *FakeEditor) WipeBuffer(buf editor.Buffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buffers[buf]; ok {
		b.valid = false
	}
}

// Focus makes win the current window.
func (f *FakeEditor) Focus(win editor.Window) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.curWin = win
}

var _ editor.Editor = (*FakeEditor)(nil)
