package chat

import (
	"fmt"

	"github.com/papercomputeco/vilm/pkg/editor"
)

// Key mappings installed on the chat buffers.
const (
	leaderSend  = "<leader><CR>"
	leaderClose = "<leader>c"
)

// Open shows the chat and input windows. When rng is not (0,0), lines
// rng[0] through rng[1] (one-based, inclusive) of the buffer that was
// current before opening are copied into the input buffer.
func (c *Chat) Open(rng [2]int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isOpenLocked() {
		c.echo(msgAlreadyOpen)
		return nil
	}

	// Capture the current buffer before creating new ones.
	orig, err := c.ed.CurrentBuffer()
	if err != nil {
		return fmt.Errorf("current buffer: %w", err)
	}

	// Windows left over from a partial close (e.g. :q on one of them).
	c.closeLocked()

	if err := c.ensureChatBufLocked(); err != nil {
		return err
	}

	if !c.bufferValid(c.inputBuf) {
		buf, err := c.createBuffer()
		if err != nil {
			return err
		}
		if err := c.bindClose(buf); err != nil {
			return err
		}
		if err := c.bindSend(buf); err != nil {
			return err
		}
		c.inputBuf = buf
	}

	columns, lines, err := c.ed.Size()
	if err != nil {
		return fmt.Errorf("editor size: %w", err)
	}
	chatFloat, inputFloat := Layout(columns, lines, c.size)

	c.chatWin, err = c.ed.OpenFloat(c.chatBuf, chatFloat)
	if err != nil {
		c.chatWin = 0
		return err
	}
	c.inputWin, err = c.ed.OpenFloat(c.inputBuf, inputFloat)
	if err != nil {
		c.inputWin = 0
		c.closeLocked()
		return err
	}

	if !c.busy {
		if err := c.ed.SetBufferOption(c.chatBuf, "modifiable", false); err != nil {
			return err
		}
	}
	if err := c.ed.SetBufferOption(c.inputBuf, "modifiable", true); err != nil {
		return err
	}

	if rng == [2]int{0, 0} {
		return nil
	}

	start, end := rng[0], rng[1]
	if start > end {
		start, end = end, start
	}
	selected, err := c.ed.Lines(orig, max(start-1, 0), end)
	if err != nil {
		return fmt.Errorf("read range: %w", err)
	}
	return c.ed.SetLines(c.inputBuf, 0, -1, selected)
}

// Close closes both windows. Buffers and history survive. Errors are
// ignored: a window the user already closed is not a failure.
func (c *Chat) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// Toggle closes the chat when open, else opens it without copying a range.
func (c *Chat) Toggle() error {
	c.mu.Lock()
	open := c.isOpenLocked()
	c.mu.Unlock()

	if open {
		c.Close()
		return nil
	}
	return c.Open([2]int{0, 0})
}

// IsOpen reports whether the chat window is showing.
func (c *Chat) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isOpenLocked()
}

func (c *Chat) isOpenLocked() bool {
	if c.chatWin == 0 {
		return false
	}
	ok, err := c.ed.WindowValid(c.chatWin)
	return err == nil && ok
}

func (c *Chat) closeLocked() {
	for _, win := range []editor.Window{c.chatWin, c.inputWin} {
		if win == 0 {
			continue
		}
		if ok, err := c.ed.WindowValid(win); err != nil || !ok {
			continue
		}
		if err := c.ed.CloseWindow(win, true); err != nil {
			c.logger.Debug("close window failed", "window", win, "error", err)
		}
	}
	c.chatWin = 0
	c.inputWin = 0
}

func (c *Chat) bufferValid(buf editor.Buffer) bool {
	if buf == 0 {
		return false
	}
	ok, err := c.ed.BufferValid(buf)
	return err == nil && ok
}

// ensureChatBufLocked creates the chat buffer if it does not exist yet.
func (c *Chat) ensureChatBufLocked() error {
	if c.bufferValid(c.chatBuf) {
		return nil
	}
	buf, err := c.createBuffer()
	if err != nil {
		return err
	}
	if err := c.bindClose(buf); err != nil {
		return err
	}
	c.chatBuf = buf
	return nil
}

// createBuffer makes an unlisted scratch markdown buffer.
func (c *Chat) createBuffer() (editor.Buffer, error) {
	buf, err := c.ed.CreateBuffer(false, true)
	if err != nil {
		return 0, fmt.Errorf("create buffer: %w", err)
	}
	for name, value := range map[string]any{"buftype": "nofile", "filetype": "markdown"} {
		if err := c.ed.SetBufferOption(buf, name, value); err != nil {
			return 0, fmt.Errorf("set %s: %w", name, err)
		}
	}
	return buf, nil
}

func (c *Chat) bindSend(buf editor.Buffer) error {
	if err := c.ed.SetKeyMap(buf, "n", leaderSend, ":VILMSend<CR>"); err != nil {
		return err
	}
	return c.ed.SetKeyMap(buf, "i", leaderSend, "<Esc>:VILMSend<CR>")
}

func (c *Chat) bindClose(buf editor.Buffer) error {
	if err := c.ed.SetKeyMap(buf, "n", leaderClose, ":VILMCloseChat<CR>"); err != nil {
		return err
	}
	return c.ed.SetKeyMap(buf, "i", leaderClose, "<Esc>:VILMCloseChat<CR>")
}
