package chat

import (
	"context"
	"fmt"

	"github.com/papercomputeco/vilm/pkg/editor"
	"github.com/papercomputeco/vilm/pkg/merkle"
	"github.com/papercomputeco/vilm/pkg/storage"
)

// PasteLast inserts the last history entry below the cursor of the current
// window and leaves the cursor at the end of the inserted text.
func (c *Chat) PasteLast() error {
	c.mu.Lock()
	var last string
	if n := len(c.history); n > 0 {
		last = c.history[n-1].Content
	}
	c.mu.Unlock()

	if last == "" {
		c.echo(msgNothingToPaste)
		return nil
	}

	win, err := c.ed.CurrentWindow()
	if err != nil {
		return fmt.Errorf("current window: %w", err)
	}
	buf, err := c.ed.WindowBuffer(win)
	if err != nil {
		return fmt.Errorf("window buffer: %w", err)
	}
	row, _, err := c.ed.Cursor(win)
	if err != nil {
		return fmt.Errorf("cursor: %w", err)
	}

	lines := SplitLines(last)
	if err := c.ed.SetLines(buf, row, row, lines); err != nil {
		return fmt.Errorf("paste reply: %w", err)
	}

	return c.ed.SetCursor(win, row+len(lines), len(lines[len(lines)-1]))
}

// SetModel handles :VILMModel. With no argument it reports the current
// model, otherwise it switches to args[0].
func (c *Chat) SetModel(args []string) {
	c.mu.Lock()
	if len(args) == 0 || args[0] == "" {
		model := c.modelLocked()
		c.mu.Unlock()
		c.echo("Current model: " + model)
		return
	}
	c.model = args[0]
	c.modelSet = true
	c.mu.Unlock()

	c.logger.Info("model changed", "model", args[0])
	c.echo("Model set to: " + args[0])
}

// ListModels fills the quickfix list with the available models.
func (c *Chat) ListModels(ctx context.Context) {
	client, err := c.currentClient()
	if err != nil {
		c.echo("ERROR: failed to list models: " + err.Error())
		return
	}

	models, err := client.ListModels(ctx)
	if err != nil {
		c.logger.Error("list models failed", "error", err)
		c.echo("ERROR: failed to list models: " + err.Error())
		return
	}

	if len(models) == 0 {
		c.echo(msgNoModels)
		return
	}

	items := make([]editor.QuickfixItem, len(models))
	for i, name := range models {
		items[i] = editor.QuickfixItem{Filename: "", Lnum: 1, Col: 1, Text: name}
	}

	if err := c.ed.SetQuickfix(items); err != nil {
		c.logger.Error("set quickfix failed", "error", err)
		c.echo("ERROR: failed to list models: " + err.Error())
	}
}

// CompleteModels backs the :VILMModel completion. Failures are reported
// but completion is best effort, so it always returns a list.
func (c *Chat) CompleteModels(ctx context.Context) []string {
	client, err := c.currentClient()
	if err == nil {
		var models []string
		models, err = client.ListModels(ctx)
		if err == nil {
			if models == nil {
				models = []string{}
			}
			return models
		}
	}

	c.logger.Warn("model completion failed", "error", err)
	c.echo("ERROR: failed to fetch models: " + err.Error())
	return []string{}
}

// Clear empties the history, starts a new transcript chain and blanks the
// chat buffer.
func (c *Chat) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		c.echo(msgBusy)
		return nil
	}

	c.history = nil
	c.head = nil

	if !c.bufferValid(c.chatBuf) {
		return nil
	}
	return c.rewriteChatLocked(nil)
}

// Status reports the model and history length.
func (c *Chat) Status() {
	c.mu.Lock()
	msg := fmt.Sprintf("model: %s; history_length: %d", c.modelLocked(), len(c.history))
	c.mu.Unlock()
	c.echo(msg)
}

// Statusline returns the current model for use in 'statusline'.
func (c *Chat) Statusline() string {
	return "(" + c.Model() + ")"
}

// Resume replaces the history with the persisted conversation ending at
// ref (a node hash or unique prefix) and renders it into the chat buffer.
func (c *Chat) Resume(ctx context.Context, ref string) error {
	if c.store == nil {
		c.echo(msgNoStore)
		return nil
	}

	node, err := storage.Resolve(ctx, c.store, ref)
	if err != nil {
		c.echo("ERROR: failed to resume: " + err.Error())
		return nil
	}

	ancestry, err := c.store.Ancestry(ctx, node.Hash)
	if err != nil {
		c.echo("ERROR: failed to resume: " + err.Error())
		return nil
	}
	messages := merkle.Messages(ancestry)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		c.echo(msgBusy)
		return nil
	}

	c.history = messages
	c.head = node

	// Resuming before the first :VILMChat still has to show up once the
	// chat opens.
	if err := c.ensureChatBufLocked(); err != nil {
		return err
	}
	if err := c.rewriteChatLocked(Transcript(ancestry)); err != nil {
		return err
	}

	c.logger.Info("conversation resumed", "head", node.Hash, "messages", len(messages))
	c.echo(fmt.Sprintf("Resumed %s (%d messages).", ShortHash(node.Hash), len(messages)))
	return nil
}

// rewriteChatLocked replaces the chat buffer's content, keeping it
// non-modifiable afterwards.
func (c *Chat) rewriteChatLocked(lines []string) error {
	if err := c.ed.SetBufferOption(c.chatBuf, "modifiable", true); err != nil {
		return err
	}
	defer func() {
		if err := c.ed.SetBufferOption(c.chatBuf, "modifiable", false); err != nil {
			c.logger.Warn("failed to lock chat buffer", "error", err)
		}
	}()
	return c.ed.SetLines(c.chatBuf, 0, -1, lines)
}
