package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/vilm/pkg/editor"
	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/transcript"
)

// Send relays the input buffer to the model and streams the reply into the
// chat buffer. It blocks until the reply finishes, fails or is stopped.
func (c *Chat) Send(ctx context.Context) error {
	c.mu.Lock()
	if c.chatBuf == 0 || c.inputBuf == 0 {
		c.mu.Unlock()
		c.echo(msgNotOpen)
		return nil
	}
	if c.busy {
		c.mu.Unlock()
		c.echo(msgBusy)
		return nil
	}

	client := c.client
	if client == nil {
		c.mu.Unlock()
		return errors.New("no inference client configured")
	}

	chatBuf, inputBuf := c.chatBuf, c.inputBuf
	lines, err := c.ed.Lines(inputBuf, 0, -1)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("read input: %w", err)
	}

	message := strings.TrimSpace(strings.Join(lines, "\n"))
	if message == "" {
		c.mu.Unlock()
		return nil
	}

	user := llm.NewUserMessage(message)
	c.history = append(c.history, user)
	req := &llm.ChatRequest{
		Model:    c.modelLocked(),
		Messages: append([]llm.Message(nil), c.history...),
	}
	parent := c.head

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.busy, c.cancel, c.done = true, cancel, done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy, c.cancel, c.done = false, nil, nil
		c.mu.Unlock()
		cancel()
		close(done)
	}()

	sentAt := c.now()

	if err := c.ed.SetBufferOption(chatBuf, "modifiable", true); err != nil {
		return fmt.Errorf("unlock chat buffer: %w", err)
	}
	defer func() {
		if err := c.ed.SetBufferOption(chatBuf, "modifiable", false); err != nil {
			c.logger.Warn("failed to lock chat buffer", "error", err)
		}
	}()

	header := append([]string{fmt.Sprintf("@me (%s):", sentAt.Local().Format("15:04:05"))}, SplitLines(message)...)
	header = append(header, "", fmt.Sprintf("@%s:", req.Model))
	if err := c.ed.SetLines(chatBuf, -1, -1, header); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	if err := c.ed.SetLines(inputBuf, 0, -1, nil); err != nil {
		return fmt.Errorf("clear input: %w", err)
	}

	c.logger.Debug("sending message",
		"model", req.Model,
		"history_length", len(req.Messages),
	)

	resp := c.stream(ctx, client, chatBuf, req)

	c.mu.Lock()
	if strings.TrimSpace(resp.Message.Content) != "" {
		c.history = append(c.history, llm.NewAssistantMessage(resp.Message.Content))
	}
	nodes := transcript.Turn(parent, c.session, req.Model, user, resp, sentAt)
	c.head = nodes[len(nodes)-1]
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.Enqueue(transcript.Job{Session: c.session, Nodes: nodes})
	}

	return c.ed.SetLines(chatBuf, -1, -1, []string{""})
}

// stream renders the reply as it arrives. The reply occupies the lines
// from the buffer's end at the time streaming starts; each delta rewrites
// that region with the whole accumulated text. Failures are rendered into
// the buffer and the partial reply is returned.
func (c *Chat) stream(ctx context.Context, client llm.Client, buf editor.Buffer, req *llm.ChatRequest) *llm.ChatResponse {
	start, err := c.ed.LineCount(buf)
	if err != nil {
		c.logger.Error("failed to count chat lines", "error", err)
		return &llm.ChatResponse{Model: req.Model}
	}

	var acc strings.Builder
	resp, err := client.Chat(ctx, req, func(delta string) error {
		acc.WriteString(delta)
		lines := StreamLines(acc.String())
		if err := c.ed.SetLines(buf, start, start+len(lines), lines); err != nil {
			return fmt.Errorf("render reply: %w", err)
		}

		total, err := c.ed.LineCount(buf)
		if err != nil {
			return fmt.Errorf("render reply: %w", err)
		}

		c.mu.Lock()
		win := c.chatWin
		c.mu.Unlock()
		if win != 0 {
			if err := c.ed.SetCursor(win, total, 0); err != nil {
				c.logger.Debug("failed to follow reply", "error", err)
			}
		}
		return nil
	})

	if resp == nil {
		resp = &llm.ChatResponse{Model: req.Model, Message: llm.NewAssistantMessage(acc.String())}
	}

	if err != nil {
		line := "[error] " + err.Error()
		if errors.Is(err, context.Canceled) {
			line = "[stopped]"
			c.logger.Info("reply stopped", "model", req.Model)
		} else {
			c.logger.Error("reply failed", "model", req.Model, "error", err)
		}
		if werr := c.ed.SetLines(buf, -1, -1, []string{line}); werr != nil {
			c.logger.Error("failed to render reply error", "error", werr)
		}
		return resp
	}

	c.logger.Debug("reply complete",
		"model", resp.Model,
		"stop_reason", resp.StopReason,
		"chars", len(resp.Message.Content),
	)
	return resp
}

// Stop cancels the in-flight reply and waits for it to wind down.
func (c *Chat) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		c.echo(msgIdle)
		return
	}

	cancel()
	<-done
}

// Wait blocks until no reply is streaming.
func (c *Chat) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}
