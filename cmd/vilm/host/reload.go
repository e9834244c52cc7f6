package hostcmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/vilm/pkg/chat"
	"github.com/papercomputeco/vilm/pkg/config"
	"github.com/papercomputeco/vilm/pkg/llm/ollama"
)

func newClient(cfg *config.Config, explicit bool) (*ollama.Client, error) {
	client, err := ollama.New(
		ollama.ResolveEndpoint(cfg.Ollama.Endpoint, explicit),
		ollama.WithTimeout(cfg.TimeoutDuration()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return client, nil
}

func sizeFromConfig(cfg *config.Config) chat.Size {
	return chat.Size{
		Width:       int(cfg.Chat.Width),
		Height:      int(cfg.Chat.Height),
		InputHeight: int(cfg.Chat.InputHeight),
	}
}

// reloader applies config.toml edits to a running chat. Only the window
// size and the Ollama connection are live; storage needs a restart.
type reloader struct {
	chat     *chat.Chat
	prev     *config.Config
	explicit bool
}

func (r *reloader) apply(next *config.Config) error {
	r.chat.SetSize(sizeFromConfig(next))

	if next.Ollama.Endpoint != r.prev.Ollama.Endpoint || next.TimeoutDuration() != r.prev.TimeoutDuration() {
		client, err := newClient(next, r.explicit)
		if err != nil {
			return err
		}
		r.chat.SetClient(client)
	}

	r.prev = next
	return nil
}

func (c *hostCommander) watchConfig(ctx context.Context, ch *chat.Chat) {
	r := &reloader{chat: ch, prev: c.cfg, explicit: c.explicit}

	err := c.cfger.Watch(ctx,
		func(*config.Config) {
			// The watcher only sees the file; flags and env still apply.
			next, err := c.resolveConfig()
			if err != nil {
				c.logger.Warn("config reload failed", "error", err)
				return
			}
			if err := r.apply(next); err != nil {
				c.logger.Warn("config reload failed", "error", err)
				return
			}
			c.logger.Info("config reloaded",
				"endpoint", next.Ollama.Endpoint,
				"width", next.Chat.Width,
				"height", next.Chat.Height,
			)
		},
		func(err error) {
			c.logger.Warn("config reload failed", "error", err)
		},
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("config watcher stopped", "error", err)
	}
}
