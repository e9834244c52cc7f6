// Package rplugin registers the chat commands with a Neovim remote plugin.
package rplugin

import (
	"context"
	"log/slog"
	"strings"

	"github.com/neovim/go-client/nvim/plugin"

	"github.com/papercomputeco/vilm/pkg/chat"
)

// Commands is the interface the registered handlers drive. *chat.Chat
// implements it.
type Commands interface {
	Open(rng [2]int) error
	Close()
	Toggle() error
	Send(ctx context.Context) error
	Stop()
	PasteLast() error
	SetModel(args []string)
	ListModels(ctx context.Context)
	CompleteModels(ctx context.Context) []string
	Clear() error
	Status()
	Statusline() string
	Resume(ctx context.Context, ref string) error
}

var _ Commands = (*chat.Chat)(nil)

// Echoer reports handler failures to the user.
type Echoer interface {
	Echo(msg string) error
}

// Handlers adapts Commands to go-client handler signatures.
type Handlers struct {
	cmds   Commands
	echo   Echoer
	logger *slog.Logger
	ctx    context.Context
}

// NewHandlers creates handlers bound to ctx; canceling it aborts replies
// in flight.
func NewHandlers(ctx context.Context, cmds Commands, echo Echoer, logger *slog.Logger) *Handlers {
	return &Handlers{cmds: cmds, echo: echo, logger: logger, ctx: ctx}
}

// Register installs every command and function on p.
func (h *Handlers) Register(p *plugin.Plugin) {
	p.HandleCommand(&plugin.CommandOptions{Name: "VILMChat", Range: "."}, h.chat)
	p.HandleCommand(&plugin.CommandOptions{Name: "VILMCloseChat"}, h.closeChat)
	p.HandleCommand(&plugin.CommandOptions{Name: "VILMSend"}, h.send)
	p.HandleCommand(&plugin.CommandOptions{Name: "VILMStop"}, h.stop)
	p.HandleCommand(&plugin.CommandOptions{Name: "VILMPasteLast"}, h.pasteLast)
	p.HandleCommand(&plugin.CommandOptions{
		Name:     "VILMModel",
		NArgs:    "?",
		Complete: "customlist,VILMCompleteModels",
	}, h.model)
	p.HandleCommand(&plugin.CommandOptions{Name: "VILMList"}, h.list)
	p.HandleCommand(&plugin.CommandOptions{Name: "VILMClearChat"}, h.clear)
	p.HandleCommand(&plugin.CommandOptions{Name: "VILMToggle"}, h.toggle)
	p.HandleCommand(&plugin.CommandOptions{Name: "VILMStatus"}, h.status)
	p.HandleCommand(&plugin.CommandOptions{Name: "VILMResume", NArgs: "1"}, h.resume)

	p.HandleFunction(&plugin.FunctionOptions{Name: "VILMCompleteModels"}, h.completeModels)
	p.HandleFunction(&plugin.FunctionOptions{Name: "VILMStatusline"}, h.statusline)
}

// report logs a failed command and echoes it to the user.
func (h *Handlers) report(cmd string, err error) {
	if err == nil {
		return
	}
	h.logger.Error("command failed", "command", cmd, "error", err)
	if eerr := h.echo.Echo("ERROR: " + cmd + ": " + err.Error()); eerr != nil {
		h.logger.Warn("failed to report error", "error", eerr)
	}
}

// Handlers with a return value are synchronous: Neovim waits for them.

func (h *Handlers) chat(rng [2]int) error {
	h.report("VILMChat", h.cmds.Open(rng))
	return nil
}

func (h *Handlers) toggle() error {
	h.report("VILMToggle", h.cmds.Toggle())
	return nil
}

func (h *Handlers) status() error {
	h.cmds.Status()
	return nil
}

func (h *Handlers) stop() error {
	h.cmds.Stop()
	return nil
}

func (h *Handlers) completeModels(args []any) ([]string, error) {
	models := h.cmds.CompleteModels(h.ctx)

	lead := ""
	if len(args) > 0 {
		if s, ok := args[0].(string); ok {
			lead = s
		}
	}
	if lead == "" {
		return models, nil
	}

	matches := []string{}
	for _, m := range models {
		if strings.HasPrefix(m, lead) {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (h *Handlers) statusline(_ []any) (string, error) {
	return h.cmds.Statusline(), nil
}

// Handlers without a return value are notifications.

func (h *Handlers) closeChat() {
	h.cmds.Close()
}

// send streams on its own goroutine so later notifications (and the
// editor) are not held up for the length of a reply.
func (h *Handlers) send() {
	go func() {
		h.report("VILMSend", h.cmds.Send(h.ctx))
	}()
}

func (h *Handlers) pasteLast() {
	h.report("VILMPasteLast", h.cmds.PasteLast())
}

func (h *Handlers) model(args []string) {
	h.cmds.SetModel(args)
}

func (h *Handlers) list() {
	h.cmds.ListModels(h.ctx)
}

func (h *Handlers) clear() {
	h.report("VILMClearChat", h.cmds.Clear())
}

func (h *Handlers) resume(args []string) {
	ref := ""
	if len(args) > 0 {
		ref = args[0]
	}
	h.report("VILMResume", h.cmds.Resume(h.ctx, ref))
}
