package rplugin

import (
	"context"
	"io"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"

	"github.com/papercomputeco/vilm/pkg/logger"
)

// Manifest returns the rplugin.vim registration for a host named host.
// Neovim never sees the connection used to build it.
func Manifest(host string) ([]byte, error) {
	r, w := io.Pipe()
	defer r.Close()

	v, err := nvim.New(r, w, w, func(string, ...any) {})
	if err != nil {
		return nil, err
	}

	p := plugin.New(v)
	NewHandlers(context.Background(), nil, nil, logger.Nop()).Register(p)
	return p.Manifest(host), nil
}
