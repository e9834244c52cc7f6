// Package chat implements the VILM editor commands: a floating chat window
// pair inside Neovim that relays the conversation to an llm.Client.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/vilm/pkg/editor"
	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/logger"
	"github.com/papercomputeco/vilm/pkg/merkle"
	"github.com/papercomputeco/vilm/pkg/storage"
	"github.com/papercomputeco/vilm/pkg/transcript"
)

// DefaultModelVar is the global variable consulted for the initial model.
const DefaultModelVar = "vilm_default_model"

// User-facing messages.
const (
	msgAlreadyOpen    = "Chat already open."
	msgNotOpen        = "Chat not open. Use :VILMChat first."
	msgNothingToPaste = "No previous LLM reply to paste."
	msgNoModels       = "No models found."
	msgBusy           = "Reply in progress. Use :VILMStop to cancel."
	msgIdle           = "No reply in progress."
	msgNoStore        = "No transcript store configured."
)

// ErrNoEditor is returned by New when Config.Editor is nil.
var ErrNoEditor = errors.New("chat requires an editor")

// Recorder accepts completed turns for persistence.
type Recorder interface {
	Enqueue(job transcript.Job) bool
}

// Config wires a Chat to its collaborators.
type Config struct {
	Editor editor.Editor
	Client llm.Client

	// Model is used when g:vilm_default_model is unset.
	Model string

	// Size of the chat and input windows.
	Size Size

	// Recorder persists turns; optional.
	Recorder Recorder

	// Store is read by Resume; optional.
	Store storage.Driver

	// Session identifies this host run on persisted nodes.
	Session string

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Chat holds the editor-side state of one conversation.
type Chat struct {
	ed       editor.Editor
	recorder Recorder
	store    storage.Driver
	session  string
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	client   llm.Client
	size     Size
	model    string
	modelSet bool
	history  []llm.Message
	head     *merkle.Node
	chatBuf  editor.Buffer
	inputBuf editor.Buffer
	chatWin  editor.Window
	inputWin editor.Window
	cancel   context.CancelFunc
	busy     bool
	done     chan struct{}
}

// New creates a Chat. The initial model is g:vilm_default_model when set,
// else c.Model, else DefaultModel. The global is read on first use, since
// New runs before the RPC connection is served.
func New(c *Config) (*Chat, error) {
	if c.Editor == nil {
		return nil, ErrNoEditor
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}

	size := c.Size
	if size.Width == 0 || size.Height == 0 || size.InputHeight == 0 {
		size = DefaultSize
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	return &Chat{
		ed:       c.Editor,
		client:   c.Client,
		recorder: c.Recorder,
		store:    c.Store,
		session:  c.Session,
		now:      now,
		logger:   log,
		size:     size,
		model:    model,
	}, nil
}

// Model returns the current model.
func (c *Chat) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelLocked()
}

// modelLocked returns the current model, consulting g:vilm_default_model
// the first time.
func (c *Chat) modelLocked() string {
	if !c.modelSet {
		c.modelSet = true
		if v, ok, err := c.ed.GlobalVar(DefaultModelVar); err == nil && ok && v != "" {
			c.model = v
		}
	}
	return c.model
}

// History returns a copy of the conversation so far.
func (c *Chat) History() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Message(nil), c.history...)
}

// Head returns the hash of the latest message of the conversation, or "".
func (c *Chat) Head() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.head == nil {
		return ""
	}
	return c.head.Hash
}

// Busy reports whether a reply is streaming.
func (c *Chat) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Buffers returns the chat and input buffers; zero when never created.
func (c *Chat) Buffers() (chatBuf, inputBuf editor.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatBuf, c.inputBuf
}

// Windows returns the chat and input windows; zero when closed.
func (c *Chat) Windows() (chatWin, inputWin editor.Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatWin, c.inputWin
}

// SetClient swaps the inference client, e.g. after an endpoint change.
// An in-flight reply keeps the client it started with.
func (c *Chat) SetClient(client llm.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = client
}

// SetSize changes the window size used the next time the chat opens.
func (c *Chat) SetSize(size Size) {
	if size.Width == 0 || size.Height == 0 || size.InputHeight == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = size
}

// echo writes a message and logs when the editor rejects it.
func (c *Chat) echo(msg string) {
	if err := c.ed.Echo(msg); err != nil {
		c.logger.Warn("failed to write message", "message", msg, "error", err)
	}
}

func (c *Chat) currentClient() (llm.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, errors.New("no inference client configured")
	}
	return c.client, nil
}
