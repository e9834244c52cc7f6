package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/vilm/pkg/llm"
)

// ErrMock is returned by mocks configured to fail.
var ErrMock = errors.New("mock failure")

// MockClient is an llm.Client that replays scripted deltas and records
// every chat request it receives.
type MockClient struct {
	mu sync.Mutex

	// Models is returned by ListModels.
	Models []string

	// ListErr, when set, is returned by ListModels.
	ListErr error

	// Deltas are streamed to the callback in order by Chat.
	Deltas []string

	// ChatErr, when set, is returned by Chat after every delta was sent.
	ChatErr error

	// Block, when non-nil, is waited on after the first delta until it is
	// closed or the context is canceled.
	Block chan struct{}

	// Started is closed once Chat has sent its first delta (or started,
	// when there are no deltas). It is created lazily.
	Started chan struct{}

	requests []*llm.ChatRequest
}

// NewMockClient creates a mock that lists the given models.
func NewMockClient(models ...string) *MockClient {
	return &MockClient{
		Models:  models,
		Started: make(chan struct{}),
	}
}

func (m *MockClient) ListModels(_ context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Models, nil
}

func (m *MockClient) Chat(ctx context.Context, req *llm.ChatRequest, fn llm.DeltaFunc) (*llm.ChatResponse, error) {
	m.mu.Lock()
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	m.requests = append(m.requests, &cp)
	started := m.Started
	m.mu.Unlock()

	resp := &llm.ChatResponse{
		Model:   req.Model,
		Message: llm.Message{Role: llm.RoleAssistant},
	}

	signal := func() {
		if started == nil {
			return
		}
		select {
		case <-started:
		default:
			close(started)
		}
	}

	if len(m.Deltas) == 0 {
		signal()
	}

	for i, delta := range m.Deltas {
		if err := ctx.Err(); err != nil {
			return resp, err
		}
		resp.Message.Content += delta
		if err := fn(delta); err != nil {
			return resp, err
		}

		if i == 0 {
			signal()
			if m.Block != nil {
				select {
				case <-m.Block:
				case <-ctx.Done():
					return resp, ctx.Err()
				}
			}
		}
	}

	if m.ChatErr != nil {
		return resp, m.ChatErr
	}

	resp.Done = true
	resp.StopReason = "stop"
	return resp, nil
}

// Requests returns a copy of every request Chat received.
func (m *MockClient) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.ChatRequest(nil), m.requests...)
}
