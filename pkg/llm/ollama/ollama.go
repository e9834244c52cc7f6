// Package ollama implements llm.Client against a local Ollama service using
// the official github.com/ollama/ollama/api client.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"

	"github.com/papercomputeco/vilm/pkg/llm"
)

// DefaultEndpoint is where a stock Ollama install listens.
const DefaultEndpoint = "http://localhost:11434"

const defaultPort = "11434"

// ErrIncompleteStream is returned when the service closes a chat stream
// without reporting completion.
var ErrIncompleteStream = errors.New("ollama closed the stream before the reply was complete")

// Client implements llm.Client.
type Client struct {
	endpoint *url.URL
	api      *api.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout bounds dialing and waiting for response headers. Streamed
// bodies are not bounded, so long replies are never cut off.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// New creates a client for the Ollama API at endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	o := &options{
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	base, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	hc := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: o.timeout}).DialContext,
			ResponseHeaderTimeout: o.timeout,
		},
	}

	return &Client{
		endpoint: base,
		api:      api.NewClient(base, hc),
	}, nil
}

// Endpoint returns the base URL the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// ListModels returns the names reported by GET /api/tags.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.api.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Chat streams POST /api/chat. Each non-empty message delta is handed to fn
// as it arrives.
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest, fn llm.DeltaFunc) (*llm.ChatResponse, error) {
	stream := true
	apiReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: make([]api.Message, 0, len(req.Messages)),
		Stream:   &stream,
	}
	for _, m := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, api.Message{Role: m.Role, Content: m.Content})
	}

	result := &llm.ChatResponse{
		Model:   req.Model,
		Message: llm.Message{Role: llm.RoleAssistant},
	}

	var content strings.Builder
	err := c.api.Chat(ctx, apiReq, func(chunk api.ChatResponse) error {
		if result.CreatedAt.IsZero() {
			result.CreatedAt = chunk.CreatedAt
		}
		if chunk.Model != "" {
			result.Model = chunk.Model
		}

		if delta := chunk.Message.Content; delta != "" {
			content.WriteString(delta)
			if fn != nil {
				if err := fn(delta); err != nil {
					return err
				}
			}
		}

		if chunk.Done {
			result.Done = true
			result.StopReason = chunk.DoneReason
			if result.StopReason == "" {
				result.StopReason = "stop"
			}
			result.Usage = usageFromMetrics(chunk.Metrics)
		}
		return nil
	})
	result.Message.Content = content.String()

	// The api client stops reading on cancellation without reporting it.
	if ctxErr := ctx.Err(); ctxErr != nil && !result.Done {
		return result, fmt.Errorf("chat with %s: %w", req.Model, ctxErr)
	}
	if err != nil {
		return result, fmt.Errorf("chat with %s: %w", req.Model, err)
	}
	if !result.Done {
		return result, ErrIncompleteStream
	}
	return result, nil
}

func usageFromMetrics(m api.Metrics) *llm.Usage {
	if m.PromptEvalCount == 0 && m.EvalCount == 0 && m.TotalDuration == 0 {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     m.PromptEvalCount,
		CompletionTokens: m.EvalCount,
		TotalTokens:      m.PromptEvalCount + m.EvalCount,
		TotalDurationNs:  m.TotalDuration.Nanoseconds(),
		PromptDurationNs: m.PromptEvalDuration.Nanoseconds(),
	}
}

// ResolveEndpoint picks the service address. An explicitly given endpoint
// (a command line flag) wins, then OLLAMA_HOST as Ollama itself reads it,
// then configured, then DefaultEndpoint.
func ResolveEndpoint(configured string, explicit bool) string {
	if explicit && strings.TrimSpace(configured) != "" {
		return configured
	}
	if strings.TrimSpace(os.Getenv("OLLAMA_HOST")) != "" {
		return envconfig.Host().String()
	}
	if configured != "" {
		return configured
	}
	return DefaultEndpoint
}

// parseEndpoint accepts full URLs as well as bare host[:port] values.
// Bare hosts get Ollama's port, not port 80.
func parseEndpoint(endpoint string) (*url.URL, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	bare := !strings.Contains(endpoint, "://")
	if bare {
		endpoint = "http://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parsing ollama endpoint %q: missing host", endpoint)
	}
	if bare && u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), defaultPort)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}
