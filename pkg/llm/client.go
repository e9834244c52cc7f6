package llm

import "context"

// DeltaFunc receives each non-empty piece of streamed reply text in order.
// Returning an error aborts the stream.
type DeltaFunc func(delta string) error

// Client is an inference service the chat commands talk to.
type Client interface {
	// ListModels returns the names of the models available locally.
	ListModels(ctx context.Context) ([]string, error)

	// Chat streams a reply for req. The returned response carries whatever
	// content arrived, even when err is non-nil.
	Chat(ctx context.Context, req *ChatRequest, fn DeltaFunc) (*ChatResponse, error)
}
