package merkle

import "github.com/papercomputeco/vilm/pkg/llm"

// BucketTypeMessage is the bucket type for chat messages.
const BucketTypeMessage = "message"

// Bucket represents the hashable content stored in a Merkle DAG node.
// This is the canonical storage format for a chat message.
type Bucket struct {
	// Type identifies the kind of content (e.g., "message")
	Type string `json:"type"`

	// Role indicates who produced this message ("user", "assistant")
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`

	// Model identifies the model the message was exchanged with
	Model string `json:"model"`
}

// NewMessageBucket builds a message bucket for msg exchanged with model.
func NewMessageBucket(msg llm.Message, model string) Bucket {
	return Bucket{
		Type:    BucketTypeMessage,
		Role:    msg.Role,
		Content: msg.Content,
		Model:   model,
	}
}

// Message converts the bucket back into a chat message.
func (b Bucket) Message() llm.Message {
	return llm.Message{Role: b.Role, Content: b.Content}
}
