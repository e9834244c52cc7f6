package testutils

import (
	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/merkle"
)

// NewTestBucket creates a simple bucket for testing
func NewTestBucket(role, text string) merkle.Bucket {
	return merkle.NewMessageBucket(llm.Message{Role: role, Content: text}, "test-model")
}
