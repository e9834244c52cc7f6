// Package merkle is an implementation of a Merkle DAG for chat transcripts.
//
// Each message is a node whose hash covers its content and its parent's
// hash, so a conversation head identifies the whole conversation.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/papercomputeco/vilm/pkg/llm"
)

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	// Bucket is the hashable content for the node.
	Bucket Bucket `json:"bucket"`

	// StopReason indicates why generation stopped (only for replies)
	StopReason string `json:"stop_reason,omitempty"`

	// Usage contains token counts and timing (only for replies)
	Usage *llm.Usage `json:"usage,omitempty"`

	// Session identifies the plugin host run that produced this node
	Session string `json:"session,omitempty"`

	// CreatedAt is when the message was exchanged
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// NodeMeta contains optional metadata for a node that is stored
// but does not affect the content-addressable hash.
type NodeMeta struct {
	StopReason string
	Usage      *llm.Usage
	Session    string
	CreatedAt  time.Time
}

// NewNode creates a new node with the computed hash for the provided bucket.
// The optional NodeMeta sets metadata outside of the content addressable Bucket.
func NewNode(bucket Bucket, parent *Node, metas ...NodeMeta) *Node {
	n := &Node{
		Bucket: bucket,
	}

	if parent != nil {
		parentHash := parent.Hash
		n.ParentHash = &parentHash
	}

	if len(metas) > 0 {
		n.StopReason = metas[0].StopReason
		n.Usage = metas[0].Usage
		n.Session = metas[0].Session
		n.CreatedAt = metas[0].CreatedAt
	}

	n.Hash = n.computeHash()
	return n
}

// IsRoot reports whether the node starts a conversation.
func (n *Node) IsRoot() bool {
	return n.ParentHash == nil
}

// computeHash calculates the content-addressed hash for a node.
// encoding/json emits struct fields in declaration order, which keeps the
// hash input stable across runs.
func (n *Node) computeHash() string {
	parent := ""
	if n.ParentHash != nil {
		parent = *n.ParentHash
	}

	data, err := json.Marshal(struct {
		Parent  string `json:"parent"`
		Content Bucket `json:"content"`
	}{
		Parent:  parent,
		Content: n.Bucket,
	})
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Messages converts an ancestry (node first, root last) into chat history
// in conversation order.
func Messages(ancestry []*Node) []llm.Message {
	msgs := make([]llm.Message, 0, len(ancestry))
	for i := len(ancestry) - 1; i >= 0; i-- {
		msgs = append(msgs, ancestry[i].Bucket.Message())
	}
	return msgs
}
