package merkle_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/merkle"
)

func testBucket(text string) merkle.Bucket {
	return merkle.NewMessageBucket(llm.NewUserMessage(text), "test-model")
}

var _ = Describe("Node", func() {
	Describe("NewNode", func() {
		Context("when creating a root node (no parent)", func() {
			It("creates a root node with the given bucket", func() {
				bucket := testBucket("hello world")
				node := merkle.NewNode(bucket, nil)

				Expect(node.Bucket).To(Equal(bucket))
				Expect(node.ParentHash).To(BeNil())
				Expect(node.IsRoot()).To(BeTrue())
				Expect(node.Hash).To(HaveLen(64))
			})

			It("produces consistent hashes for the same bucket", func() {
				bucket := testBucket("same content")
				Expect(merkle.NewNode(bucket, nil).Hash).To(Equal(merkle.NewNode(bucket, nil).Hash))
			})

			It("produces different hashes for different content, role, or model", func() {
				base := merkle.NewNode(testBucket("content"), nil)

				Expect(merkle.NewNode(testBucket("other"), nil).Hash).NotTo(Equal(base.Hash))

				asAssistant := merkle.NewMessageBucket(llm.NewAssistantMessage("content"), "test-model")
				Expect(merkle.NewNode(asAssistant, nil).Hash).NotTo(Equal(base.Hash))

				otherModel := merkle.NewMessageBucket(llm.NewUserMessage("content"), "other-model")
				Expect(merkle.NewNode(otherModel, nil).Hash).NotTo(Equal(base.Hash))
			})
		})

		Context("when creating a child node", func() {
			It("links to the parent hash", func() {
				parent := merkle.NewNode(testBucket("parent"), nil)
				child := merkle.NewNode(testBucket("child"), parent)

				Expect(child.ParentHash).NotTo(BeNil())
				Expect(*child.ParentHash).To(Equal(parent.Hash))
				Expect(child.IsRoot()).To(BeFalse())
			})

			It("hashes the same content differently under different parents", func() {
				p1 := merkle.NewNode(testBucket("p1"), nil)
				p2 := merkle.NewNode(testBucket("p2"), nil)

				Expect(merkle.NewNode(testBucket("same"), p1).Hash).NotTo(Equal(merkle.NewNode(testBucket("same"), p2).Hash))
			})
		})

		Context("with metadata", func() {
			It("stores metadata without changing the hash", func() {
				bucket := merkle.NewMessageBucket(llm.NewAssistantMessage("reply"), "test-model")
				plain := merkle.NewNode(bucket, nil)
				withMeta := merkle.NewNode(bucket, nil, merkle.NodeMeta{
					StopReason: "stop",
					Usage:      &llm.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
					Session:    "session-1",
					CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				})

				Expect(withMeta.Hash).To(Equal(plain.Hash))
				Expect(withMeta.StopReason).To(Equal("stop"))
				Expect(withMeta.Usage.TotalTokens).To(Equal(7))
				Expect(withMeta.Session).To(Equal("session-1"))
			})
		})
	})

	Describe("Messages", func() {
		It("returns history in conversation order from an ancestry", func() {
			root := merkle.NewNode(testBucket("question"), nil)
			reply := merkle.NewNode(merkle.NewMessageBucket(llm.NewAssistantMessage("answer"), "test-model"), root)

			Expect(merkle.Messages([]*merkle.Node{reply, root})).To(Equal([]llm.Message{
				llm.NewUserMessage("question"),
				llm.NewAssistantMessage("answer"),
			}))
		})
	})
})
