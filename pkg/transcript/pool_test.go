package transcript_test

import (
	"bytes"
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/logger"
	"github.com/papercomputeco/vilm/pkg/merkle"
	"github.com/papercomputeco/vilm/pkg/storage/inmemory"
	"github.com/papercomputeco/vilm/pkg/transcript"
	testutils "github.com/papercomputeco/vilm/pkg/utils/test"
)

var at = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func reply(text string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Model:      "test-model",
		Message:    llm.NewAssistantMessage(text),
		Done:       true,
		StopReason: "stop",
		Usage:      &llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

var _ = Describe("Pool", func() {
	var (
		wp     *transcript.Pool
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()

		var err error
		wp, err = transcript.NewPool(&transcript.Config{
			Driver: driver,
			Logger: logger.New(logger.WithDebug(true), logger.WithWriter(GinkgoWriter)),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		wp.Close()
	})

	It("requires a driver", func() {
		_, err := transcript.NewPool(&transcript.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("stores every node of an enqueued turn", func() {
		nodes := transcript.Turn(nil, "s1", "test-model", llm.NewUserMessage("What is 2+2?"), reply("4"), at)
		Expect(wp.Enqueue(transcript.Job{Session: "s1", Nodes: nodes})).To(BeTrue())
		wp.Close()

		Expect(driver.Count()).To(Equal(2))

		path, err := driver.Ancestry(ctx, nodes[1].Hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(merkle.Messages(path)).To(Equal([]llm.Message{
			llm.NewUserMessage("What is 2+2?"),
			llm.NewAssistantMessage("4"),
		}))
	})

	It("chains multiple turns into one conversation", func() {
		first := transcript.Turn(nil, "s1", "test-model", llm.NewUserMessage("hi"), reply("hello"), at)
		second := transcript.Turn(first[len(first)-1], "s1", "test-model", llm.NewUserMessage("bye"), reply("see you"), at.Add(time.Minute))

		Expect(wp.Enqueue(transcript.Job{Session: "s1", Nodes: first})).To(BeTrue())
		Expect(wp.Enqueue(transcript.Job{Session: "s1", Nodes: second})).To(BeTrue())
		wp.Close()

		leaves, err := driver.Leaves(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(leaves).To(HaveLen(1))
		Expect(leaves[0].Hash).To(Equal(second[1].Hash))

		path, err := driver.Ancestry(ctx, leaves[0].Hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveLen(4))
	})

	It("rejects jobs after Close", func() {
		wp.Close()
		Expect(wp.Enqueue(transcript.Job{Session: "late"})).To(BeFalse())
	})

	It("drops jobs when the queue is full", func() {
		var buf bytes.Buffer
		mock := testutils.NewMockDriver()
		blocked, err := transcript.NewPool(&transcript.Config{
			Driver:     mock,
			NumWorkers: 1,
			QueueSize:  1,
			Logger:     logger.New(logger.WithWriter(&buf)),
		})
		Expect(err).NotTo(HaveOccurred())

		// Hold the only worker and fill the queue, then overflow it.
		results := make([]bool, 0, 20)
		for i := range 20 {
			nodes := transcript.Turn(nil, "s", "m", llm.NewUserMessage(string(rune('a'+i))), nil, at)
			results = append(results, blocked.Enqueue(transcript.Job{Session: "s", Nodes: nodes}))
		}
		blocked.Close()

		Expect(results).To(ContainElement(BeTrue()))
		dropped := 0
		for _, ok := range results {
			if !ok {
				dropped++
			}
		}
		Expect(len(mock.Stored())).To(Equal(20 - dropped))
	})

	It("logs and continues when the driver fails", func() {
		var buf bytes.Buffer
		mock := testutils.NewMockDriver()
		mock.FailPut = true

		failing, err := transcript.NewPool(&transcript.Config{
			Driver: mock,
			Logger: logger.New(logger.WithWriter(&buf)),
		})
		Expect(err).NotTo(HaveOccurred())

		nodes := transcript.Turn(nil, "s", "m", llm.NewUserMessage("x"), reply("y"), at)
		Expect(failing.Enqueue(transcript.Job{Session: "s", Nodes: nodes})).To(BeTrue())
		failing.Close()

		Expect(mock.Stored()).To(BeEmpty())
		Expect(buf.String()).To(ContainSubstring("transcript storage failed"))
	})
})

var _ = Describe("Turn", func() {
	It("chains the reply onto the user message", func() {
		nodes := transcript.Turn(nil, "s1", "llama3.2:3b", llm.NewUserMessage("q"), reply("a"), at)
		Expect(nodes).To(HaveLen(2))
		Expect(nodes[0].IsRoot()).To(BeTrue())
		Expect(*nodes[1].ParentHash).To(Equal(nodes[0].Hash))
		Expect(nodes[0].Bucket.Model).To(Equal("llama3.2:3b"))
		Expect(nodes[1].Bucket.Model).To(Equal("test-model"))
		Expect(nodes[1].StopReason).To(Equal("stop"))
		Expect(nodes[1].Usage.TotalTokens).To(Equal(15))
		Expect(nodes[0].Session).To(Equal("s1"))
		Expect(nodes[1].CreatedAt).To(Equal(at))
	})

	It("omits a blank reply", func() {
		Expect(transcript.Turn(nil, "s", "m", llm.NewUserMessage("q"), reply("  \n"), at)).To(HaveLen(1))
		Expect(transcript.Turn(nil, "s", "m", llm.NewUserMessage("q"), nil, at)).To(HaveLen(1))
	})

	It("produces the same hashes for the same conversation", func() {
		a := transcript.Turn(nil, "s1", "m", llm.NewUserMessage("q"), reply("a"), at)
		b := transcript.Turn(nil, "s2", "m", llm.NewUserMessage("q"), reply("a"), at.Add(time.Hour))
		Expect(a[1].Hash).To(Equal(b[1].Hash))
	})
})
