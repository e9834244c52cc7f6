package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/merkle"
	"github.com/papercomputeco/vilm/pkg/storage"
)

// MockDriver is a storage.Driver that records puts and can be told to fail.
type MockDriver struct {
	mu    sync.Mutex
	nodes []*merkle.Node

	// FailPut causes Put to return ErrMock.
	FailPut bool
}

// NewMockDriver creates an empty mock driver.
func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

func (m *MockDriver) Put(_ context.Context, node *merkle.Node) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut {
		return false, ErrMock
	}
	for _, n := range m.nodes {
		if n.Hash == node.Hash {
			return false, nil
		}
	}
	m.nodes = append(m.nodes, node)
	return true, nil
}

func (m *MockDriver) Get(_ context.Context, hash string) (*merkle.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.nodes {
		if n.Hash == hash {
			return n, nil
		}
	}
	return nil, storage.NotFoundError{Hash: hash}
}

func (m *MockDriver) Has(ctx context.Context, hash string) (bool, error) {
	_, err := m.Get(ctx, hash)
	return err == nil, nil
}

func (m *MockDriver) List(_ context.Context) ([]*merkle.Node, error) {
	return m.Stored(), nil
}

func (m *MockDriver) Leaves(_ context.Context) ([]*merkle.Node, error) {
	return nil, nil
}

func (m *MockDriver) Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error) {
	return storage.WalkAncestry(ctx, m, hash)
}

func (m *MockDriver) Close() error {
	return nil
}

// Stored returns the nodes put so far, in insertion order.
func (m *MockDriver) Stored() []*merkle.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*merkle.Node(nil), m.nodes...)
}

// DriverBehaviors declares the specs every storage.Driver must satisfy.
// newDriver is called before each test and must return an empty store.
func DriverBehaviors(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
		base   time.Time
	)

	node := func(role, text string, parent *merkle.Node, offset time.Duration) *merkle.Node {
		return merkle.NewNode(NewTestBucket(role, text), parent, merkle.NodeMeta{
			Session:   "session-1",
			CreatedAt: base.Add(offset),
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		base = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put and Get", func() {
		It("round-trips a node with its metadata", func() {
			root := node(llm.RoleUser, "hello", nil, 0)
			reply := merkle.NewNode(NewTestBucket(llm.RoleAssistant, "hi there"), root, merkle.NodeMeta{
				StopReason: "stop",
				Usage:      &llm.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
				Session:    "session-1",
				CreatedAt:  base.Add(time.Second),
			})

			inserted, err := driver.Put(ctx, root)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeTrue())
			_, err = driver.Put(ctx, reply)
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, reply.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Hash).To(Equal(reply.Hash))
			Expect(got.ParentHash).NotTo(BeNil())
			Expect(*got.ParentHash).To(Equal(root.Hash))
			Expect(got.Bucket).To(Equal(reply.Bucket))
			Expect(got.StopReason).To(Equal("stop"))
			Expect(got.Usage).To(Equal(reply.Usage))
			Expect(got.Session).To(Equal("session-1"))
			Expect(got.CreatedAt.Equal(reply.CreatedAt)).To(BeTrue())

			gotRoot, err := driver.Get(ctx, root.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotRoot.ParentHash).To(BeNil())
			Expect(gotRoot.Usage).To(BeNil())
		})

		It("is idempotent for the same content", func() {
			n := node(llm.RoleUser, "same", nil, 0)

			inserted, err := driver.Put(ctx, n)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeTrue())

			inserted, err = driver.Put(ctx, n)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeFalse())

			nodes, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(HaveLen(1))
		})

		It("rejects a nil node", func() {
			_, err := driver.Put(ctx, nil)
			Expect(err).To(HaveOccurred())
		})

		It("returns NotFoundError for unknown hashes", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))

			ok, err := driver.Has(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Leaves", func() {
		It("returns conversation heads newest first", func() {
			a1 := node(llm.RoleUser, "first question", nil, 0)
			a2 := node(llm.RoleAssistant, "first answer", a1, time.Second)
			b1 := node(llm.RoleUser, "second question", nil, 2*time.Second)

			// Children may arrive before their parents.
			for _, n := range []*merkle.Node{a2, b1, a1} {
				_, err := driver.Put(ctx, n)
				Expect(err).NotTo(HaveOccurred())
			}

			leaves, err := driver.Leaves(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leaves).To(HaveLen(2))
			Expect(leaves[0].Hash).To(Equal(b1.Hash))
			Expect(leaves[1].Hash).To(Equal(a2.Hash))
		})

		It("is empty for an empty store", func() {
			leaves, err := driver.Leaves(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leaves).To(BeEmpty())
		})
	})

	Describe("Ancestry", func() {
		It("walks from the node back to the root", func() {
			q := node(llm.RoleUser, "q", nil, 0)
			a := node(llm.RoleAssistant, "a", q, time.Second)
			q2 := node(llm.RoleUser, "q2", a, 2*time.Second)
			for _, n := range []*merkle.Node{q, a, q2} {
				_, err := driver.Put(ctx, n)
				Expect(err).NotTo(HaveOccurred())
			}

			path, err := driver.Ancestry(ctx, q2.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(HaveLen(3))
			Expect(path[0].Hash).To(Equal(q2.Hash))
			Expect(path[2].Hash).To(Equal(q.Hash))

			Expect(merkle.Messages(path)).To(Equal([]llm.Message{
				{Role: llm.RoleUser, Content: "q"},
				{Role: llm.RoleAssistant, Content: "a"},
				{Role: llm.RoleUser, Content: "q2"},
			}))
		})

		It("fails when a parent is missing", func() {
			q := node(llm.RoleUser, "orphan parent", nil, 0)
			a := node(llm.RoleAssistant, "orphan", q, time.Second)
			_, err := driver.Put(ctx, a)
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.Ancestry(ctx, a.Hash)
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})
	})

	Describe("Resolve", func() {
		It("resolves full hashes and unique prefixes", func() {
			n := node(llm.RoleUser, "resolve me", nil, 0)
			_, err := driver.Put(ctx, n)
			Expect(err).NotTo(HaveOccurred())

			got, err := storage.Resolve(ctx, driver, n.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Hash).To(Equal(n.Hash))

			got, err = storage.Resolve(ctx, driver, n.Hash[:8])
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Hash).To(Equal(n.Hash))
		})

		It("returns NotFoundError for an unknown prefix", func() {
			_, err := storage.Resolve(ctx, driver, "zzzz")
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})

		It("reports ambiguous prefixes", func() {
			// 17 hashes over 16 hex digits share at least one first character.
			seen := map[byte]bool{}
			var prefix string
			for i := range 17 {
				n := node(llm.RoleUser, fmt.Sprintf("message %d", i), nil, 0)
				_, err := driver.Put(ctx, n)
				Expect(err).NotTo(HaveOccurred())
				if seen[n.Hash[0]] && prefix == "" {
					prefix = n.Hash[:1]
				}
				seen[n.Hash[0]] = true
			}
			Expect(prefix).NotTo(BeEmpty())

			_, err := storage.Resolve(ctx, driver, prefix)
			Expect(err).To(BeAssignableToTypeOf(storage.AmbiguousError{}))
		})

		It("treats a blank reference as not found", func() {
			_, err := storage.Resolve(ctx, driver, "  ")
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})
	})
}
