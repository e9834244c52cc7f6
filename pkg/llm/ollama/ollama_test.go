package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/llm/ollama"
)

// chatChunks writes NDJSON chunks the way Ollama streams /api/chat.
func chatChunks(w http.ResponseWriter, deltas ...string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	for _, d := range deltas {
		fmt.Fprintf(w, `{"model":"llama3.2:3b","created_at":"2025-01-01T00:00:00Z","message":{"role":"assistant","content":%q},"done":false}`+"\n", d)
	}
	fmt.Fprint(w, `{"model":"llama3.2:3b","created_at":"2025-01-01T00:00:01Z","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","total_duration":1500000000,"prompt_eval_count":12,"eval_count":7}`+"\n")
}

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		client  *ollama.Client
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))

		var err error
		client, err = ollama.New(server.URL, ollama.WithTimeout(2*time.Second))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("ListModels", func() {
		It("returns model names from /api/tags", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.URL.Path).To(Equal("/api/tags"))
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"models":[{"name":"llama3.2:3b","model":"llama3.2:3b"},{"name":"qwen2.5-coder:7b","model":"qwen2.5-coder:7b"}]}`)
			}

			models, err := client.ListModels(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(Equal([]string{"llama3.2:3b", "qwen2.5-coder:7b"}))
		})

		It("returns an empty list when no models are installed", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"models":[]}`)
			}

			models, err := client.ListModels(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(BeEmpty())
		})

		It("surfaces the service error", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"error":"disk on fire"}`)
			}

			_, err := client.ListModels(ctx)
			Expect(err).To(MatchError(ContainSubstring("disk on fire")))
		})
	})

	Describe("Chat", func() {
		It("sends a streaming request with the full history", func() {
			var body map[string]any
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/api/chat"))
				data, err := io.ReadAll(r.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(data, &body)).To(Succeed())
				chatChunks(w, "ok")
			}

			_, err := client.Chat(ctx, &llm.ChatRequest{
				Model: "llama3.2:3b",
				Messages: []llm.Message{
					llm.NewUserMessage("What is Go?"),
					llm.NewAssistantMessage("A language."),
					llm.NewUserMessage("More."),
				},
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(body["model"]).To(Equal("llama3.2:3b"))
			Expect(body["stream"]).To(BeTrue())
			messages := body["messages"].([]any)
			Expect(messages).To(HaveLen(3))
			Expect(messages[2].(map[string]any)["content"]).To(Equal("More."))
		})

		It("delivers deltas in order and assembles the reply", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				chatChunks(w, "Hello", ", ", "", "world\n")
			}

			var deltas []string
			resp, err := client.Chat(ctx, &llm.ChatRequest{Model: "llama3.2:3b"}, func(d string) error {
				deltas = append(deltas, d)
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(deltas).To(Equal([]string{"Hello", ", ", "world\n"}))
			Expect(resp.Message.Role).To(Equal(llm.RoleAssistant))
			Expect(resp.Message.Content).To(Equal("Hello, world\n"))
			Expect(resp.Done).To(BeTrue())
			Expect(resp.StopReason).To(Equal("stop"))
			Expect(resp.Usage).NotTo(BeNil())
			Expect(resp.Usage.PromptTokens).To(Equal(12))
			Expect(resp.Usage.CompletionTokens).To(Equal(7))
			Expect(resp.Usage.TotalTokens).To(Equal(19))
		})

		It("stops when the delta callback fails and keeps the partial reply", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				chatChunks(w, "one", "two", "three")
			}

			stop := errors.New("stop")
			resp, err := client.Chat(ctx, &llm.ChatRequest{Model: "llama3.2:3b"}, func(d string) error {
				if d == "two" {
					return stop
				}
				return nil
			})
			Expect(errors.Is(err, stop)).To(BeTrue())
			Expect(resp.Message.Content).To(Equal("onetwo"))
		})

		It("surfaces the service error text", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":"model \"nope\" not found, try pulling it first"}`+"\n")
			}

			_, err := client.Chat(ctx, &llm.ChatRequest{Model: "nope"}, nil)
			Expect(err).To(MatchError(ContainSubstring(`model "nope" not found`)))
		})

		It("reports a stream that ends without completion", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":"half"},"done":false}`+"\n")
			}

			resp, err := client.Chat(ctx, &llm.ChatRequest{Model: "m"}, nil)
			Expect(err).To(MatchError(ollama.ErrIncompleteStream))
			Expect(resp.Message.Content).To(Equal("half"))
		})

		It("honors context cancellation", func() {
			started := make(chan struct{})
			handler = func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":"a"},"done":false}`+"\n")
				w.(http.Flusher).Flush()
				close(started)
				<-r.Context().Done()
			}

			cctx, cancel := context.WithCancel(ctx)
			go func() {
				<-started
				cancel()
			}()

			resp, err := client.Chat(cctx, &llm.ChatRequest{Model: "m"}, nil)
			Expect(err).To(MatchError(context.Canceled))
			Expect(err).NotTo(MatchError(ollama.ErrIncompleteStream))
			Expect(resp.Message.Content).To(Equal("a"))
		})
	})
})

var _ = Describe("New", func() {
	It("accepts a bare host:port endpoint", func() {
		c, err := ollama.New("127.0.0.1:11434")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Endpoint()).To(Equal("http://127.0.0.1:11434"))
	})

	It("gives a bare host Ollama's port", func() {
		c, err := ollama.New("0.0.0.0")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Endpoint()).To(Equal("http://0.0.0.0:11434"))
	})

	It("keeps the scheme's port for a full URL", func() {
		c, err := ollama.New("https://ollama.example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Endpoint()).To(Equal("https://ollama.example.com"))
	})

	It("falls back to the default endpoint when empty", func() {
		c, err := ollama.New("")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Endpoint()).To(Equal(ollama.DefaultEndpoint))
	})
})

var _ = Describe("ResolveEndpoint", func() {
	BeforeEach(func() {
		prev, had := os.LookupEnv("OLLAMA_HOST")
		DeferCleanup(func() {
			if had {
				os.Setenv("OLLAMA_HOST", prev)
			} else {
				os.Unsetenv("OLLAMA_HOST")
			}
		})
	})

	It("prefers OLLAMA_HOST over the configured endpoint", func() {
		os.Setenv("OLLAMA_HOST", "http://remote:11434")
		Expect(ollama.ResolveEndpoint("http://configured:11434", false)).To(Equal("http://remote:11434"))
	})

	It("reads OLLAMA_HOST the way Ollama does", func() {
		os.Setenv("OLLAMA_HOST", "myhost")
		Expect(ollama.ResolveEndpoint("", false)).To(Equal("http://myhost:11434"))

		os.Setenv("OLLAMA_HOST", "0.0.0.0")
		Expect(ollama.ResolveEndpoint("", false)).To(Equal("http://0.0.0.0:11434"))

		os.Setenv("OLLAMA_HOST", ":9999")
		Expect(ollama.ResolveEndpoint("", false)).To(Equal("http://127.0.0.1:9999"))
	})

	It("lets an explicit endpoint win over OLLAMA_HOST", func() {
		os.Setenv("OLLAMA_HOST", "http://remote:11434")
		Expect(ollama.ResolveEndpoint("http://flag:11434", true)).To(Equal("http://flag:11434"))
	})

	It("uses the configured endpoint otherwise", func() {
		os.Unsetenv("OLLAMA_HOST")
		Expect(ollama.ResolveEndpoint("http://configured:11434", false)).To(Equal("http://configured:11434"))
		Expect(ollama.ResolveEndpoint("", false)).To(Equal(ollama.DefaultEndpoint))
		Expect(ollama.ResolveEndpoint("", true)).To(Equal(ollama.DefaultEndpoint))
	})
})
