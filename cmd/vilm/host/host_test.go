package hostcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vilm/pkg/chat"
	"github.com/papercomputeco/vilm/pkg/config"
	testutils "github.com/papercomputeco/vilm/pkg/utils/test"
)

var _ = Describe("NewHostCmd", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "vilm-host-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(tmpDir) })
	})

	It("registers the shared config flags", func() {
		cmd := NewHostCmd()
		for _, name := range []string{"endpoint", "timeout", "model", "storage-driver", "sqlite", "postgres-dsn", "manifest"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("prints the rplugin manifest", func() {
		var out bytes.Buffer
		cmd := NewHostCmd()
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.PersistentFlags().Bool("debug", false, "")
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--config-dir", tmpDir, "--manifest", "vilm"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("remote#host#RegisterPlugin"))
		Expect(out.String()).To(ContainSubstring("VILMChat"))
		Expect(out.String()).To(ContainSubstring("VILMStatusline"))
	})
})

var _ = Describe("loadConfig", func() {
	It("layers flags over config.toml", func() {
		tmpDir, err := os.MkdirTemp("", "vilm-host-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(tmpDir) })

		cfger, err := config.NewConfiger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SetConfigValue("chat.default_model", "mistral:7b")).To(Succeed())
		Expect(cfger.SetConfigValue("chat.width", "100")).To(Succeed())

		cmder := &hostCommander{}
		cmd := NewHostCmd()
		cmd.PersistentFlags().String("config-dir", "", "")
		Expect(cmd.ParseFlags([]string{"--config-dir", tmpDir, "--model", "phi3"})).To(Succeed())
		Expect(cmder.loadConfig(cmd)).To(Succeed())

		Expect(cmder.cfg.Chat.DefaultModel).To(Equal("phi3"))
		Expect(cmder.cfg.Chat.Width).To(Equal(uint(100)))
		Expect(sizeFromConfig(cmder.cfg)).To(Equal(chat.Size{Width: 100, Height: 20, InputHeight: 5}))
	})
})

var _ = Describe("newLogger", func() {
	It("writes JSON to the log file", func() {
		var file, stderr bytes.Buffer
		newLogger(&file, &stderr, false, false).Info("plugin host started", "session", "abc")

		var record map[string]any
		Expect(json.Unmarshal(file.Bytes(), &record)).To(Succeed())
		Expect(record["msg"]).To(Equal("plugin host started"))
		Expect(record["session"]).To(Equal("abc"))
		Expect(stderr.Len()).To(BeZero())
	})

	It("honors log.debug without echoing to stderr", func() {
		var file, stderr bytes.Buffer
		newLogger(&file, &stderr, false, true).Debug("delta")
		Expect(file.String()).To(ContainSubstring("delta"))
		Expect(stderr.Len()).To(BeZero())
	})

	It("also logs to stderr with --debug", func() {
		var file, stderr bytes.Buffer
		newLogger(&file, &stderr, true, false).Debug("delta")
		Expect(file.String()).To(ContainSubstring("delta"))
		Expect(stderr.String()).To(ContainSubstring("delta"))
	})
})

var _ = Describe("reloader", func() {
	var (
		ed     *testutils.FakeEditor
		ch     *chat.Chat
		server *httptest.Server
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"models":[{"name":"gemma2:2b","model":"gemma2:2b"}]}`)
		}))
		DeferCleanup(server.Close)

		ed = testutils.NewFakeEditor(120, 40)
		var err error
		ch, err = chat.New(&chat.Config{
			Editor: ed,
			Client: testutils.NewMockClient("llama3.2:3b"),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("resizes the chat windows", func() {
		prev := config.NewDefaultConfig()
		next := config.NewDefaultConfig()
		next.Chat.Width = 60

		r := &reloader{chat: ch, prev: prev}
		Expect(r.apply(next)).To(Succeed())

		Expect(ch.Open([2]int{0, 0})).To(Succeed())
		chatWin, _ := ch.Windows()
		Expect(ed.Float(chatWin).Width).To(Equal(60))
	})

	It("keeps the client when the endpoint is unchanged", func() {
		r := &reloader{chat: ch, prev: config.NewDefaultConfig()}
		Expect(r.apply(config.NewDefaultConfig())).To(Succeed())
		Expect(ch.CompleteModels(context.Background())).To(Equal([]string{"llama3.2:3b"}))
	})

	It("reconnects when the endpoint changes", func() {
		orig, had := os.LookupEnv("OLLAMA_HOST")
		Expect(os.Unsetenv("OLLAMA_HOST")).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv("OLLAMA_HOST", orig)
			}
		})
		next := config.NewDefaultConfig()
		next.Ollama.Endpoint = server.URL

		r := &reloader{chat: ch, prev: config.NewDefaultConfig()}
		Expect(r.apply(next)).To(Succeed())
		Expect(ch.CompleteModels(context.Background())).To(Equal([]string{"gemma2:2b"}))
		Expect(r.prev).To(BeIdenticalTo(next))
	})
})

var _ = Describe("config reload", func() {
	It("keeps --endpoint and applies file edits", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"models":[{"name":"flagged:1b","model":"flagged:1b"}]}`)
		}))
		DeferCleanup(server.Close)

		orig, had := os.LookupEnv("OLLAMA_HOST")
		Expect(os.Setenv("OLLAMA_HOST", "http://127.0.0.1:1")).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv("OLLAMA_HOST", orig)
			} else {
				_ = os.Unsetenv("OLLAMA_HOST")
			}
		})

		tmpDir, err := os.MkdirTemp("", "vilm-host-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(tmpDir) })

		cfger, err := config.NewConfiger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SetConfigValue("ollama.endpoint", "http://127.0.0.1:2")).To(Succeed())

		cmder := &hostCommander{}
		cmd := NewHostCmd()
		cmd.PersistentFlags().String("config-dir", "", "")
		Expect(cmd.ParseFlags([]string{"--config-dir", tmpDir, "--endpoint", server.URL})).To(Succeed())
		Expect(cmder.loadConfig(cmd)).To(Succeed())
		Expect(cmder.explicit).To(BeTrue())

		client, err := newClient(cmder.cfg, cmder.explicit)
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Endpoint()).To(Equal(server.URL))

		ed := testutils.NewFakeEditor(120, 40)
		ch, err := chat.New(&chat.Config{Editor: ed, Client: client})
		Expect(err).NotTo(HaveOccurred())

		// A timeout edit forces a reconnect, which must still use the flag.
		Expect(cfger.SetConfigValue("chat.width", "60")).To(Succeed())
		Expect(cfger.SetConfigValue("ollama.timeout", "10s")).To(Succeed())

		next, err := cmder.resolveConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Ollama.Endpoint).To(Equal(server.URL))
		Expect(next.Chat.Width).To(Equal(uint(60)))

		r := &reloader{chat: ch, prev: cmder.cfg, explicit: cmder.explicit}
		Expect(r.apply(next)).To(Succeed())

		Expect(ch.CompleteModels(context.Background())).To(Equal([]string{"flagged:1b"}))
		Expect(ch.Open([2]int{0, 0})).To(Succeed())
		chatWin, _ := ch.Windows()
		Expect(ed.Float(chatWin).Width).To(Equal(60))
	})
})
