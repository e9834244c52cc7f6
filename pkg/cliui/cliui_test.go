package cliui_test

import (
	"bytes"
	"errors"
	"os"
	"time"

	"github.com/muesli/termenv"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vilm/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("FormatDuration", func() {
		It("uses milliseconds under a second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("uses seconds otherwise", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("Mark", func() {
		It("distinguishes success from failure", func() {
			Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
			Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
		})
	})

	Describe("Profile", func() {
		It("is plain for non-terminal writers", func() {
			Expect(cliui.Profile(&bytes.Buffer{})).To(Equal(termenv.Ascii))
		})

		It("honors NO_COLOR", func() {
			prev, had := os.LookupEnv("NO_COLOR")
			Expect(os.Setenv("NO_COLOR", "1")).To(Succeed())
			DeferCleanup(func() {
				if had {
					os.Setenv("NO_COLOR", prev)
				} else {
					os.Unsetenv("NO_COLOR")
				}
			})

			Expect(cliui.Profile(os.Stdout)).To(Equal(termenv.Ascii))
		})
	})

	Describe("Step", func() {
		It("reports the outcome of fn", func() {
			var buf bytes.Buffer
			err := cliui.Step(&buf, "working", func() error { return nil })
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("working"))
		})

		It("returns fn's error", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")
			Expect(cliui.Step(&buf, "failing", func() error { return boom })).To(MatchError(boom))
		})
	})

	Describe("RenderMarkdown", func() {
		It("renders plain output without escape codes", func() {
			out, err := cliui.RenderMarkdown("# Title\n\nsome *text*", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Title"))
			Expect(out).To(ContainSubstring("text"))
			Expect(out).NotTo(ContainSubstring("\x1b["))
		})
	})
})
