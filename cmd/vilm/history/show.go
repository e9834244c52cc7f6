package historycmder

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vilm/pkg/cliui"
	"github.com/papercomputeco/vilm/pkg/llm"
	"github.com/papercomputeco/vilm/pkg/merkle"
	"github.com/papercomputeco/vilm/pkg/storage"
)

const showLongDesc string = `Render a persisted conversation as markdown.

The argument is a message hash or a unique prefix of one. The
conversation is printed from its first message up to that message.

Examples:
  vilm history show 3fa2c1
  vilm history show 3fa2c1 --raw > chat.md`

func newShowCmd(cmder *historyCommander) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <hash>",
		Short: "Render a persisted conversation",
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return cmder.withDriver(ctx, func(d storage.Driver) error {
				node, err := storage.Resolve(ctx, d, args[0])
				if err != nil {
					return err
				}
				ancestry, err := d.Ancestry(ctx, node.Hash)
				if err != nil {
					return fmt.Errorf("loading conversation: %w", err)
				}
				return render(cmd.OutOrStdout(), Markdown(ancestry), raw)
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the markdown source instead of rendering it")

	return cmd
}

// Markdown renders an ancestry (node first, root last) as a markdown
// document, oldest message first.
func Markdown(ancestry []*merkle.Node) string {
	var b strings.Builder
	for i := len(ancestry) - 1; i >= 0; i-- {
		n := ancestry[i]

		speaker := "@" + n.Bucket.Model
		if n.Bucket.Role == llm.RoleUser {
			speaker = "@me"
		}
		if !n.CreatedAt.IsZero() {
			speaker += " (" + n.CreatedAt.Local().Format("2006-01-02 15:04:05") + ")"
		}

		fmt.Fprintf(&b, "### %s\n\n%s\n\n", speaker, strings.TrimSpace(n.Bucket.Content))
	}
	return b.String()
}

func render(w io.Writer, md string, raw bool) error {
	if raw {
		_, err := io.WriteString(w, md)
		return err
	}

	f, ok := w.(*os.File)
	plain := !ok || !cliui.IsTerminal(f)

	out, err := cliui.RenderMarkdown(md, plain)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
