package historycmder

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vilm/pkg/chat"
	"github.com/papercomputeco/vilm/pkg/cliui"
	"github.com/papercomputeco/vilm/pkg/merkle"
	"github.com/papercomputeco/vilm/pkg/storage"
	"github.com/papercomputeco/vilm/pkg/utils"
)

const listLongDesc string = `List persisted conversations, newest first.

Each line shows the short hash of the conversation's latest message,
when it was written, the model and the start of that message.`

const previewLen = 60

func newListCmd(cmder *historyCommander) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted conversations",
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.withDriver(cmd.Context(), func(d storage.Driver) error {
				leaves, err := d.Leaves(cmd.Context())
				if err != nil {
					return fmt.Errorf("listing conversations: %w", err)
				}
				return printLeaves(cmd.OutOrStdout(), leaves)
			})
		},
	}
}

func printLeaves(w io.Writer, leaves []*merkle.Node) error {
	cliui.Init(w)

	if len(leaves) == 0 {
		return writeLines(w, cliui.DimStyle.Render("No conversations found."))
	}

	for _, n := range leaves {
		line := fmt.Sprintf("%s  %s  %s  %s",
			cliui.HashStyle.Render(chat.ShortHash(n.Hash)),
			cliui.DimStyle.Render(formatTime(n.CreatedAt)),
			cliui.KeyStyle.Render(n.Bucket.Model),
			utils.Truncate(utils.FirstLine(n.Bucket.Content), previewLen),
		)
		if err := writeLines(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
