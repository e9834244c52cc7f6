package historycmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vilm/pkg/cliui"
	"github.com/papercomputeco/vilm/pkg/storage"
)

const purgeLongDesc string = `Delete every persisted conversation.

This cannot be undone, so --yes is required.`

// ErrPurgeNotConfirmed is returned when purge runs without --yes.
var ErrPurgeNotConfirmed = errors.New("refusing to delete all conversations without --yes")

// purger is implemented by the SQL backed drivers.
type purger interface {
	Purge(ctx context.Context) (int64, error)
}

func newPurgeCmd(cmder *historyCommander) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every persisted conversation",
		Long:  purgeLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return ErrPurgeNotConfirmed
			}
			return cmder.withDriver(cmd.Context(), func(d storage.Driver) error {
				p, ok := d.(purger)
				if !ok {
					return fmt.Errorf("storage driver %q cannot purge", cmder.cfg.Storage.Driver)
				}
				n, err := p.Purge(cmd.Context())
				if err != nil {
					return err
				}
				cmder.logger.Info("purged conversations", "messages", n)

				cliui.Init(cmd.OutOrStdout())
				return writeLines(cmd.OutOrStdout(), cliui.DimStyle.Render(fmt.Sprintf("Deleted %d messages.", n)))
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}
