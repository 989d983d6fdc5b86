package cli

import (
	"github.com/spf13/cobra"
)

// NewCommand returns the root command.
func NewCommand(name string) *cobra.Command {
	f := NewFactory()

	c := &cobra.Command{
		Use:   name,
		Short: "Build, inspect and combine compressed uint32 bitmaps.",
		Long: `ebitmap manages roaring bitmaps stored as snapshots.

Bitmaps are built from files of integers, saved under a name and can then be
queried or merged into new snapshots. Snapshots live in a local directory by
default, or in an S3 or MinIO bucket.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return f.Validate()
		},
	}
	f.BindFlags(c.PersistentFlags())

	c.AddCommand(
		NewBuildCommand(f),
		NewStatsCommand(f),
		NewContainsCommand(f),
		NewMergeCommand(f),
		NewListCommand(f),
		NewDeleteCommand(f),
	)
	return c
}
