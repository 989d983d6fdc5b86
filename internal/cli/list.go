package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewListCommand returns the list command.
func NewListCommand(f *Factory) *cobra.Command {
	var long bool

	c := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List snapshots",
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runList(c.Context(), f, c.OutOrStdout(), long)
		},
	}
	c.Flags().BoolVarP(&long, "long", "l", false, "show manifest details")
	return c
}

func runList(ctx context.Context, f *Factory, out io.Writer, long bool) error {
	s, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	names, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	if !long {
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCARDINALITY\tCOMPRESSION\tBYTES\tCREATED")
	for _, name := range names {
		m, err := s.store.Manifest(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", m.Name, m.Statistics.Cardinality, m.Compression, m.StoredBytes, m.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

// NewDeleteCommand returns the delete command.
func NewDeleteCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME...",
		Short: "Delete snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			s, err := f.open(c.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			for _, name := range args {
				if err := s.store.Delete(c.Context(), name); err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "%s deleted\n", name)
			}
			return nil
		},
	}
}
