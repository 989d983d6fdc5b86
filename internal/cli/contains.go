package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

// NewContainsCommand returns the contains command.
func NewContainsCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "contains NAME VALUE...",
		Short: "Report whether values are members of a snapshot",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return runContains(c.Context(), f, c.OutOrStdout(), args[0], args[1:])
		},
	}
}

func runContains(ctx context.Context, f *Factory, out io.Writer, name string, raw []string) error {
	values := make([]uint32, len(raw))
	for i, r := range raw {
		v, err := strconv.ParseUint(r, 10, 32)
		if err != nil {
			return fmt.Errorf("value %q: %w", r, err)
		}
		values[i] = uint32(v)
	}

	s, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	b, err := s.rt.Load(ctx, s.store, name)
	if err != nil {
		return err
	}
	for _, v := range values {
		ok, err := s.rt.Contains(ctx, b, v)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d\t%t\n", v, ok)
	}
	return nil
}
