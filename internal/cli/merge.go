package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ebitmap"
)

// MergeOptions holds the flags of the merge command.
type MergeOptions struct {
	Op     string
	Inputs []string
	Name   string
}

// NewMergeCommand returns the merge command.
func NewMergeCommand(f *Factory) *cobra.Command {
	o := &MergeOptions{}

	c := &cobra.Command{
		Use:   "merge --op union|intersection A B... --name OUT",
		Short: "Combine snapshots into a new snapshot",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			o.Inputs = args
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run(c.Context(), f, c.OutOrStdout())
		},
	}
	c.Flags().StringVar(&o.Op, "op", "union", "set operation: union or intersection")
	c.Flags().StringVarP(&o.Name, "name", "n", "", "name of the resulting snapshot")
	return c
}

// Validate checks the options.
func (o *MergeOptions) Validate() error {
	if o.Op != "union" && o.Op != "intersection" {
		return fmt.Errorf("invalid --op %q", o.Op)
	}
	if o.Name == "" {
		return errors.New("--name is required")
	}
	return nil
}

// Run folds the inputs left to right and saves the result.
func (o *MergeOptions) Run(ctx context.Context, f *Factory, out io.Writer) error {
	s, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	combine := s.rt.Union
	if o.Op == "intersection" {
		combine = s.rt.Intersection
	}

	var acc *ebitmap.Bitmap
	for _, name := range o.Inputs {
		b, err := s.rt.Load(ctx, s.store, name)
		if err != nil {
			return err
		}
		if acc == nil {
			acc = b
			continue
		}
		if acc, err = combine(ctx, acc, b); err != nil {
			return err
		}
	}

	m, err := s.rt.Save(ctx, s.store, o.Name, acc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s: cardinality %d\n", m.Name, m.Statistics.Cardinality)
	return err
}
