package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ebitmap"
	"github.com/hupe1980/ebitmap/codec"
)

// StatsOptions holds the flags of the stats command.
type StatsOptions struct {
	Name   string
	Output string
}

// NewStatsCommand returns the stats command.
func NewStatsCommand(f *Factory) *cobra.Command {
	o := &StatsOptions{}

	c := &cobra.Command{
		Use:   "stats NAME",
		Short: "Print the statistics record of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			o.Name = args[0]
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run(c.Context(), f, c.OutOrStdout())
		},
	}
	c.Flags().StringVarP(&o.Output, "output", "o", "table", "output format: table, json or go-json")
	return c
}

// Validate checks the options.
func (o *StatsOptions) Validate() error {
	if o.Output == "table" {
		return nil
	}
	if _, ok := codec.ByName(o.Output); !ok {
		return fmt.Errorf("invalid output format %q", o.Output)
	}
	return nil
}

// Run loads the snapshot and prints its statistics.
func (o *StatsOptions) Run(ctx context.Context, f *Factory, out io.Writer) error {
	s, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	b, err := s.rt.Load(ctx, s.store, o.Name)
	if err != nil {
		return err
	}
	st, err := s.rt.Statistics(ctx, b)
	if err != nil {
		return err
	}
	return printStatistics(out, o.Output, st)
}

type indenter interface {
	MarshalIndent(v any, prefix, indent string) ([]byte, error)
}

func printStatistics(out io.Writer, format string, st ebitmap.Statistics) error {
	if format == "table" {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, field := range st.Fields() {
			fmt.Fprintf(w, "%s\t%d\n", field.Name, field.Value)
		}
		return w.Flush()
	}

	c, _ := codec.ByName(format)
	var (
		data []byte
		err  error
	)
	if ic, ok := c.(indenter); ok {
		data, err = ic.MarshalIndent(st, "", "  ")
	} else {
		data, err = c.Marshal(st)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
