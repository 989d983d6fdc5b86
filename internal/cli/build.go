package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ebitmap/internal/resource"
)

// BuildOptions holds the flags of the build command.
type BuildOptions struct {
	Input string
	Name  string
}

// NewBuildCommand returns the build command.
func NewBuildCommand(f *Factory) *cobra.Command {
	o := &BuildOptions{}

	c := &cobra.Command{
		Use:   "build --input FILE --name NAME",
		Short: "Build a bitmap from a file of integers and save it",
		Long: `Read whitespace separated integers in [0, 4294967295] from FILE (or
standard input if FILE is -) and save them as the snapshot NAME.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run(c.Context(), f, c.InOrStdin(), c.OutOrStdout())
		},
	}
	c.Flags().StringVarP(&o.Input, "input", "i", "-", "file of integers, - for standard input")
	c.Flags().StringVarP(&o.Name, "name", "n", "", "snapshot name")
	return c
}

// Validate checks the options.
func (o *BuildOptions) Validate() error {
	if o.Name == "" {
		return errors.New("--name is required")
	}
	return nil
}

// Run builds and saves the bitmap.
func (o *BuildOptions) Run(ctx context.Context, f *Factory, stdin io.Reader, out io.Writer) error {
	in := stdin
	if o.Input != "-" {
		file, err := os.Open(o.Input)
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}

	values, err := ReadValues(resource.NewRateLimitedReader(ctx, in, f.Resources()))
	if err != nil {
		return fmt.Errorf("read %s: %w", o.Input, err)
	}

	s, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	b, err := s.rt.CreateOf(ctx, values)
	if err != nil {
		return err
	}
	m, err := s.rt.Save(ctx, s.store, o.Name, b)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "%s: %d values read, cardinality %d, %d bytes stored\n",
		m.Name, len(values), m.Statistics.Cardinality, m.StoredBytes)
	return err
}

// ReadValues parses whitespace separated uint32 values from r.
func ReadValues(r io.Reader) ([]uint32, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	var values []uint32
	for sc.Scan() {
		v, err := strconv.ParseUint(sc.Text(), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", len(values), err)
		}
		values = append(values, uint32(v))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
