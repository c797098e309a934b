package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chazu/hydrogrid/pkg/export"
	"github.com/chazu/hydrogrid/pkg/generate"
)

func newGenerateCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a grid and write it as STL",
		Example: `  hydrogrid generate --rows 2 --columns 3 --join --stl grid.stl
  hydrogrid generate -c hydrogrid.yaml -s grid.zy --preview grid.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, o)
		},
	}
	o.addRunFlags(cmd)
	cmd.Flags().StringVarP(&o.stl, "stl", "o", "", "write the model as binary STL")
	cmd.Flags().StringVar(&o.preview, "preview", "", "write a PNG preview")
	return cmd
}

func newPreviewCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <out.png>",
		Short: "Render a PNG preview of a grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.preview = args[0]
			return run(cmd, o)
		},
	}
	o.addRunFlags(cmd)
	return cmd
}

func run(cmd *cobra.Command, o *options) error {
	cfg, err := o.resolve(cmd)
	if err != nil {
		return err
	}
	log, err := cfg.Log.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	host, err := generate.NewHost(cfg.Host)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := generate.New(host, log).Generate(ctx, cfg.Grid)
	if err != nil {
		return err
	}

	var sum export.Summary
	if cfg.Output.STL != "" || cfg.Output.Preview != "" {
		sum, err = export.Export(host, res.Model, export.Options{
			STL:     cfg.Output.STL,
			Preview: cfg.Output.Preview,
			Width:   cfg.Output.Width,
			Height:  cfg.Output.Height,
			Logger:  log,
		})
		if err != nil {
			return err
		}
	}
	printReport(cmd.OutOrStdout(), res, cfg.Output.STL, cfg.Output.Preview, sum)
	return nil
}

func printReport(w io.Writer, res *generate.Result, stl, preview string, sum export.Summary) {
	s := res.Stats
	fmt.Fprintf(w, "run %s\n", res.RunID)
	fmt.Fprintf(w, "%d pots, %d parts, %d scene objects\n", s.Pots, s.Parts, s.Objects)
	fmt.Fprintf(w, "pipe: %d runs, %.3f m; loop per pot %.3f m\n", s.PipeRuns, s.PipeLength, s.LoopLength)
	fmt.Fprintf(w, "lines: supply at %.3f m, return at %.3f m\n", s.SupplyHeight, s.ReturnHeight)
	fmt.Fprintf(w, "triangles: %s (source %s)\n", humanize.Comma(int64(s.Triangles)), humanize.Comma(int64(s.SourceTriangles)))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nKIND\tSIZE\tQTY\tLENGTH")
	for _, line := range res.BOM() {
		length := ""
		if line.Length > 0 {
			length = fmt.Sprintf("%.3f m", line.Length)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", line.Kind, line.Size, line.Quantity, length)
	}
	tw.Flush()

	if len(s.ByRow) > 0 {
		rows := make([]int, 0, len(s.ByRow))
		for r := range s.ByRow {
			rows = append(rows, r)
		}
		sort.Ints(rows)
		fmt.Fprint(w, "\nparts per row:")
		for _, r := range rows {
			fmt.Fprintf(w, " %d:%d", r, s.ByRow[r])
		}
		fmt.Fprintln(w)
	}

	if stl != "" {
		fmt.Fprintf(w, "\nwrote %s (%s)\n", stl, humanize.Bytes(uint64(sum.STLBytes)))
	}
	if preview != "" {
		fmt.Fprintf(w, "wrote %s (%s)\n", preview, humanize.Bytes(uint64(sum.PreviewBytes)))
	}
}
