package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chazu/hydrogrid/pkg/catalog"
)

var catalogClasses = map[string]catalog.Class{
	"pipe":      catalog.ClassPipe,
	"bucket":    catalog.ClassBucket,
	"reservoir": catalog.ClassReservoir,
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "catalog [pipe|bucket|reservoir]",
		Short:     "List the enumerated pipe and vessel sizes",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"pipe", "bucket", "reservoir"},
		RunE: func(cmd *cobra.Command, args []string) error {
			classes := []catalog.Class{catalog.ClassPipe, catalog.ClassBucket, catalog.ClassReservoir}
			if len(args) == 1 {
				c, ok := catalogClasses[args[0]]
				if !ok {
					return fmt.Errorf("unknown class %q (want pipe, bucket or reservoir)", args[0])
				}
				classes = []catalog.Class{c}
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, c := range classes {
				if i > 0 {
					fmt.Fprintln(tw)
				}
				if c == catalog.ClassPipe {
					fmt.Fprintln(tw, "PIPE\tOD mm\tID mm\tSOCKET OD mm\tREACH mm")
				} else {
					fmt.Fprintf(tw, "%s\tLITRES\tINNER R mm\tINNER H mm\tWALL mm\n", strings.ToUpper(c.String()))
				}
				for _, sel := range catalog.Selectors(c) {
					p := catalog.MustLookup(c, sel)
					if c == catalog.ClassPipe {
						fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\t%.1f\n", sel,
							p.OuterDiameter*1000, p.InnerDiameter*1000, p.SocketOuterDiameter()*1000, p.Reach*1000)
						continue
					}
					fmt.Fprintf(tw, "%s\t%.0f\t%.1f\t%.1f\t%.1f\n", sel,
						p.Volume*1000, p.InnerRadius*1000, p.InnerHeight*1000, p.WallThickness*1000)
				}
			}
			return tw.Flush()
		},
	}
}
