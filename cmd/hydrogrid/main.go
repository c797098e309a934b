// Command hydrogrid generates RDWC hydroponic plumbing models.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "hydrogrid",
		Short: "Generate recirculating hydroponic plumbing as snap-fit 3D models",
		Long: `hydrogrid lays out a reverse-return RDWC network for a grid of buckets,
sizes every pipe and fitting from the catalog, and writes the assembled
model as STL with an optional PNG preview.`,
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&o.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newGenerateCmd(o))
	root.AddCommand(newPreviewCmd(o))
	root.AddCommand(newCatalogCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
