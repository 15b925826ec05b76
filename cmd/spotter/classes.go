package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

func newClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List the class names the detector can report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tCLASS")
			fmt.Fprintln(w, "--\t-----")
			for i, name := range detection.COCOClasses {
				fmt.Fprintf(w, "%d\t%s\n", i, name)
			}
			return w.Flush()
		},
	}
}
