package main

import (
	"fmt"
	"text/tabwriter"

	"meal-engine/internal/core/food"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <label>...",
		Short: "Show how detected labels are canonicalized",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runClassify,
	}
}

func runClassify(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, headerColor.Sprint("LABEL\tKIND\tNAME\tDEFAULT"))
	for _, label := range args {
		category := food.Classify(label)
		name, ok := category.Resolve()
		if !ok {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", label, warnColor.Sprint(category.Kind()), dimColor.Sprint("-"), dimColor.Sprint("-"))
			continue
		}
		qty, unit := food.Estimate(name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%g %s\n", label, okColor.Sprint(category.Kind()), name, qty, unit)
	}
	return w.Flush()
}
