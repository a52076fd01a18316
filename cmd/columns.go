package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/pivotloom-cli/internal/filter"
)

var colValues string

var columnsCmd = &cobra.Command{
	Use:   "columns <file|->",
	Short: "List numeric and categorical columns of a dataset",
	Args:  inputArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, l, err := loadInput(cmd, args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if colValues != "" {
			vals, ok := filter.DistinctValues(l.Table, colValues)
			if !ok {
				return fmt.Errorf("column %q not found", colValues)
			}
			for _, v := range vals {
				fmt.Fprintln(out, v)
			}
			return nil
		}
		s := p.ListColumns(l.Table)
		fmt.Fprintf(out, "✓ %s: %d rows\n", l.Table.Name, l.Table.Rows())
		fmt.Fprintf(out, "numeric: %s\n", strings.Join(s.Numeric, ", "))
		fmt.Fprintf(out, "categorical: %s\n", strings.Join(s.Categorical, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	columnsCmd.Flags().StringVar(&colValues, "values", "", "print the distinct values of one column instead")
}
