package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/SAP-F-2025/ec0249-assessment/internal/catalog"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the assessment catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCatalog(cmd)
		if err != nil {
			return err
		}

		var filters catalog.Filters
		filters.Module, _ = cmd.Flags().GetString("module")
		filters.Element, _ = cmd.Flags().GetString("element")
		filters.Category, _ = cmd.Flags().GetString("category")

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tQUESTIONS\tTIME LIMIT\tPASSING\tSCORING")
		for _, a := range c.Filter(filters) {
			method := string(a.Settings.ScoringMethod)
			if method == "" {
				method = "standard"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%ds\t%d%%\t%s\n",
				a.ID, a.Title, len(a.Questions), a.TimeLimit, a.PassingScoreOrDefault(), method)
		}
		return w.Flush()
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a catalog file against the schema and question rules",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			c   *catalog.Catalog
			err error
		)
		if len(args) == 1 {
			c, err = catalog.LoadFile(args[0], nil)
		} else {
			c, err = loadCatalog(cmd)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "catalog %s is valid: %d assessments\n", c.Version(), c.Len())
		return nil
	},
}

func init() {
	catalogListCmd.Flags().String("module", "", "Only assessments of this module")
	catalogListCmd.Flags().String("element", "", "Only assessments of this competency element")
	catalogListCmd.Flags().String("category", "", "Only assessments of this category")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
}
