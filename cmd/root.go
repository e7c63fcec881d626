package cmd

import (
	"os"

	"github.com/SAP-F-2025/ec0249-assessment/internal/catalog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "ec0249",
	Short:        "EC0249 consulting competency assessment engine",
	Long:         "Runs, scores and records the EC0249 module assessments and final certification exam.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("catalog", "", "Path to an assessment catalog JSON file (overrides CATALOG_PATH env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadCatalog reads the catalog from the --catalog flag (highest priority), then the
// CATALOG_PATH env var, then falls back to the embedded EC0249 catalog.
func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		path = os.Getenv("CATALOG_PATH")
	}
	if path == "" {
		return catalog.Default(nil)
	}
	return catalog.LoadFile(path, nil)
}
