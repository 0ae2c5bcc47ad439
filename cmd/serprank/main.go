// Command serprank avalia em que posição uma palavra-chave aparece numa
// página de resultados de busca e mantém o histórico dessas avaliações.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	pagePath   string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "serprank",
	Short: "Keyword rank checker for search result pages",
	Long: `serprank finds where a keyword ranks on a search engine result page,
keeps a bounded history of checks and reports on extraction failures.

Configuration comes from an optional YAML file (--config) overridden by
SERPRANK_* environment variables.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&pagePath, "page", "", "SERP HTML file to evaluate (overrides extractor.page)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reportCmd)
}
