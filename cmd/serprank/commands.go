package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"serp-rank/rank"
	"serp-rank/rank/domain"
)

var (
	historyKeyword   string
	historyFoundOnly bool
	historyLimit     int
)

var checkCmd = &cobra.Command{
	Use:   "check <keyword>",
	Short: "Find where a keyword ranks on a results page",
	Long: `Find where a keyword ranks on a saved results page and record the check
in the history.

Examples:
  serprank check --page ./serp.html "running shoes"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMessage(cmd, rank.Message{Action: rank.ActionFindKeywordRank, Keyword: strings.Join(args, " ")})
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Print the results extracted from a page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMessage(cmd, rank.Message{Action: rank.ActionScrapeResults})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past checks, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMessage(cmd, rank.Message{
			Action: rank.ActionGetSearchHistory,
			Options: &domain.HistoryQuery{
				Limit:     historyLimit,
				Keyword:   historyKeyword,
				FoundOnly: historyFoundOnly,
			},
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate statistics over the history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMessage(cmd, rank.Message{Action: rank.ActionGetStats})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "System report and recent errors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := runMessage(cmd, rank.Message{Action: rank.ActionGetSystemReport}); err != nil {
			return err
		}
		return runMessage(cmd, rank.Message{Action: rank.ActionGetErrorReport})
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyKeyword, "keyword", "", "only entries whose keyword contains this text")
	historyCmd.Flags().BoolVar(&historyFoundOnly, "found", false, "only checks where the keyword was found")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to print")
}

// runMessage monta o app, despacha msg e imprime a resposta em JSON.
func runMessage(cmd *cobra.Command, msg rank.Message) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.dispatcher.Handle(cmd.Context(), msg)
	if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
		return err
	}
	switch r := resp.(type) {
	case *domain.Failure:
		return fmt.Errorf("%s failed: %w", msg.Action, r)
	case rank.ErrorResponse:
		return fmt.Errorf("%s failed: %s", msg.Action, r.Error)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.New("encode response: " + err.Error())
	}
	return nil
}

