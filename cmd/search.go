package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/brokerd/internal/registry"
)

var (
	searchKind   string
	searchMode   string
	searchLimit  int
	searchCursor string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the broker's callable registry",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "any|tools|skills")
	searchCmd.Flags().StringVar(&searchMode, "mode", "", "literal|regex|fuzzy")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results per page")
	searchCmd.Flags().StringVar(&searchCursor, "cursor", "", "opaque cursor from a previous page")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print raw JSON instead of a table")
}

func runSearch(cmd *cobra.Command, args []string) error {
	var q string
	if len(args) == 1 {
		q = args[0]
	}

	callArgs := map[string]interface{}{"q": q}
	if searchKind != "" {
		callArgs["kind"] = searchKind
	}
	if searchMode != "" {
		callArgs["mode"] = searchMode
	}
	if searchLimit > 0 {
		callArgs["limit"] = searchLimit
	}
	if searchCursor != "" {
		callArgs["cursor"] = searchCursor
	}

	res, err := callMetaTool(cmd.Context(), "search", callArgs)
	if err != nil {
		return err
	}

	var resp registry.Response
	if err := resultText(res, &resp); err != nil {
		return err
	}

	if searchJSON {
		return printJSON(resp)
	}

	t := newTable()
	t.AppendHeader(header("FQN", "KIND", "OWNER", "DESCRIPTION", "SCORE"))
	for _, r := range resp.Results {
		t.AppendRow([]interface{}{r.FQN, r.Kind, r.Owner, r.Description, fmt.Sprintf("%.2f", r.Score)})
	}
	t.Render()
	if resp.Cursor != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nmore results: --cursor %s\n", resp.Cursor)
	}
	return nil
}
