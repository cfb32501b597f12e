package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/hybridsearch/internal/app"
	"github.com/kailas-cloud/hybridsearch/internal/domain"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/result"
	"github.com/kailas-cloud/hybridsearch/internal/domain/search/source"
	gen "github.com/kailas-cloud/hybridsearch/internal/transport/generated"
)

type searchOptions struct {
	mode       string
	limit      int
	jsonOutput bool
}

func newSearchCmd(global *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a search against the configured backends",
		Long: `Run the search pipeline in-process and print the fused results.

Examples:
  hybridsearch search "unit testing"
  hybridsearch search "solar power" --mode keyword --limit 5
  hybridsearch search "vector databases" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, global, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Search mode: hybrid, keyword, semantic (default hybrid)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default search.page_size)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, global *globalOptions, query string, opts searchOptions) error {
	cfg, err := global.load()
	if err != nil {
		return err
	}
	logger, err := global.logger(&cfg, "warn")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stats := domain.NewContextWithStats(cmd.Context())
	items, err := a.Search.Search(ctx, query, opts.mode, opts.limit)
	if err != nil {
		return err
	}

	if degraded := stats.Degraded(); len(degraded) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: results degraded, %s unavailable\n", joinSources(degraded))
	}

	if opts.jsonOutput {
		return writeResultsJSON(cmd.OutOrStdout(), items)
	}
	return writeResultsTable(cmd.OutOrStdout(), items, isTerminal(cmd.OutOrStdout()))
}

func writeResultsJSON(w io.Writer, items []result.Item) error {
	out := make(gen.SearchResponse, len(items))
	for i := range items {
		it := &items[i]
		out[i] = gen.SearchResultItem{
			Id:       it.DocID(),
			Title:    it.Title(),
			Body:     it.Body(),
			Score:    it.Score(),
			FtsScore: it.FTSScore(),
			SemScore: it.SemScore(),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

const maxBodyWidth = 60

func writeResultsTable(w io.Writer, items []result.Item, color bool) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}

	rows := make([][]string, len(items))
	for i := range items {
		it := &items[i]
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			it.DocID(),
			fmt.Sprintf("%.4f", it.Score()),
			formatScore(it.FTSScore()),
			formatScore(it.SemScore()),
			it.Title(),
			truncate(it.Body(), maxBodyWidth),
		}
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	border := lipgloss.ASCIIBorder()
	if color {
		headerStyle = headerStyle.Foreground(lipgloss.Color("154"))
		border = lipgloss.RoundedBorder()
	}

	t := table.New().
		Border(border).
		Headers("#", "ID", "SCORE", "FTS", "SEM", "TITLE", "BODY").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func joinSources(srcs []source.Source) string {
	names := make([]string, len(srcs))
	for i, s := range srcs {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
