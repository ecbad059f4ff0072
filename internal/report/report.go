package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"shelfsync/internal/merge"
	"shelfsync/internal/syncer"
)

const timeRounding = time.Millisecond

// statusOrder fixes row order so reports are comparable across runs.
var statusOrder = []merge.Status{
	merge.StatusUpdated,
	merge.StatusUnchanged,
	merge.StatusPendingVerification,
	merge.StatusFailed,
}

// Render writes the summary to w, choosing a table when w is a terminal and
// JSON otherwise.
func Render(w io.Writer, summary *syncer.Summary) error {
	if file, ok := w.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		return RenderTable(w, summary)
	}
	return RenderJSON(w, summary)
}

// RenderJSON writes the summary as indented JSON.
func RenderJSON(w io.Writer, summary *syncer.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// RenderTable writes a human-readable summary.
func RenderTable(w io.Writer, summary *syncer.Summary) error {
	fmt.Fprintf(w, "Run %s", summary.RunID)
	if summary.DryRun {
		fmt.Fprint(w, " (dry run)")
	}
	fmt.Fprintf(w, "\nProcessed %d items, resolved %.0f%%, took %s\n\n",
		summary.Total,
		summary.ResolutionRate()*100,
		summary.Finished.Sub(summary.Started).Round(timeRounding))

	rows := make([][]string, 0, len(statusOrder))
	for _, status := range statusOrder {
		rows = append(rows, []string{string(status), fmt.Sprintf("%d", summary.Counts[status])})
	}
	fmt.Fprintln(w, renderGrid([]string{"Status", "Items"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(summary.Providers) > 0 {
		names := make([]string, 0, len(summary.Providers))
		for name := range summary.Providers {
			names = append(names, name)
		}
		sort.Strings(names)

		rows = rows[:0]
		for _, name := range names {
			tally := summary.Providers[name]
			rows = append(rows, []string{
				name,
				fmt.Sprintf("%d", tally.Found),
				fmt.Sprintf("%d", tally.NotFound),
				fmt.Sprintf("%d", tally.Rejected),
				fmt.Sprintf("%d", tally.Errors),
				fmt.Sprintf("%d", tally.CircuitOpen),
				fmt.Sprintf("%d", tally.CacheHits),
			})
		}
		fmt.Fprintln(w, renderGrid(
			[]string{"Provider", "Found", "Not Found", "Rejected", "Errors", "Skipped", "Cached"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
		))
	}

	for _, warning := range summary.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderGrid(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
