package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws rows under headers with rounded borders. Rows shorter
// than headers are padded with empty cells.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// padToWidth pads or truncates text to exactly width terminal cells.
// Wide runes count as two cells; truncated text ends in "...".
func padToWidth(s string, width int) string {
	if width <= 0 {
		return s
	}

	current := runewidth.StringWidth(s)
	switch {
	case current > width:
		const ellipsis = "..."
		if width <= len(ellipsis) {
			return ellipsis[:width]
		}
		truncated := runewidth.Truncate(s, width-len(ellipsis), "") + ellipsis
		// A wide rune at the cut can leave the result one cell short
		if w := runewidth.StringWidth(truncated); w < width {
			truncated += strings.Repeat(" ", width-w)
		}
		return truncated
	case current < width:
		return s + strings.Repeat(" ", width-current)
	}
	return s
}

// formatSize renders a byte count for display
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
