package report

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"vopt/internal/plan"
)

// Entry records the outcome of one processed file.
type Entry struct {
	Name        string
	Action      plan.Action
	SourceBytes int64
	OutputBytes int64
}

// Summary aggregates a batch run.
type Summary struct {
	Entries []Entry

	Skipped   int // already in ledger
	Retryable int // unparsable metadata, retried next run
	Failed    int // external tool failures
}

// Add records a processed file.
func (s *Summary) Add(entry Entry) {
	s.Entries = append(s.Entries, entry)
}

// SourceTotal returns the total source bytes of processed files.
func (s Summary) SourceTotal() int64 {
	var total int64
	for _, entry := range s.Entries {
		total += entry.SourceBytes
	}
	return total
}

// OutputTotal returns the total output bytes of processed files.
func (s Summary) OutputTotal() int64 {
	var total int64
	for _, entry := range s.Entries {
		total += entry.OutputBytes
	}
	return total
}

// Render produces the end-of-batch size table.
func Render(s Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"File", "Action", "Source", "Output", "Delta"})

	for _, entry := range s.Entries {
		tw.AppendRow(table.Row{
			entry.Name,
			string(entry.Action),
			humanize.IBytes(uint64(entry.SourceBytes)),
			humanize.IBytes(uint64(entry.OutputBytes)),
			formatDelta(entry.SourceBytes - entry.OutputBytes),
		})
	}
	tw.AppendFooter(table.Row{
		"total",
		fmt.Sprintf("%d processed", len(s.Entries)),
		humanize.IBytes(uint64(s.SourceTotal())),
		humanize.IBytes(uint64(s.OutputTotal())),
		formatDelta(s.SourceTotal() - s.OutputTotal()),
	})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func formatDelta(saved int64) string {
	if saved < 0 {
		return "+" + humanize.IBytes(uint64(-saved))
	}
	return "-" + humanize.IBytes(uint64(saved))
}
