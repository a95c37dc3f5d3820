package sink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dvloznov/ledger-reconciler/internal/pipeline"
)

// TableSink prints every output table as aligned text.
type TableSink struct {
	w io.Writer
}

// NewTableSink creates a TableSink writing to w.
func NewTableSink(w io.Writer) *TableSink {
	return &TableSink{w: w}
}

// Write prints the tables of res one after another.
func (s *TableSink) Write(ctx context.Context, res *pipeline.Result) error {
	fmt.Fprintf(s.w, "Run %s\n", res.RunID)
	for _, t := range Tables(res) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeTable(s.w, t); err != nil {
			return fmt.Errorf("TableSink.Write: %s: %w", t.Title, err)
		}
	}
	return nil
}

func writeTable(w io.Writer, t Table) error {
	fmt.Fprintf(w, "\n%s (%d rows)\n", t.Title, len(t.Rows))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Header, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
