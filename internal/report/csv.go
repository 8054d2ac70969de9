package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Kind names one of the four audit streams the original bot produced
// per run: account snapshots, order submissions, prophecy (strategy
// decision) records, and trader (buy/sell execution) records.
type Kind string

const (
	KindAccount  Kind = "account"
	KindOrder    Kind = "order"
	KindProphecy Kind = "prophecy"
	KindTrader   Kind = "trader"
)

// FileName builds the "<prefix>_<kind>_<start>_<end>_<wallTimestamp>.csv"
// name the original Logger used for its per-run report files, so the
// Excel assembler can later recognize and group them by substring.
func FileName(prefix string, kind Kind, start, end, wallTimestamp time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s.csv",
		prefix, kind,
		start.Format("20060102"),
		end.Format("20060102"),
		wallTimestamp.Format("20060102T150405"))
}

// Writer appends comma-separated rows to a single CSV sink, writing
// the header once on the first row.
type Writer struct {
	sink    *Sink
	header  []string
	started bool
}

// NewWriter opens (or reuses) the sink at dir/name and returns a
// Writer that will emit header on the first WriteRow call.
func NewWriter(reg *SinkRegistry, dir, name string, header []string) (*Writer, error) {
	sink, err := reg.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	return &Writer{sink: sink, header: header}, nil
}

// WriteRow writes one row of values, quoting any field containing a
// comma or quote character.
func (w *Writer) WriteRow(values []string) error {
	if !w.started {
		w.started = true
		if err := w.sink.WriteLine(joinCSV(w.header)); err != nil {
			return err
		}
	}
	return w.sink.WriteLine(joinCSV(values))
}

func joinCSV(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		if strings.ContainsAny(f, ",\"\n") {
			f = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		escaped[i] = f
	}
	return strings.Join(escaped, ",")
}
