// Package output serializes report tables as CSV or NDJSON, either
// buffered in one shot or streamed page by page. Both paths run through
// the same sink, so buffered and streamed output are byte-identical for
// the same rows and format.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"metrika-export/pkg/report"
)

// Format selects the serialization.
type Format string

const (
	// FormatCSV writes delimited text with a single header line.
	FormatCSV Format = "csv"

	// FormatNDJSON writes one JSON object per line, no header.
	FormatNDJSON Format = "ndjson"
)

// ParseFormat resolves a user-supplied format name. "json" is accepted
// as an alias for ndjson.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "csv", "":
		return FormatCSV, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	default:
		return "", fmt.Errorf("output: unknown format %q", s)
	}
}

// StreamSink writes rows as they arrive, holding no more than one
// batch in memory. The CSV header is written exactly once, by Begin.
// Implements report.RowSink.
type StreamSink struct {
	format  Format
	w       io.Writer
	csv     *csv.Writer
	columns []string
	began   bool
}

// NewStreamSink creates a sink writing to w.
func NewStreamSink(w io.Writer, format Format) *StreamSink {
	s := &StreamSink{format: format, w: w}
	if format == FormatCSV {
		s.csv = csv.NewWriter(w)
	}
	return s
}

// Begin fixes the column schema. For CSV it writes the header line;
// NDJSON has no header. Calling Begin twice is an error.
func (s *StreamSink) Begin(columns []string) error {
	if s.began {
		return fmt.Errorf("output: Begin called twice")
	}
	s.began = true
	s.columns = columns

	if s.format == FormatCSV {
		if err := s.csv.Write(columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	return nil
}

// WriteRows serializes one batch in order.
func (s *StreamSink) WriteRows(rows []report.Row) error {
	if !s.began {
		return fmt.Errorf("output: WriteRows before Begin")
	}

	for _, row := range rows {
		var err error
		if s.format == FormatCSV {
			err = s.writeCSVRow(row)
		} else {
			err = s.writeJSONRow(row)
		}
		if err != nil {
			return err
		}
	}
	if s.format == FormatCSV {
		s.csv.Flush()
		return s.csv.Error()
	}
	return nil
}

// Close flushes buffered output. It does not close the underlying
// writer.
func (s *StreamSink) Close() error {
	if s.csv != nil {
		s.csv.Flush()
		return s.csv.Error()
	}
	return nil
}

func (s *StreamSink) writeCSVRow(row report.Row) error {
	record := make([]string, len(s.columns))
	for i, col := range s.columns {
		record[i] = formatValue(row[col])
	}
	return s.csv.Write(record)
}

// writeJSONRow emits the row's present columns in schema order, one
// object per line.
func (s *StreamSink) writeJSONRow(row report.Row) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, col := range s.columns {
		v, ok := row[col]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(col)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString("}\n")

	_, err := s.w.Write(buf.Bytes())
	return err
}

// formatValue renders a cell for CSV. Missing values and JSON nulls
// become empty cells.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *float64:
		if val == nil {
			return ""
		}
		return strconv.FormatFloat(*val, 'f', -1, 64)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// WriteTable serializes a fully assembled table through the streaming
// sink in one pass.
func WriteTable(w io.Writer, table *report.Table, format Format) error {
	sink := NewStreamSink(w, format)
	if err := sink.Begin(table.Columns); err != nil {
		return err
	}
	if err := sink.WriteRows(table.Rows); err != nil {
		return err
	}
	return sink.Close()
}

// MarshalTable serializes a table into memory.
func MarshalTable(table *report.Table, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, table, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
