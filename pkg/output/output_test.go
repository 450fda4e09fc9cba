package output

import (
	"bytes"
	"strings"
	"testing"

	"metrika-export/pkg/report"
)

func fptr(v float64) *float64 { return &v }

func sampleTable() *report.Table {
	return &report.Table{
		Columns: []string{"trafficSource", "visits", "bounceRate"},
		Rows: []report.Row{
			{"trafficSource": "direct", "visits": fptr(120), "bounceRate": fptr(14.5)},
			{"trafficSource": "organic", "visits": fptr(80), "bounceRate": nil},
			{"trafficSource": "social", "visits": fptr(3)},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"", FormatCSV, false},
		{"ndjson", FormatNDJSON, false},
		{"json", FormatNDJSON, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteTable_CSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, sampleTable(), FormatCSV); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3 rows:\n%s", len(lines), buf.String())
	}
	if lines[0] != "trafficSource,visits,bounceRate" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "direct,120,14.5" {
		t.Errorf("row 1 = %q", lines[1])
	}
	// Null metric and missing column both render empty.
	if lines[2] != "organic,80," {
		t.Errorf("row 2 = %q", lines[2])
	}
	if lines[3] != "social,3," {
		t.Errorf("row 3 = %q", lines[3])
	}
}

func TestWriteTable_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, sampleTable(), FormatNDJSON); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (no header):\n%s", len(lines), buf.String())
	}
	if lines[0] != `{"trafficSource":"direct","visits":120,"bounceRate":14.5}` {
		t.Errorf("row 1 = %s", lines[0])
	}
	if lines[1] != `{"trafficSource":"organic","visits":80,"bounceRate":null}` {
		t.Errorf("row 2 = %s", lines[1])
	}
	// Missing columns are omitted, not nulled.
	if lines[2] != `{"trafficSource":"social","visits":3}` {
		t.Errorf("row 3 = %s", lines[2])
	}
}

func TestStreamSink_HeaderWrittenOnce(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStreamSink(&buf, FormatCSV)

	table := sampleTable()
	if err := sink.Begin(table.Columns); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	// Flush in three separate batches.
	for _, row := range table.Rows {
		if err := sink.WriteRows([]report.Row{row}); err != nil {
			t.Fatalf("WriteRows() error = %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := strings.Count(buf.String(), "trafficSource,visits,bounceRate"); got != 1 {
		t.Errorf("header appears %d times, want 1", got)
	}
	if err := sink.Begin(table.Columns); err == nil {
		t.Error("second Begin() accepted")
	}
}

func TestStreamSink_RequiresBegin(t *testing.T) {
	sink := NewStreamSink(&bytes.Buffer{}, FormatCSV)
	if err := sink.WriteRows(sampleTable().Rows); err == nil {
		t.Error("WriteRows() before Begin() accepted")
	}
}

func TestStreamedAndBufferedAreByteIdentical(t *testing.T) {
	table := sampleTable()

	for _, format := range []Format{FormatCSV, FormatNDJSON} {
		buffered, err := MarshalTable(table, format)
		if err != nil {
			t.Fatalf("%s: MarshalTable() error = %v", format, err)
		}

		var streamed bytes.Buffer
		sink := NewStreamSink(&streamed, format)
		if err := sink.Begin(table.Columns); err != nil {
			t.Fatalf("%s: Begin() error = %v", format, err)
		}
		for _, row := range table.Rows {
			if err := sink.WriteRows([]report.Row{row}); err != nil {
				t.Fatalf("%s: WriteRows() error = %v", format, err)
			}
		}
		if err := sink.Close(); err != nil {
			t.Fatalf("%s: Close() error = %v", format, err)
		}

		if !bytes.Equal(buffered, streamed.Bytes()) {
			t.Errorf("%s: buffered and streamed output differ:\n%s\n---\n%s", format, buffered, streamed.Bytes())
		}
	}
}
