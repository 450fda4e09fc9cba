package report

import (
	"fmt"
	"strings"

	"metrika-export/pkg/client"
)

// Row is one assembled report row: column name to value. Dimension
// values are strings, metric values *float64 (nil when the API returned
// null).
type Row map[string]any

// Table is an ordered set of rows under one column schema: dimension
// columns first, then metric columns, both in query-echo order.
type Table struct {
	Columns []string
	Rows    []Row
}

// Assembler maps raw API rows onto the column schema named by a query
// echo. Echoed names carry namespace prefixes ("ym:s:date"); only the
// trailing segment becomes the column name. Rows with more values than
// the echo names get dimension_i / metric_j placeholder columns.
type Assembler struct {
	dimNames []string
	metNames []string
	period   int
	maxDims  int
	maxMets  int
}

// NewAssembler builds an assembler from a query echo. period selects
// which value set to read from multi-period metric responses; single-
// period extractions pass 0.
func NewAssembler(echo client.QueryEcho, period int) *Assembler {
	return &Assembler{
		dimNames: trailingSegments(echo.Dimensions),
		metNames: trailingSegments(echo.Metrics),
		period:   period,
		maxDims:  len(echo.Dimensions),
		maxMets:  len(echo.Metrics),
	}
}

// Row assembles one raw row. Widens the schema when the row carries
// more values than the echo named.
func (a *Assembler) Row(raw client.RawRow) Row {
	row := make(Row, len(raw.Dimensions)+a.maxMets)

	for i, dim := range raw.Dimensions {
		row[a.dimColumn(i)] = dim.Name
	}
	if n := len(raw.Dimensions); n > a.maxDims {
		a.maxDims = n
	}

	values := raw.Metrics.Values(a.period)
	for j, val := range values {
		row[a.metColumn(j)] = val
	}
	if n := len(values); n > a.maxMets {
		a.maxMets = n
	}

	return row
}

// Rows assembles a batch in order.
func (a *Assembler) Rows(raw []client.RawRow) []Row {
	rows := make([]Row, len(raw))
	for i, r := range raw {
		rows[i] = a.Row(r)
	}
	return rows
}

// Columns returns the schema covering every row assembled so far:
// dimensions then metrics, echo order, placeholders last.
func (a *Assembler) Columns() []string {
	cols := make([]string, 0, a.maxDims+a.maxMets)
	for i := 0; i < a.maxDims; i++ {
		cols = append(cols, a.dimColumn(i))
	}
	for j := 0; j < a.maxMets; j++ {
		cols = append(cols, a.metColumn(j))
	}
	return cols
}

// Table assembles a complete table from merged rows.
func (a *Assembler) Table(raw []client.RawRow) *Table {
	rows := a.Rows(raw)
	return &Table{Columns: a.Columns(), Rows: rows}
}

func (a *Assembler) dimColumn(i int) string {
	if i < len(a.dimNames) {
		return a.dimNames[i]
	}
	return fmt.Sprintf("dimension_%d", i)
}

func (a *Assembler) metColumn(j int) string {
	if j < len(a.metNames) {
		return a.metNames[j]
	}
	return fmt.Sprintf("metric_%d", j)
}

func trailingSegments(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		parts := strings.Split(n, ":")
		out[i] = parts[len(parts)-1]
	}
	return out
}
