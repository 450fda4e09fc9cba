package report

import (
	"reflect"
	"testing"

	"metrika-export/pkg/client"
)

func TestAssembler_ColumnsFromEcho(t *testing.T) {
	echo := client.QueryEcho{
		Dimensions: []string{"ym:s:date", "ym:s:trafficSource"},
		Metrics:    []string{"ym:s:visits", "ym:s:users", "ym:s:pageviews"},
	}
	asm := NewAssembler(echo, 0)

	raw := client.RawRow{
		Dimensions: []client.DimensionValue{{Name: "2024-01-01"}, {Name: "direct"}},
		Metrics:    client.MetricValues{Flat: []*float64{fptr(10), fptr(8), fptr(31)}},
	}
	row := asm.Row(raw)

	want := []string{"date", "trafficSource", "visits", "users", "pageviews"}
	if got := asm.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
	if row["date"] != "2024-01-01" || row["trafficSource"] != "direct" {
		t.Errorf("dimension values misplaced: %v", row)
	}
	if *(row["visits"].(*float64)) != 10 {
		t.Errorf("visits = %v, want 10", row["visits"])
	}
}

func TestAssembler_PlaceholderColumns(t *testing.T) {
	echo := client.QueryEcho{Dimensions: []string{"ym:s:date"}, Metrics: []string{"ym:s:visits"}}
	asm := NewAssembler(echo, 0)

	raw := client.RawRow{
		Dimensions: []client.DimensionValue{{Name: "2024-01-01"}, {Name: "extra"}},
		Metrics:    client.MetricValues{Flat: []*float64{fptr(1), fptr(2)}},
	}
	row := asm.Row(raw)

	want := []string{"date", "dimension_1", "visits", "metric_1"}
	if got := asm.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
	if row["dimension_1"] != "extra" {
		t.Errorf("placeholder dimension = %v", row["dimension_1"])
	}
	if *(row["metric_1"].(*float64)) != 2 {
		t.Errorf("placeholder metric = %v", row["metric_1"])
	}
}

func TestAssembler_NestedMetricsPeriodSelection(t *testing.T) {
	echo := client.QueryEcho{Dimensions: []string{"ym:s:date"}, Metrics: []string{"ym:s:visits"}}

	raw := client.RawRow{
		Dimensions: []client.DimensionValue{{Name: "2024-01-01"}},
		Metrics: client.MetricValues{
			Periods: [][]*float64{{fptr(100)}, {fptr(200)}},
			Nested:  true,
		},
	}

	first := NewAssembler(echo, 0).Row(raw)
	if *(first["visits"].(*float64)) != 100 {
		t.Errorf("period 0 visits = %v, want 100", first["visits"])
	}

	second := NewAssembler(echo, 1).Row(raw)
	if *(second["visits"].(*float64)) != 200 {
		t.Errorf("period 1 visits = %v, want 200", second["visits"])
	}
}

func TestAssembler_ShortRowsAlignUnderSchema(t *testing.T) {
	echo := client.QueryEcho{
		Dimensions: []string{"ym:s:regionCityName"},
		Metrics:    []string{"ym:s:visits", "ym:s:bounceRate"},
	}
	asm := NewAssembler(echo, 0)

	full := asm.Row(client.RawRow{
		Dimensions: []client.DimensionValue{{Name: "Moscow"}},
		Metrics:    client.MetricValues{Flat: []*float64{fptr(1), fptr(2)}},
	})
	short := asm.Row(client.RawRow{
		Dimensions: []client.DimensionValue{{Name: "Kazan"}},
		Metrics:    client.MetricValues{Flat: []*float64{fptr(3)}},
	})

	if len(asm.Columns()) != 3 {
		t.Fatalf("Columns() = %v, want 3 columns", asm.Columns())
	}
	if _, ok := full["bounceRate"]; !ok {
		t.Error("full row lost its second metric")
	}
	if _, ok := short["bounceRate"]; ok {
		t.Error("short row invented a value for a missing metric")
	}
}

func TestAssembler_Table(t *testing.T) {
	echo := client.QueryEcho{Dimensions: []string{"ym:s:trafficSource"}, Metrics: []string{"ym:s:visits"}}
	raw := []client.RawRow{
		{Dimensions: []client.DimensionValue{{Name: "direct"}}, Metrics: client.MetricValues{Flat: []*float64{fptr(5)}}},
		{Dimensions: []client.DimensionValue{{Name: "organic"}}, Metrics: client.MetricValues{Flat: []*float64{fptr(7)}}},
	}

	table := NewAssembler(echo, 0).Table(raw)
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	if table.Rows[0]["trafficSource"] != "direct" || table.Rows[1]["trafficSource"] != "organic" {
		t.Error("row order not preserved")
	}
	if want := []string{"trafficSource", "visits"}; !reflect.DeepEqual(table.Columns, want) {
		t.Errorf("Columns = %v, want %v", table.Columns, want)
	}
}
