package query

import (
	"errors"
	"reflect"
	"testing"

	"metrika-export/pkg/daterange"
)

func testChunk(t *testing.T) daterange.Range {
	t.Helper()
	r, err := daterange.Parse("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return r
}

func TestSpec_Validate(t *testing.T) {
	if err := (Spec{CounterID: "44147844"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if err := (Spec{}).Validate(); !errors.Is(err, ErrMissingCounterID) {
		t.Errorf("Validate() error = %v, want ErrMissingCounterID", err)
	}
	if err := (Spec{CounterID: "   "}).Validate(); !errors.Is(err, ErrMissingCounterID) {
		t.Errorf("Validate() blank id error = %v, want ErrMissingCounterID", err)
	}
}

func TestSpec_ParamsPresetMode(t *testing.T) {
	s := Spec{CounterID: "44147844", Preset: "conversion", Lang: "ru"}
	v := s.Params(testChunk(t), 10000, 1)

	want := map[string]string{
		"ids":    "44147844",
		"lang":   "ru",
		"date1":  "2024-01-01",
		"date2":  "2024-01-31",
		"preset": "conversion",
		"limit":  "10000",
		"offset": "1",
	}
	for k, w := range want {
		if got := v.Get(k); got != w {
			t.Errorf("param %s = %q, want %q", k, got, w)
		}
	}
	if v.Has("metrics") || v.Has("dimensions") {
		t.Error("preset mode must not emit manual column params")
	}
}

func TestSpec_ParamsDefaults(t *testing.T) {
	v := Spec{CounterID: "1"}.Params(testChunk(t), 100, 1)
	if got := v.Get("preset"); got != DefaultPreset {
		t.Errorf("preset = %q, want %q", got, DefaultPreset)
	}
	if got := v.Get("lang"); got != DefaultLang {
		t.Errorf("lang = %q, want %q", got, DefaultLang)
	}
}

func TestSpec_ParamsManualOverridesPreset(t *testing.T) {
	s := Spec{
		CounterID:  "44147844",
		Preset:     "traffic",
		Metrics:    []string{"ym:s:visits", "ym:s:users"},
		Dimensions: []string{"ym:s:date"},
		Filters:    "ym:s:isNewUser=='Yes'",
		Sort:       "-ym:s:visits",
	}
	v := s.Params(testChunk(t), 500, 1001)

	if v.Has("preset") {
		t.Error("manual mode must drop the preset param")
	}
	if got := v.Get("metrics"); got != "ym:s:visits,ym:s:users" {
		t.Errorf("metrics = %q", got)
	}
	if got := v.Get("dimensions"); got != "ym:s:date" {
		t.Errorf("dimensions = %q", got)
	}
	if got := v.Get("filters"); got != "ym:s:isNewUser=='Yes'" {
		t.Errorf("filters = %q", got)
	}
	if got := v.Get("sort"); got != "-ym:s:visits" {
		t.Errorf("sort = %q", got)
	}
	if got := v.Get("offset"); got != "1001" {
		t.Errorf("offset = %q, want 1001", got)
	}
}

func TestSpec_ParamsMetricsAloneIsNotManual(t *testing.T) {
	// Only one of metrics/dimensions set: preset mode stays active.
	s := Spec{CounterID: "1", Metrics: []string{"ym:s:visits"}}
	v := s.Params(testChunk(t), 100, 1)
	if !v.Has("preset") {
		t.Error("metrics without dimensions must keep preset mode")
	}
	if v.Has("metrics") {
		t.Error("incomplete manual config leaked into params")
	}
}

func TestKnownPreset(t *testing.T) {
	for _, p := range []string{"traffic", "sources_summary", "age_gender"} {
		if !KnownPreset(p) {
			t.Errorf("KnownPreset(%q) = false", p)
		}
	}
	if KnownPreset("nonsense") {
		t.Error("KnownPreset(nonsense) = true")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"ym:s:visits,ym:s:users", []string{"ym:s:visits", "ym:s:users"}},
		{" ym:s:visits , ,ym:s:users, ", []string{"ym:s:visits", "ym:s:users"}},
		{"", nil},
		{"  ", nil},
		{"single", []string{"single"}},
	}

	for _, tt := range tests {
		if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
