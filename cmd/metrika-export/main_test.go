package main

import (
	"context"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"metrika-export/pkg/daterange"
)

// parseArgs runs the app with a capturing action so flag parsing uses
// the real flag definitions.
func parseArgs(t *testing.T, args ...string) *cli.Command {
	t.Helper()

	app := newApp()
	var captured *cli.Command
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		captured = cmd
		return nil
	}

	argv := append([]string{"metrika-export"}, args...)
	if err := app.Run(context.Background(), argv); err != nil {
		t.Fatalf("Run(%v) error = %v", args, err)
	}
	return captured
}

func TestResolveRequest_ExplicitFlags(t *testing.T) {
	cmd := parseArgs(t,
		"--ids", "44147844",
		"--date1", "2024-01-01",
		"--date2", "2024-03-31",
		"--preset", "conversion",
		"--lang", "ru",
	)

	spec, dr, err := resolveRequest(cmd, DefaultConfig())
	if err != nil {
		t.Fatalf("resolveRequest() error = %v", err)
	}
	if spec.CounterID != "44147844" || spec.Preset != "conversion" || spec.Lang != "ru" {
		t.Errorf("spec = %+v", spec)
	}
	if dr.Days() != 90 {
		t.Errorf("Days() = %d, want 90", dr.Days())
	}
}

func TestResolveRequest_FreeTextFillsGaps(t *testing.T) {
	cmd := parseArgs(t,
		"--query", "отчет по конверсиям по счётчику 44147844 с 2024-01-01 по 2024-03-31",
	)

	spec, _, err := resolveRequest(cmd, DefaultConfig())
	if err != nil {
		t.Fatalf("resolveRequest() error = %v", err)
	}
	if spec.CounterID != "44147844" {
		t.Errorf("CounterID = %q", spec.CounterID)
	}
	if spec.Preset != "conversion" {
		t.Errorf("Preset = %q", spec.Preset)
	}
}

func TestResolveRequest_ExplicitBeatsFreeText(t *testing.T) {
	cmd := parseArgs(t,
		"--ids", "99999999",
		"--preset", "traffic",
		"--query", "отчет по конверсиям по счётчику 44147844 с 2024-01-01 по 2024-03-31",
	)

	spec, _, err := resolveRequest(cmd, DefaultConfig())
	if err != nil {
		t.Fatalf("resolveRequest() error = %v", err)
	}
	if spec.CounterID != "99999999" {
		t.Errorf("CounterID = %q, explicit flag must win", spec.CounterID)
	}
	if spec.Preset != "traffic" {
		t.Errorf("Preset = %q, explicit flag must win", spec.Preset)
	}
}

func TestResolveRequest_MissingDates(t *testing.T) {
	cmd := parseArgs(t, "--ids", "44147844")
	if _, _, err := resolveRequest(cmd, DefaultConfig()); err == nil {
		t.Error("resolveRequest() accepted a request without dates")
	}
}

func TestResolveRequest_MissingCounter(t *testing.T) {
	cmd := parseArgs(t, "--date1", "2024-01-01", "--date2", "2024-01-31")
	if _, _, err := resolveRequest(cmd, DefaultConfig()); err == nil {
		t.Error("resolveRequest() accepted a request without a counter id")
	}
}

func TestBuildOptions(t *testing.T) {
	cmd := parseArgs(t,
		"--timeout", "120",
		"--batch-size", "500",
		"--max-rows", "1000",
		"--split=false",
		"--weekly",
	)

	opts := buildOptions(cmd, DefaultConfig())
	if opts.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v, want 120s", opts.Timeout)
	}
	if opts.BatchSize != 500 {
		t.Errorf("BatchSize = %d, want 500", opts.BatchSize)
	}
	if opts.MaxRows != 1000 {
		t.Errorf("MaxRows = %d, want 1000", opts.MaxRows)
	}
	if opts.Split {
		t.Error("Split flag not honored")
	}
	if opts.Policy != daterange.PolicyWeekly {
		t.Error("weekly policy not selected")
	}
}

func TestBuildOptions_ConfigDefaults(t *testing.T) {
	cmd := parseArgs(t)
	cfg := DefaultConfig()
	cfg.Extract.BatchSize = 2500
	cfg.Extract.TimeoutSeconds = 30

	opts := buildOptions(cmd, cfg)
	if opts.BatchSize != 2500 {
		t.Errorf("BatchSize = %d, want config value 2500", opts.BatchSize)
	}
	if opts.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", opts.Timeout)
	}
	if !opts.Split {
		t.Error("Split should default to the config value")
	}
}

func TestPick(t *testing.T) {
	if got := pick("", "second", "third"); got != "second" {
		t.Errorf("pick() = %q, want second", got)
	}
	if got := pick("", ""); got != "" {
		t.Errorf("pick() = %q, want empty", got)
	}
}
