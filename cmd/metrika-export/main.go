// Command metrika-export pulls a Yandex Metrika report for a date range
// and writes it as CSV or NDJSON, to stdout or a file, buffered or
// streamed.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"metrika-export/pkg/cache"
	"metrika-export/pkg/client"
	"metrika-export/pkg/daterange"
	"metrika-export/pkg/logging"
	"metrika-export/pkg/output"
	"metrika-export/pkg/query"
	"metrika-export/pkg/quota"
	"metrika-export/pkg/report"
	"metrika-export/pkg/textquery"
	"metrika-export/pkg/upload"
)

const version = "0.1.0"

func main() {
	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "metrika-export: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "metrika-export",
		Usage:   "Export Yandex Metrika reports as CSV or NDJSON",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to configuration file", Value: "config.toml"},
			&cli.StringFlag{Name: "ids", Usage: "Counter id"},
			&cli.StringFlag{Name: "date1", Usage: "Range start (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "date2", Usage: "Range end (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Free-text request to extract missing parameters from"},
			&cli.StringFlag{Name: "preset", Usage: "Report preset name"},
			&cli.StringFlag{Name: "metrics", Usage: "Comma-separated metric list (with --dimensions, overrides --preset)"},
			&cli.StringFlag{Name: "dimensions", Usage: "Comma-separated dimension list"},
			&cli.StringFlag{Name: "filters", Usage: "Filter expression, passed through to the API"},
			&cli.StringFlag{Name: "sort", Usage: "Sort expression, passed through to the API"},
			&cli.StringFlag{Name: "lang", Usage: "Report language"},
			&cli.StringFlag{Name: "token", Usage: "OAuth token (falls back to METRIKA_TOKEN)"},
			&cli.BoolFlag{Name: "split", Usage: "Partition the range into chunks", Value: true},
			&cli.BoolFlag{Name: "weekly", Usage: "Use the weekly partition policy"},
			&cli.IntFlag{Name: "timeout", Usage: "Total time budget in seconds"},
			&cli.IntFlag{Name: "batch-size", Usage: "Rows per page"},
			&cli.IntFlag{Name: "max-rows", Usage: "Row ceiling, 0 = unlimited"},
			&cli.StringFlag{Name: "format", Usage: "Output format: csv or ndjson"},
			&cli.BoolFlag{Name: "stream", Usage: "Stream rows to the destination instead of buffering"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file path (default stdout)"},
			&cli.BoolFlag{Name: "concurrent", Usage: "One request per chunk, in parallel"},
			&cli.BoolFlag{Name: "allow-partial", Usage: "With --concurrent, drop failed chunks instead of aborting"},
			&cli.StringFlag{Name: "redis", Usage: "Redis address for page cache and quota gate"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := DefaultConfig()
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	spec, dr, err := resolveRequest(cmd, cfg)
	if err != nil {
		return err
	}

	c, rdb, err := buildClient(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	format, err := output.ParseFormat(pick(cmd.String("format"), cfg.Extract.Format))
	if err != nil {
		return err
	}

	opts := buildOptions(cmd, cfg)

	if cmd.Bool("stream") {
		return runStreaming(ctx, cmd, c, spec, dr, opts, format)
	}
	return runBuffered(ctx, cmd, cfg, c, spec, dr, opts, format, logger)
}

// resolveRequest merges explicit flags over free-text detection over
// config defaults. Explicit always wins.
func resolveRequest(cmd *cli.Command, cfg *Config) (query.Spec, daterange.Range, error) {
	var detected textquery.Params
	if text := cmd.String("query"); text != "" {
		p, err := textquery.Parse(text)
		if err != nil && cmd.String("date1") == "" {
			return query.Spec{}, daterange.Range{}, err
		}
		if err == nil {
			detected = p
		}
	}

	spec := query.Spec{
		CounterID:  pick(cmd.String("ids"), detected.CounterID),
		Preset:     pick(cmd.String("preset"), detected.Preset),
		Metrics:    query.SplitList(cmd.String("metrics")),
		Dimensions: query.SplitList(cmd.String("dimensions")),
		Filters:    cmd.String("filters"),
		Sort:       cmd.String("sort"),
		Lang:       pick(cmd.String("lang"), detected.Lang, cfg.Extract.Lang),
	}
	if err := spec.Validate(); err != nil {
		return query.Spec{}, daterange.Range{}, err
	}

	d1 := pick(cmd.String("date1"), detected.Date1)
	d2 := pick(cmd.String("date2"), detected.Date2)
	if d1 == "" || d2 == "" {
		return query.Spec{}, daterange.Range{}, fmt.Errorf("date1 and date2 are required (flags or --query text)")
	}
	dr, err := daterange.Parse(d1, d2)
	if err != nil {
		return query.Spec{}, daterange.Range{}, err
	}
	return spec, dr, nil
}

func buildClient(ctx context.Context, cmd *cli.Command, cfg *Config, logger zerolog.Logger) (*client.Client, *redis.Client, error) {
	token := cmd.String("token")
	if token == "" {
		token = os.Getenv("METRIKA_TOKEN")
	}
	if token == "" {
		token = cfg.API.Token
	}

	ccfg := client.DefaultConfig(token)
	if cfg.API.BaseURL != "" {
		ccfg.BaseURL = cfg.API.BaseURL
	}
	if cfg.API.PaceIntervalMS > 0 {
		ccfg.PaceInterval = time.Duration(cfg.API.PaceIntervalMS) * time.Millisecond
	}

	var rdb *redis.Client
	addr := pick(cmd.String("redis"), cfg.Redis.Addr)
	if addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis at %s: %w", addr, err)
		}
		ccfg.Cache = cache.NewManager(rdb)
		ccfg.Quota = quota.NewTracker(rdb, logger)
		if cfg.Redis.CacheTTLSeconds > 0 {
			ccfg.CacheTTL = time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second
		}
	}

	return client.New(ccfg), rdb, nil
}

func buildOptions(cmd *cli.Command, cfg *Config) report.Options {
	opts := report.DefaultOptions()
	opts.Split = cfg.Extract.Split
	if cmd.IsSet("split") {
		opts.Split = cmd.Bool("split")
	}
	if cmd.Bool("weekly") {
		opts.Policy = daterange.PolicyWeekly
	}
	if cfg.Extract.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(cfg.Extract.TimeoutSeconds) * time.Second
	}
	if v := int(cmd.Int("timeout")); v > 0 {
		opts.Timeout = time.Duration(v) * time.Second
	}
	if cfg.Extract.BatchSize > 0 {
		opts.BatchSize = cfg.Extract.BatchSize
	}
	if v := int(cmd.Int("batch-size")); v > 0 {
		opts.BatchSize = v
	}
	opts.MaxRows = cfg.Extract.MaxRows
	if cmd.IsSet("max-rows") {
		opts.MaxRows = int(cmd.Int("max-rows"))
	}
	return opts
}

func runStreaming(ctx context.Context, cmd *cli.Command, c *client.Client, spec query.Spec, dr daterange.Range, opts report.Options, format output.Format) error {
	dst := os.Stdout
	if path := cmd.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		dst = f
	}

	sink := output.NewStreamSink(dst, format)
	e := report.New(c, opts)
	res, err := e.ExtractStream(ctx, spec, dr, sink)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "streamed %d rows in %s\n", res.TotalRows, res.Elapsed.Round(time.Millisecond))
	return nil
}

func runBuffered(ctx context.Context, cmd *cli.Command, cfg *Config, c *client.Client, spec query.Spec, dr daterange.Range, opts report.Options, format output.Format, logger zerolog.Logger) error {
	var res *report.Result
	var err error

	if cmd.Bool("concurrent") {
		policy := report.FailFast
		if cmd.Bool("allow-partial") {
			policy = report.BestEffort
		}
		res, err = report.NewConcurrentRunner(c, opts, policy).Extract(ctx, spec, dr)
	} else {
		res, err = report.New(c, opts).Extract(ctx, spec, dr)
	}
	if err != nil {
		return err
	}

	payload, err := output.MarshalTable(res.Table, format)
	if err != nil {
		return err
	}

	if res.ExcludedChunks > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d chunks excluded from the result\n", res.ExcludedChunks)
	}

	// Large results go to the file host; failure falls back to inline
	// output.
	if cfg.Upload.ThresholdBytes > 0 && len(payload) > cfg.Upload.ThresholdBytes {
		u := upload.New(cfg.Upload.Endpoint)
		url, uerr := u.Upload(ctx, "report."+string(format), payload)
		if uerr == nil {
			fmt.Println(url)
			return nil
		}
		logger.Warn().Err(uerr).Msg("Upload failed, returning the payload inline")
	}

	if path := cmd.String("out"); path != "" {
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "wrote %d rows to %s in %s\n", res.TotalRows, path, res.Elapsed.Round(time.Millisecond))
		return nil
	}

	_, err = os.Stdout.Write(payload)
	return err
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
