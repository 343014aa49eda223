// Command calibrate replays historical results through Elo and fits the draw
// width per league and globally.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"football-odds-engine/internal/api"
	"football-odds-engine/internal/calibration"
	"football-odds-engine/internal/config"
	"football-odds-engine/internal/history"
	"football-odds-engine/internal/store"
)

type sourceList struct {
	Sources []history.Source `yaml:"sources"`
}

func loadSources(path string) ([]history.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources: %w", err)
	}
	var list sourceList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(list.Sources) == 0 {
		return nil, fmt.Errorf("%s lists no sources", path)
	}
	return list.Sources, nil
}

func printReport(w io.Writer, report calibration.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LEAGUE\tWIDTH\tLOG-LOSS\tBRIER\tACCURACY\tSAMPLES\tDROPPED")
	row := func(name string, res calibration.Result) {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.1f%%\t%s\t%s\n",
			name,
			humanize.FtoaWithDigits(res.OptimalWidth, 1),
			res.LogLoss,
			res.BrierScore,
			res.Accuracy*100,
			humanize.Comma(int64(res.Samples)),
			humanize.Comma(int64(res.Dropped)),
		)
	}
	for _, name := range report.LeagueNames() {
		row(name, report.Leagues[name])
	}
	if report.Global != nil {
		row(calibration.GlobalKey, *report.Global)
	}
	tw.Flush()

	skipped := make([]string, 0, len(report.Skipped))
	for name := range report.Skipped {
		skipped = append(skipped, name)
	}
	sort.Strings(skipped)
	for _, name := range skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", name, report.Skipped[name])
	}
	fmt.Fprintf(w, "run %s, %s\n", report.RunID, humanize.Time(report.CreatedAt))
}

// writeRatings stores each league's end-of-replay Elo ratings in the
// ratings layout of a provider snapshot.
func writeRatings(path string, report calibration.Report) error {
	ratings := make(map[string]map[string]float64, len(report.Leagues))
	for name, res := range report.Leagues {
		ratings[name] = res.Ratings
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(ratings); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeWidths(path string, report calibration.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := store.ExportWidthsYAML(f, report.Widths()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveReport(ctx context.Context, cfg config.Config, report calibration.Report) error {
	db, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	return db.SaveReport(ctx, report)
}

func main() {
	cfg := config.Load()

	sourcesPath := flag.String("sources", "sources.yaml", "YAML file listing league result files or URLs")
	outPath := flag.String("out", cfg.DrawWidthsFile, "write calibrated widths to this YAML file")
	noDB := flag.Bool("no-db", false, "skip storing the report in the database")
	ratingsPath := flag.String("ratings", "", "also write end-of-replay Elo ratings per league to this YAML file")
	flag.Parse()

	if *outPath == "" {
		*outPath = "draw_widths.yaml"
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	sources, err := loadSources(*sourcesPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	client := api.NewClient(cfg.RequestsPerMinute, api.DefaultTimeout)
	leagues, err := history.LoadSources(ctx, client, sources)
	if err != nil {
		log.Fatalf("Loading results: %v", err)
	}

	report, err := calibration.RunAll(ctx, leagues, cfg.TrackerParams(), cfg.WidthRange())
	if err != nil {
		log.Fatalf("Calibration failed: %v", err)
	}
	slog.Info("Calibration complete", "leagues", len(report.Leagues), "elapsed", time.Since(start).Round(time.Millisecond))

	if !*noDB {
		if err := saveReport(ctx, cfg, report); err != nil {
			log.Fatalf("Saving report: %v", err)
		}
	}

	if err := writeWidths(*outPath, report); err != nil {
		log.Fatalf("Writing widths: %v", err)
	}
	if *ratingsPath != "" {
		if err := writeRatings(*ratingsPath, report); err != nil {
			log.Fatalf("Writing ratings: %v", err)
		}
	}

	printReport(os.Stdout, report)
	fmt.Printf("widths written to %s\n", *outPath)
}
