package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/fingertips/pkg/catalog"
	"github.com/rubiojr/fingertips/pkg/config"
	"github.com/rubiojr/fingertips/pkg/download"
	"github.com/rubiojr/fingertips/pkg/log"
	"github.com/rubiojr/fingertips/pkg/table"
	"github.com/urfave/cli/v3"
)

// DownloadCommand creates the download command
func DownloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download indicator data for one area type",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "area-type",
				Usage:    "Area type id (see the areas command)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "indicator",
				Usage: "Indicator id to download (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Download every indicator available for the area type",
				Value: false,
			},
			&cli.BoolFlag{
				Name:  "combine",
				Usage: "Write a single combined file instead of one file per indicator",
				Value: false,
			},
			&cli.BoolFlag{
				Name:  "keep-latest",
				Usage: "Keep only the rows of the latest time period",
				Value: false,
			},
			&cli.BoolFlag{
				Name:  "drop-empty-columns",
				Usage: "Remove columns that are empty in every row",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: csv or xlsx (defaults to output_format from the config)",
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Directory for the output files (defaults to <data_dir>/processed)",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the batch in the history database",
				Value: false,
			},
			refreshFlag(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runDownload(ctx, c)
		},
	}
}

func runDownload(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(ctx, cfg, c.Bool("refresh"))
	if err != nil {
		return err
	}

	format, err := table.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("invalid output_format in config: %w", err)
	}

	sel := download.Selection{
		AreaTypeID:   c.String("area-type"),
		IndicatorIDs: c.StringSlice("indicator"),
		Options: download.Options{
			Combine:          c.Bool("combine"),
			KeepLatest:       c.Bool("keep-latest"),
			DropEmptyColumns: c.Bool("drop-empty-columns"),
			Format:           table.Format(c.String("format")),
		},
	}
	if c.Bool("all") {
		sel.IndicatorIDs = cat.IndicatorIDs(sel.AreaTypeID)
	}

	outputDir := c.String("output-dir")
	if outputDir == "" {
		outputDir = cfg.ProcessedDir()
	}

	d := download.New(newClient(cfg), cat, outputDir,
		download.WithDefaultFormat(format),
		download.WithObserver(progressPrinter()),
	)
	report, err := d.Download(ctx, sel)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	fmt.Println()
	printReport(report)

	if !c.Bool("no-history") {
		recordHistory(cfg, report)
	}
	if report.Failed() {
		return fmt.Errorf("%d of %d indicators failed", report.Count(download.StatusFailed), len(report.Outcomes))
	}
	return nil
}

func progressPrinter() download.Observer {
	return func(e download.Event) {
		if e.Type != download.EventIndicatorStart {
			return
		}
		fmt.Println(metaStyle.Render(fmt.Sprintf("[%d/%d] %s", e.Index, e.Total, catalog.CleanName(e.Outcome.Name))))
	}
}

// recordHistory stores the batch; failures only warn since the files are
// already written.
func recordHistory(cfg *config.Config, report *download.Report) {
	l := log.ForService("storage")
	h, err := openHistory(cfg)
	if err != nil {
		l.Warnf("%v", err)
		return
	}
	defer func() {
		if err := h.Close(); err != nil {
			l.Warnf("closing history database: %v", err)
		}
	}()
	if err := h.Record(report); err != nil {
		l.Warnf("recording batch %s: %v", report.ID, err)
	}
}
