package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/fingertips/pkg/download"
	"github.com/rubiojr/fingertips/pkg/table"
	"github.com/urfave/cli/v3"
)

// FetchRawCommand creates the fetch-raw command
func FetchRawCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch-raw",
		Usage: "Download the raw export of the configured indicators for the pivot command",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "indicator",
				Usage: "Indicator id to fetch (repeatable, defaults to bulk.indicators)",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Indicators per request (defaults to bulk.batch_size)",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output CSV path (defaults to pivot.input)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			ids := c.StringSlice("indicator")
			if len(ids) == 0 {
				ids = cfg.Bulk.Indicators
			}
			batchSize := c.Int("batch-size")
			if batchSize <= 0 {
				batchSize = cfg.Bulk.BatchSize
			}
			output := c.String("output")
			if output == "" {
				output = cfg.Pivot.Input
			}

			raw, err := download.FetchRaw(ctx, newClient(cfg), ids, batchSize)
			if err != nil {
				return fmt.Errorf("fetching raw data: %w", err)
			}
			if err := table.WriteCSVFile(output, raw); err != nil {
				return fmt.Errorf("saving raw data: %w", err)
			}
			fmt.Printf("Saved %s rows for %d indicators to %s\n", formatNumber(raw.Len()), len(ids), output)
			return nil
		},
	}
}
