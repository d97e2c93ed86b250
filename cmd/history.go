package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/fingertips/pkg/download"
	"github.com/urfave/cli/v3"
)

// HistoryCommand creates the history command
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent download batches",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of batches to show",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "details",
				Usage: "Show the outcome of every indicator",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			h, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := h.Close(); err != nil {
					fmt.Printf("Warning: failed to close history database: %v\n", err)
				}
			}()

			reports, err := h.Recent(c.Int("limit"))
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}
			if len(reports) == 0 {
				fmt.Println(metaStyle.Render("No downloads recorded yet."))
				return nil
			}

			fmt.Println(titleStyle.Render("Recent downloads"))
			for _, r := range reports {
				fmt.Println()
				fmt.Printf("%s  area type %s  %s\n",
					headerStyle.Render(formatTime(r.StartedAt.Local())),
					r.AreaTypeID,
					metaStyle.Render(r.ID))
				if c.Bool("details") {
					printReport(r)
					continue
				}
				fmt.Printf("  %d indicators, %d failed, took %s\n",
					len(r.Outcomes), r.Count(download.StatusFailed), formatDuration(r.Duration()))
			}
			return nil
		},
	}
}
