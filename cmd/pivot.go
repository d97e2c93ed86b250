package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/fingertips/pkg/pivot"
	"github.com/urfave/cli/v3"
)

// PivotCommand creates the pivot command
func PivotCommand() *cli.Command {
	return &cli.Command{
		Name:  "pivot",
		Usage: "Reshape a raw export into one row per area with the latest value of each indicator",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "input",
				Usage: "Raw CSV path (defaults to pivot.input)",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output CSV path (defaults to pivot.output)",
			},
			&cli.StringFlag{
				Name:  "area-type",
				Usage: "Area Type value to keep (defaults to pivot.area_type)",
			},
			&cli.BoolFlag{
				Name:  "group-by-area-code",
				Usage: "Pick the latest period per area code instead of per area name",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			in, out := cfg.Pivot.Input, cfg.Pivot.Output
			if v := c.String("input"); v != "" {
				in = v
			}
			if v := c.String("output"); v != "" {
				out = v
			}
			opts := pivot.Options{
				AreaType:        cfg.Pivot.AreaType,
				GroupByAreaCode: cfg.Pivot.GroupByAreaCode || c.Bool("group-by-area-code"),
			}
			if v := c.String("area-type"); v != "" {
				opts.AreaType = v
			}

			wide, err := pivot.ProcessFile(ctx, in, out, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s areas and %d columns to %s\n", formatNumber(wide.Len()), len(wide.Header), out)
			return nil
		},
	}
}
