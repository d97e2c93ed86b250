package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// IndicatorsCommand creates the indicators command
func IndicatorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "indicators",
		Usage: "List the indicators of an area type grouped by data source",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "area-type",
				Usage:    "Area type id (see the areas command)",
				Required: true,
			},
			refreshFlag(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(ctx, cfg, c.Bool("refresh"))
			if err != nil {
				return err
			}
			id := c.String("area-type")
			if !cat.HasAreaType(id) {
				return fmt.Errorf("area type %s has no indicators", id)
			}
			at, _ := cat.AreaType(id)
			printGroups(at, cat.Groups(id))
			return nil
		},
	}
}
