package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
)

// AreasCommand creates the areas command
func AreasCommand() *cli.Command {
	return &cli.Command{
		Name:  "areas",
		Usage: "List area types that have at least one indicator",
		Flags: []cli.Flag{
			refreshFlag(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Include area types without indicators",
				Value: false,
			},
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
			areaTypes := cat.SelectableAreaTypes()
			if c.Bool("all") {
				areaTypes = cat.AreaTypes()
			}
			printAreaTypes(cat, areaTypes)
			return nil
		},
	}
}
