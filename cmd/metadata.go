package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/fingertips/pkg/catalog"
	"github.com/urfave/cli/v3"
)

// MetadataCommand creates the metadata command
func MetadataCommand() *cli.Command {
	return &cli.Command{
		Name:  "metadata",
		Usage: "Rebuild the indicator helper files from the Fingertips API",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store := catalog.NewStore(cfg.HelpersDir())
			cat, err := catalog.Refresh(ctx, newClient(cfg), store)
			if err != nil {
				return fmt.Errorf("refreshing metadata: %w", err)
			}
			fmt.Printf("Saved %d indicators across %d area types to %s\n",
				len(cat.Indicators()), len(cat.SelectableAreaTypes()), store.Dir())
			return nil
		},
	}
}
