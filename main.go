package main

import (
	"context"
	"log"
	"os"

	"github.com/rubiojr/fingertips/cmd"
	"github.com/rubiojr/fingertips/pkg/config"
	flog "github.com/rubiojr/fingertips/pkg/log"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "fingertips",
		Usage: "Browse and download public health indicators from the Fingertips API",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			flog.SetGlobalDebug(c.Bool("debug"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.MetadataCommand(),
			cmd.AreasCommand(),
			cmd.IndicatorsCommand(),
			cmd.DownloadCommand(),
			cmd.FetchRawCommand(),
			cmd.PivotCommand(),
			cmd.HistoryCommand(),
			cmd.WebCommand(),
			cmd.VersionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		log.Fatalf("Failed to get default config path: %v", err)
	}
	return path
}
