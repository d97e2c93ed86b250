package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rubiojr/fingertips/pkg/catalog"
	"github.com/rubiojr/fingertips/pkg/config"
	"github.com/rubiojr/fingertips/pkg/fingertips"
	"github.com/rubiojr/fingertips/pkg/log"
	"github.com/rubiojr/fingertips/pkg/storage"
	"github.com/urfave/cli/v3"
)

// refreshFlag is shared by the commands that read the catalog.
func refreshFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "refresh",
		Usage: "Rebuild the helper files from the API before running",
		Value: false,
	}
}

// newClient creates a Fingertips API client from the configuration
func newClient(cfg *config.Config) *fingertips.Client {
	return fingertips.NewClient(cfg.APIURL, fingertips.WithTimeout(cfg.HTTPTimeout.Duration))
}

// loadCatalog returns the indicator catalog. With refresh set it is rebuilt
// from the API; if that fails and helper files exist they are used instead.
// Without refresh the helper files are read and, when missing, rebuilt.
func loadCatalog(ctx context.Context, cfg *config.Config, refresh bool) (*catalog.Catalog, error) {
	l := log.ForService("catalog")
	store := catalog.NewStore(cfg.HelpersDir())

	if !refresh {
		c, err := store.Load()
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, catalog.ErrNoHelpers) {
			return nil, fmt.Errorf("loading helper files: %w", err)
		}
		l.Infof("helper files not found in %s, fetching metadata", store.Dir())
	}

	c, err := catalog.Refresh(ctx, newClient(cfg), store)
	if err == nil {
		return c, nil
	}
	if !store.Exists() {
		return nil, fmt.Errorf("building indicator catalog: %w", err)
	}
	l.Warnf("refreshing metadata failed, using cached helper files: %v", err)
	c, loadErr := store.Load()
	if loadErr != nil {
		return nil, fmt.Errorf("loading helper files: %w", loadErr)
	}
	return c, nil
}

// openHistory opens the batch history database configured in cfg
func openHistory(cfg *config.Config) (*storage.History, error) {
	h, err := storage.Open(cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return h, nil
}

func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
