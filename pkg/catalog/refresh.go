package catalog

import (
	"context"
	"fmt"

	"github.com/rubiojr/fingertips/pkg/fingertips"
	"github.com/rubiojr/fingertips/pkg/log"
)

// MetadataSource is the part of the API client the catalog needs.
type MetadataSource interface {
	AvailableData(ctx context.Context) ([]fingertips.Availability, error)
	IndicatorMetadata(ctx context.Context) (map[string]fingertips.IndicatorMetadata, error)
	AreaTypes(ctx context.Context) ([]fingertips.AreaType, error)
}

// Fetch downloads availability, metadata and area types and builds a catalog.
func Fetch(ctx context.Context, src MetadataSource) (*Catalog, error) {
	avail, err := src.AvailableData(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching available data: %w", err)
	}
	meta, err := src.IndicatorMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching indicator metadata: %w", err)
	}
	areaTypes, err := src.AreaTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching area types: %w", err)
	}
	return Build(avail, meta, areaTypes), nil
}

// Refresh fetches a fresh catalog and saves it to the store.
func Refresh(ctx context.Context, src MetadataSource, store *Store) (*Catalog, error) {
	l := log.ForService("catalog")

	c, err := Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := store.Save(c); err != nil {
		return nil, fmt.Errorf("saving helper files: %w", err)
	}
	l.Infof("saved %d indicators and %d area types to %s", len(c.indicators), len(c.areaTypes), store.Dir())
	return c, nil
}
