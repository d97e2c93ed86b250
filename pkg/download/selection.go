package download

import (
	"fmt"

	"github.com/rubiojr/fingertips/pkg/table"
)

// Options are the per-batch processing switches.
type Options struct {
	Combine          bool         `json:"combine"`
	KeepLatest       bool         `json:"keep_latest"`
	DropEmptyColumns bool         `json:"drop_empty_columns"`
	Format           table.Format `json:"format,omitempty"`
}

// Selection is what the user picked: one area type and an ordered list of
// indicators available for it.
type Selection struct {
	AreaTypeID   string   `json:"area_type_id"`
	IndicatorIDs []string `json:"indicator_ids"`
	Options      Options  `json:"options"`
}

// WithAreaType returns a selection for a new area type. Indicator choices are
// cleared since they belong to the previous area type.
func (s Selection) WithAreaType(id string) Selection {
	if id == s.AreaTypeID {
		return s
	}
	s.AreaTypeID = id
	s.IndicatorIDs = nil
	return s
}

// Validate checks the selection without touching the network. Indicators
// not available for the area type are rejected too.
func (s Selection) Validate(cat Catalog) error {
	if s.AreaTypeID == "" {
		return ErrNoAreaType
	}
	if cat != nil && !cat.HasAreaType(s.AreaTypeID) {
		return fmt.Errorf("%w: %s", ErrUnknownAreaType, s.AreaTypeID)
	}
	if len(s.IndicatorIDs) == 0 {
		return ErrNoIndicators
	}
	if _, err := table.ParseFormat(string(s.Options.Format)); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if cat == nil {
		return nil
	}
	available := map[string]bool{}
	for _, id := range cat.IndicatorIDs(s.AreaTypeID) {
		available[id] = true
	}
	for _, id := range s.IndicatorIDs {
		if !available[id] {
			return fmt.Errorf("%w: %s for area type %s", ErrUnknownIndicator, id, s.AreaTypeID)
		}
	}
	return nil
}
