// Package catalog builds the indicator catalog the selection surface works
// from: which indicators exist, which area types each one covers, and the
// grouped, sorted listing shown for an area type.
//
// A Catalog is immutable once built and safe for concurrent readers.
package catalog

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/rubiojr/fingertips/pkg/fingertips"
	"github.com/rubiojr/fingertips/pkg/log"
)

// Indicator is one public-health metric. The JSON tags match the
// indicators_data.json helper file.
type Indicator struct {
	ID         string   `json:"IndicatorId"`
	AreaTypes  []string `json:"AreaTypes"`
	Name       string   `json:"Name"`
	DataSource string   `json:"DataSource"`
}

// Label is the display text of an indicator.
func (i Indicator) Label() string {
	return CleanName(i.Name) + " (ID: " + i.ID + ")"
}

// AreaType is a geographic classification. The JSON tags match areas.json.
type AreaType struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	Short string `json:"Short"`
}

// Label prefers the short name.
func (a AreaType) Label() string {
	switch {
	case a.Short != "":
		return a.Short
	case a.Name != "":
		return a.Name
	}
	return a.ID
}

// Group is the indicators of one cleaned data source.
type Group struct {
	Source     string
	Indicators []Indicator
}

// Catalog holds the indicators, the known area types and the availability
// index mapping an area type id to its indicator ids.
type Catalog struct {
	indicators []Indicator
	byID       map[string]int
	areaTypes  []AreaType
	areaByID   map[string]int
	index      map[string][]string
}

// Build assembles a catalog from the API's availability list, indicator
// metadata and area types. Indicators without metadata are dropped. The
// indicator order is the order of first appearance in avail.
func Build(avail []fingertips.Availability, meta map[string]fingertips.IndicatorMetadata, areaTypes []fingertips.AreaType) *Catalog {
	l := log.ForService("catalog")

	var order []string
	areas := map[string][]string{}
	for _, a := range avail {
		if _, ok := areas[a.IndicatorID]; !ok {
			order = append(order, a.IndicatorID)
		}
		areas[a.IndicatorID] = append(areas[a.IndicatorID], a.AreaTypeID)
	}

	indicators := make([]Indicator, 0, len(order))
	dropped := 0
	for _, id := range order {
		md, ok := meta[id]
		if !ok {
			dropped++
			continue
		}
		indicators = append(indicators, Indicator{
			ID:         id,
			AreaTypes:  areas[id],
			Name:       md.Name,
			DataSource: md.DataSource,
		})
	}
	if dropped > 0 {
		l.Debugf("dropped %d indicators without metadata", dropped)
	}

	ats := make([]AreaType, len(areaTypes))
	for i, a := range areaTypes {
		ats[i] = AreaType{ID: a.ID, Name: a.Name, Short: a.Short}
	}
	return New(indicators, ats)
}

// New builds a catalog from indicator records, deriving the availability
// index from their area types. Duplicate indicator ids keep the first record
// and duplicate area types per indicator are removed.
func New(indicators []Indicator, areaTypes []AreaType) *Catalog {
	c := &Catalog{
		byID:     make(map[string]int, len(indicators)),
		areaByID: make(map[string]int, len(areaTypes)),
		index:    map[string][]string{},
	}
	for _, ind := range indicators {
		if _, dup := c.byID[ind.ID]; dup {
			continue
		}
		ind.AreaTypes = dedupe(ind.AreaTypes)
		c.byID[ind.ID] = len(c.indicators)
		c.indicators = append(c.indicators, ind)
		for _, at := range ind.AreaTypes {
			c.index[at] = append(c.index[at], ind.ID)
		}
	}
	for _, a := range areaTypes {
		if _, dup := c.areaByID[a.ID]; dup {
			continue
		}
		c.areaByID[a.ID] = len(c.areaTypes)
		c.areaTypes = append(c.areaTypes, a)
	}
	return c
}

// withIndex replaces the derived index with a stored one, keeping only ids
// of known indicators and only non-empty entries.
func (c *Catalog) withIndex(index map[string][]string) *Catalog {
	c.index = make(map[string][]string, len(index))
	for at, ids := range index {
		var kept []string
		for _, id := range dedupe(ids) {
			if _, ok := c.byID[id]; ok {
				kept = append(kept, id)
			}
		}
		if len(kept) > 0 {
			c.index[at] = kept
		}
	}
	return c
}

// Indicators returns every indicator in catalog order.
func (c *Catalog) Indicators() []Indicator {
	return slices.Clone(c.indicators)
}

// Indicator looks an indicator up by id.
func (c *Catalog) Indicator(id string) (Indicator, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Indicator{}, false
	}
	return c.indicators[i], true
}

// AreaTypes returns every known area type, selectable or not.
func (c *Catalog) AreaTypes() []AreaType {
	return slices.Clone(c.areaTypes)
}

// AreaType looks an area type up by id. Area types that only appear in the
// index are returned with the id as their only field.
func (c *Catalog) AreaType(id string) (AreaType, bool) {
	if i, ok := c.areaByID[id]; ok {
		return c.areaTypes[i], true
	}
	if c.HasAreaType(id) {
		return AreaType{ID: id}, true
	}
	return AreaType{}, false
}

// Index returns a copy of the availability index.
func (c *Catalog) Index() map[string][]string {
	out := make(map[string][]string, len(c.index))
	for k, v := range c.index {
		out[k] = slices.Clone(v)
	}
	return out
}

// IndicatorIDs returns the indicator ids available for an area type.
func (c *Catalog) IndicatorIDs(areaTypeID string) []string {
	return slices.Clone(c.index[areaTypeID])
}

// HasAreaType reports whether at least one indicator covers the area type.
func (c *Catalog) HasAreaType(areaTypeID string) bool {
	return len(c.index[areaTypeID]) > 0
}

// SelectableAreaTypes returns the area types with at least one indicator,
// sorted by label then id.
func (c *Catalog) SelectableAreaTypes() []AreaType {
	var out []AreaType
	for id := range c.index {
		at, _ := c.AreaType(id)
		out = append(out, at)
	}
	slices.SortFunc(out, func(a, b AreaType) int {
		if r := cmp.Compare(a.Label(), b.Label()); r != 0 {
			return r
		}
		return compareIDs(a.ID, b.ID)
	})
	return out
}

// Groups partitions the indicators of an area type by cleaned data source.
// Groups are sorted by source label, indicators by cleaned name then id.
func (c *Catalog) Groups(areaTypeID string) []Group {
	type entry struct {
		ind  Indicator
		name string
	}
	bySource := map[string][]entry{}
	for _, id := range c.index[areaTypeID] {
		ind := c.indicators[c.byID[id]]
		src := CleanDataSource(ind.DataSource)
		bySource[src] = append(bySource[src], entry{ind: ind, name: CleanName(ind.Name)})
	}

	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	slices.Sort(sources)

	groups := make([]Group, 0, len(sources))
	for _, s := range sources {
		entries := bySource[s]
		slices.SortStableFunc(entries, func(a, b entry) int {
			if r := cmp.Compare(a.name, b.name); r != 0 {
				return r
			}
			return compareIDs(a.ind.ID, b.ind.ID)
		})
		g := Group{Source: s, Indicators: make([]Indicator, len(entries))}
		for i, e := range entries {
			g.Indicators[i] = e.ind
		}
		groups = append(groups, g)
	}
	return groups
}

// compareIDs orders numeric ids numerically and anything else as text.
func compareIDs(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return cmp.Compare(ai, bi)
	}
	return cmp.Compare(a, b)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
