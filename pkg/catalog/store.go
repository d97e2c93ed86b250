package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rubiojr/fingertips/pkg/table"
)

// Helper file names inside the store directory.
const (
	IndicatorsFile = "indicators_data.json"
	AreasFile      = "areas.json"
	AreasCSVFile   = "areas.csv"
	IndexFile      = "area_type_indicator_dict.json"
)

// ErrNoHelpers is returned by Load when the helper files have never been written.
var ErrNoHelpers = errors.New("helper files not found")

// Store persists a catalog as the helper files read at startup. The files
// are a cache: they can be deleted and rebuilt from the API at any time.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the helper files.
func (s *Store) Dir() string {
	return s.dir
}

// Exists reports whether the indicator helper file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(filepath.Join(s.dir, IndicatorsFile))
	return err == nil
}

// Save writes every helper file. Each file is replaced atomically.
func (s *Store) Save(c *Catalog) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating helpers directory: %w", err)
	}

	if err := writeJSON(filepath.Join(s.dir, IndicatorsFile), c.Indicators(), "    "); err != nil {
		return err
	}
	areaTypes := c.AreaTypes()
	if areaTypes == nil {
		areaTypes = []AreaType{}
	}
	if err := writeJSON(filepath.Join(s.dir, AreasFile), areaTypes, ""); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(s.dir, IndexFile), c.Index(), ""); err != nil {
		return err
	}

	areas := table.New([]string{"Id", "Name", "Short"})
	for _, a := range areaTypes {
		areas.Append([]string{a.ID, a.Name, a.Short})
	}
	if err := table.WriteCSVFile(filepath.Join(s.dir, AreasCSVFile), areas); err != nil {
		return fmt.Errorf("writing %s: %w", AreasCSVFile, err)
	}
	return nil
}

// Load reads the helper files back into a catalog. When the index file is
// missing the index is derived from the indicators.
func (s *Store) Load() (*Catalog, error) {
	var indicators []Indicator
	if err := readJSON(filepath.Join(s.dir, IndicatorsFile), &indicators); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoHelpers, s.dir)
		}
		return nil, err
	}

	var areaTypes []AreaType
	if err := readJSON(filepath.Join(s.dir, AreasFile), &areaTypes); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	c := New(indicators, areaTypes)

	var index map[string][]string
	err := readJSON(filepath.Join(s.dir, IndexFile), &index)
	switch {
	case err == nil:
		c = c.withIndex(index)
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}
	return c, nil
}

func writeJSON(path string, v any, indent string) error {
	var (
		data []byte
		err  error
	)
	if indent != "" {
		data, err = json.MarshalIndent(v, "", indent)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}
