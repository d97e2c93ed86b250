// Package fingertips is a small client for the public-health Fingertips API.
//
// The API identifies indicators and area types with integers. The client
// converts them to strings so the rest of the module has one canonical id
// representation.
package fingertips

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rubiojr/fingertips/pkg/log"
	"github.com/rubiojr/fingertips/pkg/table"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://fingertips.phe.org.uk/api"
	// DefaultParentAreaType is England, the parent used when fetching child area data.
	DefaultParentAreaType = "15"
)

// Client talks to the Fingertips API. It is safe for concurrent use.
type Client struct {
	baseURL        string
	client         *http.Client
	parentAreaType string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the HTTP client timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithParentAreaType overrides the parent area type used by IndicatorData.
func WithParentAreaType(id string) Option {
	return func(c *Client) { c.parentAreaType = id }
}

// NewClient returns a client for baseURL (DefaultBaseURL when empty).
// Responses are requested gzip-compressed.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         &http.Client{Transport: gzhttp.Transport(http.DefaultTransport)},
		parentAreaType: DefaultParentAreaType,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AvailableData lists every (indicator, area type) pair with data, in the
// order the API returns them. Entries without an area type are skipped.
func (c *Client) AvailableData(ctx context.Context) ([]Availability, error) {
	var raw []availabilityJSON
	if err := c.getJSON(ctx, "available_data", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Availability, 0, len(raw))
	for _, a := range raw {
		if a.AreaTypeID == nil {
			continue
		}
		out = append(out, Availability{
			IndicatorID: strconv.Itoa(a.IndicatorID),
			AreaTypeID:  strconv.Itoa(*a.AreaTypeID),
		})
	}
	return out, nil
}

// IndicatorMetadata returns the descriptive metadata of every indicator,
// keyed by indicator id. Items with an unexpected shape are logged and
// dropped.
func (c *Client) IndicatorMetadata(ctx context.Context) (map[string]IndicatorMetadata, error) {
	l := log.ForService("fingertips")

	var raw map[string]json.RawMessage
	if err := c.getJSON(ctx, "indicator_metadata/all", nil, &raw); err != nil {
		return nil, err
	}

	out := make(map[string]IndicatorMetadata, len(raw))
	for id, item := range raw {
		var m metadataJSON
		if err := json.Unmarshal(item, &m); err != nil {
			l.Warnf("dropping indicator %s: unexpected metadata format: %v", id, err)
			continue
		}
		md := IndicatorMetadata{ID: id}
		if m.Descriptive != nil {
			if m.Descriptive.Name != nil {
				md.Name = *m.Descriptive.Name
			}
			if m.Descriptive.DataSource != nil {
				md.DataSource = *m.Descriptive.DataSource
			}
		}
		out[id] = md
	}
	return out, nil
}

// AreaTypes lists every area type the API knows about.
func (c *Client) AreaTypes(ctx context.Context) ([]AreaType, error) {
	var raw []areaTypeJSON
	if err := c.getJSON(ctx, "area_types", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]AreaType, len(raw))
	for i, a := range raw {
		out[i] = AreaType{ID: strconv.Itoa(a.ID), Name: a.Name, Short: a.Short}
	}
	return out, nil
}

// IndicatorData fetches the long-format rows of one indicator for one area
// type, including sortable time periods.
func (c *Client) IndicatorData(ctx context.Context, indicatorID, areaTypeID string) (*table.Table, error) {
	q := url.Values{}
	q.Set("indicator_ids", indicatorID)
	q.Set("child_area_type_id", areaTypeID)
	q.Set("parent_area_type_id", c.parentAreaType)
	q.Set("include_sortable_time_periods", "yes")
	return c.getCSV(ctx, "all_data/csv/by_indicator_id", q)
}

// BulkIndicatorData fetches every row of the given indicators across all
// area types in one request.
func (c *Client) BulkIndicatorData(ctx context.Context, indicatorIDs []string) (*table.Table, error) {
	q := url.Values{}
	q.Set("indicator_ids", strings.Join(indicatorIDs, ","))
	return c.getCSV(ctx, "all_data/csv/by_indicator_id", q)
}

func (c *Client) do(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	reqURL := c.baseURL + "/" + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	log.ForService("fingertips").Debugf("GET %s", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: reqURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	resp, err := c.do(ctx, path, query)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) getCSV(ctx context.Context, path string, query url.Values) (*table.Table, error) {
	resp, err := c.do(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	t, err := table.ReadCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return t, nil
}
