package download

import (
	"context"
	"errors"
	"strings"

	"github.com/rubiojr/fingertips/pkg/log"
	"github.com/rubiojr/fingertips/pkg/table"
)

// ErrNoData is returned by FetchRaw when no batch produced any rows.
var ErrNoData = errors.New("no data fetched")

// DefaultBatchSize is the number of indicators requested per bulk call.
const DefaultBatchSize = 5

// BulkFetcher retrieves the rows of several indicators in one call, for
// every area type.
type BulkFetcher interface {
	BulkIndicatorData(ctx context.Context, indicatorIDs []string) (*table.Table, error)
}

// FetchRaw downloads the raw long-format export of ids, batchSize
// indicators per request, and stacks the results. A failed batch is logged
// and skipped.
func FetchRaw(ctx context.Context, f BulkFetcher, ids []string, batchSize int) (*table.Table, error) {
	l := log.ForService("download")
	if len(ids) == 0 {
		return nil, ErrNoIndicators
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var parts []*table.Table
	for start := 0; start < len(ids); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := ids[start:min(start+batchSize, len(ids))]
		l.Infof("fetching raw data for indicators %s", strings.Join(batch, ","))
		t, err := f.BulkIndicatorData(ctx, batch)
		if err != nil {
			l.Errorf("fetching indicators %s: %v", strings.Join(batch, ","), err)
			continue
		}
		if t.Empty() {
			l.Warnf("no rows for indicators %s", strings.Join(batch, ","))
			continue
		}
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return nil, ErrNoData
	}
	return table.Concat(parts...), nil
}
