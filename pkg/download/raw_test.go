package download

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rubiojr/fingertips/pkg/table"
)

type fakeBulk struct {
	calls [][]string
	fail  map[string]bool
}

func (f *fakeBulk) BulkIndicatorData(_ context.Context, ids []string) (*table.Table, error) {
	f.calls = append(f.calls, ids)
	key := strings.Join(ids, ",")
	if f.fail[key] {
		return nil, errors.New("status 500")
	}
	t := table.New([]string{"Indicator ID", "Value"})
	for _, id := range ids {
		t.Append([]string{id, "1"})
	}
	return t, nil
}

func TestFetchRawBatches(t *testing.T) {
	f := &fakeBulk{}
	ids := []string{"1", "2", "3", "4", "5", "6", "7"}

	got, err := FetchRaw(context.Background(), f, ids, 3)
	if err != nil {
		t.Fatalf("FetchRaw failed: %v", err)
	}
	if len(f.calls) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(f.calls))
	}
	if len(f.calls[2]) != 1 || f.calls[2][0] != "7" {
		t.Errorf("unexpected last batch %v", f.calls[2])
	}
	if got.Len() != 7 {
		t.Errorf("expected 7 rows, got %d", got.Len())
	}
}

func TestFetchRawSkipsFailedBatch(t *testing.T) {
	f := &fakeBulk{fail: map[string]bool{"1,2": true}}

	got, err := FetchRaw(context.Background(), f, []string{"1", "2", "3"}, 2)
	if err != nil {
		t.Fatalf("FetchRaw failed: %v", err)
	}
	if got.Len() != 1 || got.Rows[0][0] != "3" {
		t.Errorf("expected only indicator 3, got %v", got.Rows)
	}
}

func TestFetchRawNothingFetched(t *testing.T) {
	f := &fakeBulk{fail: map[string]bool{"1": true}}

	if _, err := FetchRaw(context.Background(), f, []string{"1"}, 0); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := FetchRaw(context.Background(), f, nil, 5); !errors.Is(err, ErrNoIndicators) {
		t.Fatalf("expected ErrNoIndicators, got %v", err)
	}
}
