package download

import "time"

// Status is the result of one indicator in a batch.
type Status string

const (
	StatusSaved  Status = "saved"
	StatusKept   Status = "kept" // held for the combined file
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// Outcome describes what happened to one indicator.
type Outcome struct {
	IndicatorID  string `json:"indicator_id"`
	Name         string `json:"name"`
	Status       Status `json:"status"`
	Rows         int    `json:"rows"`
	Path         string `json:"path,omitempty"`
	LatestPeriod string `json:"latest_period,omitempty"`
	Error        string `json:"error,omitempty"`

	err error
}

// Err returns the failure behind a failed outcome.
func (o Outcome) Err() error {
	return o.err
}

// Report summarizes a finished batch.
type Report struct {
	ID            string    `json:"id"`
	AreaTypeID    string    `json:"area_type_id"`
	Options       Options   `json:"options"`
	Outcomes      []Outcome `json:"outcomes"`
	CombinedPath  string    `json:"combined_path,omitempty"`
	CombinedRows  int       `json:"combined_rows,omitempty"`
	CombinedError string    `json:"combined_error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Count returns how many outcomes have the given status.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any indicator or the combined write failed.
func (r *Report) Failed() bool {
	return r.Count(StatusFailed) > 0 || r.CombinedError != ""
}

// Duration is the wall time of the batch.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
