package api

import (
	"time"

	"github.com/rubiojr/fingertips/pkg/download"
)

type AreaTypeResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Short      string `json:"short"`
	Label      string `json:"label"`
	Indicators int    `json:"indicators"`
}

type ListAreaTypesResponse struct {
	AreaTypes []AreaTypeResponse `json:"area_types"`
	Count     int                `json:"count"`
}

type IndicatorResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Label      string `json:"label"`
	DataSource string `json:"data_source"`
}

type GroupResponse struct {
	Source     string              `json:"source"`
	Indicators []IndicatorResponse `json:"indicators"`
}

type ListIndicatorsResponse struct {
	AreaType AreaTypeResponse `json:"area_type"`
	Groups   []GroupResponse  `json:"groups"`
	Count    int              `json:"count"`
}

// DownloadRequest is the body of POST /api/downloads.
type DownloadRequest struct {
	AreaTypeID       string   `json:"area_type_id"`
	IndicatorIDs     []string `json:"indicator_ids"`
	Combine          bool     `json:"combine"`
	KeepLatest       bool     `json:"keep_latest"`
	DropEmptyColumns bool     `json:"drop_empty_columns"`
	Format           string   `json:"format,omitempty"`
}

type HistoryResponse struct {
	Batches []*download.Report `json:"batches"`
	Count   int                `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	Indicators int       `json:"indicators"`
	Running    bool      `json:"running"`
}
