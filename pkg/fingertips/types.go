package fingertips

import "fmt"

// Availability says that an indicator has data for an area type.
type Availability struct {
	IndicatorID string
	AreaTypeID  string
}

// IndicatorMetadata is the descriptive part of an indicator's metadata.
// DataSource may contain HTML.
type IndicatorMetadata struct {
	ID         string
	Name       string
	DataSource string
}

// AreaType is a geographic classification data is reported against.
type AreaType struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	Short string `json:"Short"`
}

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fingertips API returned status %d for %s", e.StatusCode, e.URL)
}

// wire formats

type availabilityJSON struct {
	IndicatorID int  `json:"IndicatorId"`
	AreaTypeID  *int `json:"AreaTypeId"`
}

type metadataJSON struct {
	Descriptive *struct {
		Name       *string `json:"Name"`
		DataSource *string `json:"DataSource"`
	} `json:"Descriptive"`
}

type areaTypeJSON struct {
	ID    int    `json:"Id"`
	Name  string `json:"Name"`
	Short string `json:"Short"`
}
