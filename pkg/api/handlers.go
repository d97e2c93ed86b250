package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rubiojr/fingertips/pkg/catalog"
	"github.com/rubiojr/fingertips/pkg/download"
	"github.com/rubiojr/fingertips/pkg/table"
	"github.com/rubiojr/fingertips/pkg/version"
)

const maxRequestBody = 1 << 20

func areaTypeResponse(c *catalog.Catalog, at catalog.AreaType) AreaTypeResponse {
	return AreaTypeResponse{
		ID:         at.ID,
		Name:       at.Name,
		Short:      at.Short,
		Label:      at.Label(),
		Indicators: len(c.IndicatorIDs(at.ID)),
	}
}

func (s *Server) HandleListAreaTypes(w http.ResponseWriter, r *http.Request) {
	c := s.Catalog()
	areaTypes := c.SelectableAreaTypes()

	resp := ListAreaTypesResponse{
		AreaTypes: make([]AreaTypeResponse, len(areaTypes)),
		Count:     len(areaTypes),
	}
	for i, at := range areaTypes {
		resp.AreaTypes[i] = areaTypeResponse(c, at)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleListIndicators(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c := s.Catalog()
	if !c.HasAreaType(id) {
		s.writeError(w, http.StatusNotFound, "Area type not found", fmt.Sprintf("Area type '%s' has no indicators", id))
		return
	}
	at, _ := c.AreaType(id)

	groups := c.Groups(id)
	resp := ListIndicatorsResponse{
		AreaType: areaTypeResponse(c, at),
		Groups:   make([]GroupResponse, len(groups)),
	}
	for i, g := range groups {
		gr := GroupResponse{Source: g.Source, Indicators: make([]IndicatorResponse, len(g.Indicators))}
		for j, ind := range g.Indicators {
			gr.Indicators[j] = IndicatorResponse{
				ID:         ind.ID,
				Name:       catalog.CleanName(ind.Name),
				Label:      ind.Label(),
				DataSource: ind.DataSource,
			}
		}
		resp.Count += len(gr.Indicators)
		resp.Groups[i] = gr
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleStartDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	sel := download.Selection{
		AreaTypeID:   req.AreaTypeID,
		IndicatorIDs: req.IndicatorIDs,
		Options: download.Options{
			Combine:          req.Combine,
			KeepLatest:       req.KeepLatest,
			DropEmptyColumns: req.DropEmptyColumns,
			Format:           table.Format(req.Format),
		},
	}

	err := s.runner.Start(s.Catalog(), sel)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusAccepted, s.runner.Current())
	case errors.Is(err, ErrBusy):
		s.writeError(w, http.StatusConflict, "Download in progress", err.Error())
	case download.IsValidation(err):
		s.writeError(w, http.StatusBadRequest, "Invalid selection", err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, "Failed to start download", err.Error())
	}
}

func (s *Server) HandleCurrentDownload(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.runner.Current())
}

func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	resp := HistoryResponse{Batches: []*download.Report{}}
	if s.history != nil {
		batches, err := s.history.Recent(limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "Failed to load history", err.Error())
			return
		}
		if batches != nil {
			resp.Batches = batches
		}
	}
	resp.Count = len(resp.Batches)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC(),
		Version:    version.APIVersion(),
		Indicators: len(s.Catalog().Indicators()),
		Running:    s.runner.Running(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
