package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Artufe/bravo-tango-bravo/internal/dto"
	"github.com/Artufe/bravo-tango-bravo/internal/enrich"
	"github.com/Artufe/bravo-tango-bravo/internal/entity"
	"github.com/Artufe/bravo-tango-bravo/internal/export"
	"github.com/Artufe/bravo-tango-bravo/internal/repository"
	"github.com/Artufe/bravo-tango-bravo/internal/service"
)

// QueryRunner starts runs and reads their stored results.
type QueryRunner interface {
	StartQuery(sector, location string) (service.Accepted, error)
	QueryCompanies(ctx context.Context, id uuid.UUID) (*entity.Query, []entity.Company, error)
}

var _ QueryRunner = (*service.QueriesService)(nil)

// QueriesHandler exposes enrichment run endpoints.
type QueriesHandler struct {
	runner QueryRunner
}

// NewQueriesHandler creates a new handler instance.
func NewQueriesHandler(runner QueryRunner) *QueriesHandler {
	return &QueriesHandler{runner: runner}
}

// Start handles POST /queries requests.
func (h *QueriesHandler) Start(c echo.Context) error {
	var req dto.QueryRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	accepted, err := h.runner.StartQuery(req.Sector, req.Location)
	if err != nil {
		if errors.Is(err, enrich.ErrInvalidRequest) {
			return Error(c, http.StatusBadRequest, err.Error())
		}
		return Error(c, http.StatusInternalServerError, "failed to start query")
	}
	return Success(c, http.StatusAccepted, "query started", accepted)
}

// Companies handles GET /queries/:id/companies requests. The optional format
// query parameter selects json (default), csv or csv_short.
func (h *QueriesHandler) Companies(c echo.Context) error {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid query id")
	}

	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format != "" && format != "json" && format != "csv" && format != "csv_short" {
		return Error(c, http.StatusBadRequest, "format must be one of json, csv, csv_short")
	}

	q, companies, err := h.runner.QueryCompanies(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrQueryNotFound) {
			return Error(c, http.StatusNotFound, "query not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to load companies")
	}

	switch format {
	case "csv", "csv_short":
		layout := export.Long
		if format == "csv_short" {
			layout = export.Short
		}
		filename := fmt.Sprintf("query-%s.csv", id)
		err := Attachment(c, filename, "text/csv; charset=utf-8", func(w io.Writer) error {
			return export.WriteCSV(w, companies, layout)
		})
		if err != nil {
			return Error(c, http.StatusInternalServerError, "failed to export companies")
		}
		return nil
	default:
		return Success(c, http.StatusOK, "", dto.QueryCompaniesResponse{Query: q, Companies: companies})
	}
}
