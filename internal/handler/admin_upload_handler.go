package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Artufe/bravo-tango-bravo/internal/dto"
	"github.com/Artufe/bravo-tango-bravo/internal/service"
	"github.com/Artufe/bravo-tango-bravo/internal/service/importer"
)

// CSVImporter starts a run over companies read from a CSV upload.
type CSVImporter interface {
	ImportCompaniesCSV(r io.Reader) (service.Accepted, importer.Summary, error)
}

var _ CSVImporter = (*service.QueriesService)(nil)

// AdminUploadHandler handles CSV ingestion for administrators.
type AdminUploadHandler struct {
	importer CSVImporter
}

// NewAdminUploadHandler wires a handler backed by the queries service.
func NewAdminUploadHandler(svc CSVImporter) *AdminUploadHandler {
	return &AdminUploadHandler{importer: svc}
}

// UploadCSV handles POST /admin/upload-csv requests.
func (h *AdminUploadHandler) UploadCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "missing csv file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Error(c, http.StatusBadRequest, "unable to open file")
	}
	defer file.Close()

	accepted, summary, err := h.importer.ImportCompaniesCSV(file)
	if err != nil {
		var validationErr importer.CSVValidationError
		if errors.As(err, &validationErr) {
			return Error(c, http.StatusBadRequest, validationErr.Error())
		}
		return Error(c, http.StatusInternalServerError, "failed to process csv")
	}

	return Success(c, http.StatusAccepted, "companies CSV accepted", dto.UploadResponse{
		QueryID:  accepted.QueryID.String(),
		Rows:     summary.Rows,
		Imported: summary.Imported,
		Skipped:  summary.Skipped,
	})
}
