package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "probereport/internal/errors"
	"probereport/internal/middleware"
	"probereport/internal/services"
)

const (
	// maxRowLimit caps a single rows response
	maxRowLimit = 100000
	maxParamLen = 512
)

// DatasetHandler serves aggregated datasets with RFC 7807 errors
type DatasetHandler struct {
	service      DatasetServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	query        *middleware.QueryParamValidator
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListDatasets)
	r.Route("/{name}", func(r chi.Router) {
		r.Use(h.DatasetCtx)
		r.Get("/rows", h.GetRows)
		r.Get("/files", h.GetFiles)
		r.Get("/charts", h.GetCharts)
	})

	return r
}

// DatasetCtx validates the dataset name parameter
func (h *DatasetHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if name == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("name", "Dataset name is required"))
			return
		}
		if len(name) > 128 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("name", "Dataset name is too long"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListDatasets handles GET /api/datasets
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   list,
		"count":  len(list),
	})
}

// GetRows handles GET /api/datasets/{name}/rows
func (h *DatasetHandler) GetRows(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	description, ok := h.query.ValidateString(w, r, "description", maxParamLen)
	if !ok {
		return
	}
	filename, ok := h.query.ValidateString(w, r, "filename", maxParamLen)
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 0, maxRowLimit, 0)
	if !ok {
		return
	}

	q := services.RowQuery{Description: description, Filename: filename, Limit: limit}

	page, err := h.service.Rows(r.Context(), name, q)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.translate(name, err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   page,
		"count":  page.Count,
	})
}

// GetFiles handles GET /api/datasets/{name}/files
func (h *DatasetHandler) GetFiles(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	summaries, err := h.service.Files(r.Context(), name)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.translate(name, err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summaries,
		"count":  len(summaries),
	})
}

// GetCharts handles GET /api/datasets/{name}/charts
func (h *DatasetHandler) GetCharts(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	charts, err := h.service.Charts(r.Context(), name)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.translate(name, err))
		return
	}

	links := make([]string, len(charts))
	for i, c := range charts {
		links[i] = "/charts/" + name + "/" + c
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   links,
		"count":  len(links),
	})
}

// translate maps service errors onto API errors
func (h *DatasetHandler) translate(name string, err error) error {
	switch {
	case errors.Is(err, services.ErrDatasetNotFound):
		return apierrors.DatasetNotFoundError(name)
	case errors.Is(err, services.ErrInvalidLimit):
		return apierrors.ErrValidation("limit", err.Error())
	}
	return err
}
