package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sublyime/ingestion/pkg/services"
)

// SourceTypesHandler serves the read-only source type catalog.
type SourceTypesHandler struct {
	sourceTypeService services.SourceTypeService
	logger            *zap.Logger
}

// NewSourceTypesHandler creates a new source types handler.
func NewSourceTypesHandler(sourceTypeService services.SourceTypeService, logger *zap.Logger) *SourceTypesHandler {
	return &SourceTypesHandler{sourceTypeService: sourceTypeService, logger: logger}
}

// RegisterRoutes registers the source types handler's routes on the given mux.
func (h *SourceTypesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /source-types", h.List)
}

// List handles GET /source-types
func (h *SourceTypesHandler) List(w http.ResponseWriter, r *http.Request) {
	sourceTypes, err := h.sourceTypeService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to fetch source types", errorField(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, sourceTypes); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
