package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sublyime/ingestion/pkg/apperrors"
	"github.com/sublyime/ingestion/pkg/jsonutil"
	"github.com/sublyime/ingestion/pkg/models"
	"github.com/sublyime/ingestion/pkg/services"
)

// ConnectionPropertyRequest is one key/value pair in a create or update body.
// Value may be a JSON string, number or boolean; it is stored as text.
type ConnectionPropertyRequest struct {
	Key   *string         `json:"key"`
	Value json.RawMessage `json:"value"`
}

// DataSourceRequest is the POST and PUT body. Pointer fields distinguish absent from zero.
type DataSourceRequest struct {
	Name                 *string                     `json:"name"`
	SourceTypeID         *int64                      `json:"source_type_id"`
	IsActive             *bool                       `json:"is_active"`
	ConnectionProperties []ConnectionPropertyRequest `json:"connection_properties"`
}

// CreateDataSourceResponse carries the id assigned to a new data source.
type CreateDataSourceResponse struct {
	ID int64 `json:"id"`
}

// DataSourcesHandler handles data source HTTP requests.
type DataSourcesHandler struct {
	dataSourceService services.DataSourceService
	logger            *zap.Logger
}

// NewDataSourcesHandler creates a new data sources handler.
func NewDataSourcesHandler(dataSourceService services.DataSourceService, logger *zap.Logger) *DataSourcesHandler {
	return &DataSourcesHandler{
		dataSourceService: dataSourceService,
		logger:            logger,
	}
}

// RegisterRoutes registers the data sources handler's routes on the given mux.
func (h *DataSourcesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /data-sources", h.List)
	mux.HandleFunc("POST /data-sources", h.Create)
	mux.HandleFunc("GET /data-sources/{id}", h.Get)
	mux.HandleFunc("PUT /data-sources/{id}", h.Update)
	mux.HandleFunc("DELETE /data-sources/{id}", h.Delete)
}

// List handles GET /data-sources
// Returns every data source with its connection properties.
func (h *DataSourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	dataSources, err := h.dataSourceService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list data sources", errorField(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, dataSources); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /data-sources/{id}
func (h *DataSourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDataSourceID(w, r, h.logger)
	if !ok {
		return
	}

	ds, err := h.dataSourceService.Get(r.Context(), id)
	if err != nil {
		h.logFailure("Failed to get data source", id, err)
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ds); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /data-sources
// is_active defaults to true when omitted.
func (h *DataSourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	id, err := h.dataSourceService.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("Failed to create data source",
			zap.String("name", in.Name),
			errorField(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, CreateDataSourceResponse{ID: id}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /data-sources/{id}
// Full replace: omitted connection_properties clear the property set.
func (h *DataSourcesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDataSourceID(w, r, h.logger)
	if !ok {
		return
	}

	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	if err := h.dataSourceService.Update(r.Context(), id, in); err != nil {
		h.logFailure("Failed to update data source", id, err)
		writeServiceError(w, h.logger, err)
		return
	}

	response := MessageResponse{Message: "Data source updated successfully", ID: id}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /data-sources/{id}
func (h *DataSourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDataSourceID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.dataSourceService.Delete(r.Context(), id); err != nil {
		h.logFailure("Failed to delete data source", id, err)
		writeServiceError(w, h.logger, err)
		return
	}

	response := MessageResponse{Message: "Data source deleted successfully", ID: id}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// decodeInput reads a DataSourceRequest and checks required fields are present.
// On failure it writes the 400 response itself.
func (h *DataSourcesHandler) decodeInput(w http.ResponseWriter, r *http.Request) (services.DataSourceInput, bool) {
	var req DataSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return services.DataSourceInput{}, false
	}

	if req.Name == nil {
		writeError(w, h.logger, http.StatusBadRequest, "missing_name", "Data source name is required")
		return services.DataSourceInput{}, false
	}
	if req.SourceTypeID == nil {
		writeError(w, h.logger, http.StatusBadRequest, "missing_source_type_id", "Source type ID is required")
		return services.DataSourceInput{}, false
	}

	props := make([]models.ConnectionProperty, 0, len(req.ConnectionProperties))
	for _, p := range req.ConnectionProperties {
		value, ok := jsonutil.ScalarString(p.Value)
		if p.Key == nil || !ok {
			writeError(w, h.logger, http.StatusBadRequest, "invalid_connection_property",
				"Each connection property requires a key and a scalar value")
			return services.DataSourceInput{}, false
		}
		props = append(props, models.ConnectionProperty{Key: *p.Key, Value: value})
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	return services.DataSourceInput{
		Name:         *req.Name,
		SourceTypeID: *req.SourceTypeID,
		IsActive:     isActive,
		Properties:   props,
	}, true
}

func (h *DataSourcesHandler) logFailure(msg string, id int64, err error) {
	// A missing id is an expected outcome, not a server fault.
	if apperrors.HTTPStatus(err) < http.StatusInternalServerError {
		h.logger.Info(msg, zap.Int64("data_source_id", id), errorField(err))
		return
	}
	h.logger.Error(msg, zap.Int64("data_source_id", id), errorField(err))
}
