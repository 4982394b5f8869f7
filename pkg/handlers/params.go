package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ParseDataSourceID extracts and validates the data source ID from the request path.
// Returns the ID and true on success, or 0 and false after writing a 400 response.
// Expects path parameter: id
func ParseDataSourceID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	return parsePositiveID(w, r, "id", "invalid_data_source_id", "Data source ID must be a positive integer", logger)
}

func parsePositiveID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(pathParam), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, logger, http.StatusBadRequest, errorCode, errorMessage)
		return 0, false
	}
	return id, true
}
