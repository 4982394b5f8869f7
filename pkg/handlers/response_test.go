package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/sublyime/ingestion/pkg/apperrors"
)

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	if err := ErrorResponse(w, http.StatusBadRequest, "missing_name", "Data source name is required"); err != nil {
		t.Fatalf("ErrorResponse returned error: %v", err)
	}

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["error"] != "missing_name" || body["message"] != "Data source name is required" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestWriteJSON_StatusHandling(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		w := httptest.NewRecorder()

		if err := WriteJSON(w, status, CreateDataSourceResponse{ID: 3}); err != nil {
			t.Fatalf("WriteJSON returned error: %v", err)
		}
		if w.Code != status {
			t.Errorf("status code = %d, want %d", w.Code, status)
		}
		if w.Body.String() != "{\"id\":3}\n" {
			t.Errorf("unexpected body %q", w.Body.String())
		}
	}
}

func TestWriteJSON_UnencodableData(t *testing.T) {
	w := httptest.NewRecorder()

	if err := WriteJSON(w, http.StatusOK, make(chan int)); err == nil {
		t.Error("expected error for unencodable data, got nil")
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "validation keeps message",
			err:         apperrors.Validationf("connection property key %q is duplicated", "host"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "validation_failed",
			wantMessage: `connection property key "host" is duplicated`,
		},
		{
			name:        "wrapped not found keeps message",
			err:         fmt.Errorf("outer: %w", apperrors.NotFound("delete data source", "data source 4 not found")),
			wantStatus:  http.StatusNotFound,
			wantCode:    "not_found",
			wantMessage: "data source 4 not found",
		},
		{
			name:        "connection hides cause",
			err:         apperrors.Connection("acquire pool", errors.New("dial tcp 10.0.0.1:1433: i/o timeout")),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    "store_unavailable",
			wantMessage: "Database connection unavailable",
		},
		{
			name:        "query hides cause",
			err:         apperrors.Query("exec", errors.New("violates foreign key constraint")),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "internal_error",
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			writeServiceError(w, zap.NewNop(), tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body["error"] != tt.wantCode {
				t.Errorf("error = %q, want %q", body["error"], tt.wantCode)
			}
			if body["message"] != tt.wantMessage {
				t.Errorf("message = %q, want %q", body["message"], tt.wantMessage)
			}
		})
	}
}
