package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StarAlexander/inventory-storage-diploma/internal/auth"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{auth.ErrUnauthorized, http.StatusUnauthorized},
		{auth.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("document 3: %w", domain.ErrDocumentNotFound), http.StatusNotFound},
		{domain.ErrZoneNotFound, http.StatusNotFound},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidOperation, http.StatusBadRequest},
		{domain.ErrAlreadySigned, http.StatusConflict},
		{domain.ErrNotReady, http.StatusConflict},
		{domain.ErrNotMaterialized, http.StatusConflict},
		{fmt.Errorf("failed to create equipment: %w", domain.ErrConflict), http.StatusConflict},
		{domain.ErrCrossWarehouseTransfer, http.StatusUnprocessableEntity},
		{domain.ErrEquipmentDecommissioned, http.StatusUnprocessableEntity},
		{domain.ErrNoSignerKey, http.StatusUnprocessableEntity},
		{domain.ErrQueueFull, http.StatusServiceUnavailable},
		{domain.ErrConcurrentModification, http.StatusServiceUnavailable},
		{domain.Persistence("commit transaction", errors.New("locked")), http.StatusServiceUnavailable},
		{domain.ErrKeyParse, http.StatusBadRequest},
		{domain.ErrSignatureEncoding, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteServiceErrorHidesDriverText(t *testing.T) {
	s := &Server{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"transient", domain.Persistence("commit transaction", errors.New("database is locked (5) SQLITE_BUSY")), http.StatusServiceUnavailable},
		{"internal", errors.New("sql: Scan error on column index 3"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.writeServiceError(w, httptest.NewRequest(http.MethodGet, "/documents", nil), tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body errorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.NotContains(t, body.Error, "SQLITE_BUSY")
			assert.NotContains(t, body.Error, "Scan error")
		})
	}
}
