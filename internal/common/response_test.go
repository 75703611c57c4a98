package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONErrorShape(t *testing.T) {
	rr := httptest.NewRecorder()
	JSONError(rr, http.StatusMethodNotAllowed, "Method Not Allowed")

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"Method Not Allowed"}`, rr.Body.String())
}

func TestWriteErrorUsesAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	wrapped := NewAppError("Invalid product_price", http.StatusBadRequest, errors.New("nan"))
	WriteError(rr, wrapped, http.StatusInternalServerError, "Server error")

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "Invalid product_price", body.Error)
	require.Equal(t, "nan", wrapped.Error())
}

func TestWriteErrorFallback(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("boom"), http.StatusInternalServerError, "Server error")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"error":"Server error"}`, rr.Body.String())
}
