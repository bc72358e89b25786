// Package handlers implements the studio HTTP API.
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mockbird/mockbird/internal/log"
)

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes data into a buffer first, so headers are only sent
// after encoding succeeded and a failure can still become a 500.
func writeJSON(w http.ResponseWriter, logger log.Logger, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are routine.
		logger.Debug("write response body", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger log.Logger, status int, code, message string) {
	writeJSON(w, logger, status, errorBody{Code: code, Message: message})
}

// decodeJSON reads a size-capped JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}
