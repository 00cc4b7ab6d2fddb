// Package httputil centralizes JSON response writing so every endpoint emits
// the same envelopes.
package httputil

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes payload as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes the standard error envelope. The description is omitted
// for server-side errors so internals never leak to callers.
func WriteError(w http.ResponseWriter, status int, code, description string) {
	body := map[string]string{"error": code}
	if description != "" && status < http.StatusInternalServerError {
		body["error_description"] = description
	}
	WriteJSON(w, status, body)
}

// DecodeJSON decodes the request body into dst, answering 400 itself when the
// body is malformed. Returns false when the caller should stop.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var dst T
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&dst); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return dst, false
	}
	return dst, true
}
