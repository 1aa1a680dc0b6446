package httputil

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// ParseJSON decodes the request body into dst
func ParseJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// ParseJSONOrError decodes the request body into dst, writing a 400 envelope
// and returning false on failure.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := ParseJSON(r, dst); err != nil {
		WriteBadRequest(w, "MALFORMED_REQUEST", "invalid request body")
		return false
	}
	return true
}

// GetPathVars returns the mux path variables for the request
func GetPathVars(r *http.Request) map[string]string {
	return mux.Vars(r)
}

// RequireNonEmpty validates that value is non-blank, writing a 400 envelope
// and returning false otherwise.
func RequireNonEmpty(w http.ResponseWriter, value, field string) bool {
	if strings.TrimSpace(value) == "" {
		WriteBadRequest(w, "MALFORMED_REQUEST", field+" is required")
		return false
	}
	return true
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The second return is false when the header is absent or not a
// Bearer credential.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
