package middleware

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/iudanet/chatrelay/pkg/api"
)

// RequireJSON требует application/json для тел POST/PUT запросов и
// совместимый Accept для всех остальных.
func RequireJSON() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !acceptsJSON(r) {
				writeJSONError(w, "only json responses supported", http.StatusNotAcceptable)
				return
			}

			if r.Method == http.MethodPost || r.Method == http.MethodPut {
				ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
				if err != nil || ct != "application/json" {
					writeJSONError(w, "only json requests supported", http.StatusUnsupportedMediaType)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func acceptsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case "application/json", "application/*", "*/*":
			return true
		}
	}
	return false
}

// writeJSONError отправляет ErrorResponse; используется из всех middleware
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: message})
}
