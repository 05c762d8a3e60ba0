package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireJSON(t *testing.T) {
	handler := RequireJSON()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		method      string
		contentType string
		accept      string
		wantStatus  int
	}{
		{name: "get without headers", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "get accepts json", method: http.MethodGet, accept: "application/json", wantStatus: http.StatusOK},
		{name: "get accepts anything", method: http.MethodGet, accept: "*/*", wantStatus: http.StatusOK},
		{name: "get accepts only xml", method: http.MethodGet, accept: "application/xml", wantStatus: http.StatusNotAcceptable},
		{name: "post json", method: http.MethodPost, contentType: "application/json", wantStatus: http.StatusOK},
		{name: "post json with charset", method: http.MethodPost, contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "post form", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType},
		{name: "post without content type", method: http.MethodPost, wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
