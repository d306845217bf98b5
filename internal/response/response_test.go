package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrNotFound) })

	tests := []struct {
		name, inbound string
		keep          bool
	}{
		{"none", "", false},
		{"well formed", "sync-2025-03-10_abc", true},
		{"newline", "abc\ninjected", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.inbound != "" {
				req.Header.Set("X-Request-ID", tt.inbound)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if tt.keep && got != tt.inbound {
				t.Fatalf("request ID = %q, want %q", got, tt.inbound)
			}
			if !tt.keep && (got == "" || got == tt.inbound) {
				t.Fatalf("request ID %q was not replaced", got)
			}

			var body Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Metadata.RequestID != got {
				t.Fatalf("metadata request ID %q != header %q", body.Metadata.RequestID, got)
			}
			if body.Error == nil || body.Error.Code != ErrNotFound || body.Error.Message != GetMessage(ErrNotFound) {
				t.Fatalf("error body = %+v", body.Error)
			}
		})
	}
}

func TestFailWithMessageKeepsCode(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		FailWithMessage(c, http.StatusUnprocessableEntity, ErrSameClass, "Pick another class.")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusUnprocessableEntity || body.Error.Code != ErrSameClass || body.Error.Message != "Pick another class." {
		t.Fatalf("status %d body %+v", w.Code, body.Error)
	}
	if body.Metadata.RequestID == "" {
		t.Fatal("metadata request ID missing without middleware")
	}
}
