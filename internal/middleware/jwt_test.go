package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edupulse/schoolops-backend/internal/config"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/gin-gonic/gin"
)

func TestRequireStaffJWT(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}, nil)
	token, err := auth.GenerateStaffToken(&model.Staff{ID: 5, Name: "Grace", Role: model.StaffRoleTeacher})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	r := gin.New()
	r.Use(RequireStaffJWT(auth))
	r.GET("/me", func(c *gin.Context) {
		actor := GetActor(c)
		c.String(http.StatusOK, "%d:%s", actor.ID, actor.Role)
	})

	tests := []struct {
		name     string
		header   string
		query    string
		upgrade  bool
		want     int
		wantCode string
	}{
		{"bearer", "Bearer " + token, "", false, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + token, "", false, http.StatusOK, ""},
		{"missing", "", "", false, http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"basic scheme", "Basic abc", "", false, http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"garbage", "Bearer nope", "", false, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"query on plain request", "", token, false, http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"query on upgrade", "", token, true, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && w.Body.String() != "5:teacher" {
				t.Fatalf("actor = %q", w.Body.String())
			}
			if tt.wantCode != "" && !strings.Contains(w.Body.String(), tt.wantCode) {
				t.Fatalf("body %s lacks %s", w.Body.String(), tt.wantCode)
			}
		})
	}
}
