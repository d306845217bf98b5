package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
	Setup()
}

func jsonContext(body string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestBindDomainTags(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"valid", `{"status":"late"}`, ""},
		{"unknown status", `{"status":"asleep"}`, "status"},
		{"missing status", `{}`, "status"},
		{"malformed json", `{"status":`, "detail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req model.MarkAttendanceRequest
			fields := Bind(jsonContext(tt.body), &req)
			if tt.wantField == "" {
				if fields != nil {
					t.Fatalf("unexpected errors %v", fields)
				}
				return
			}
			if _, ok := fields[tt.wantField]; !ok {
				t.Fatalf("errors %v lack %q", fields, tt.wantField)
			}
		})
	}
}

func TestDomainTagMessages(t *testing.T) {
	var req model.ScheduleMakeupRequest
	fields := Bind(jsonContext(`{
		"student_id": 1, "source_class_id": 2, "target_class_id": 3,
		"initiated_from": "sideways", "reason_type": "boredom"
	}`), &req)

	if got := fields["initiated_from"]; got != "initiated_from must be one of source, target" {
		t.Fatalf("initiated_from message = %q", got)
	}
	if got := fields["reason_type"]; got != "reason_type is not a known makeup reason" {
		t.Fatalf("reason_type message = %q", got)
	}

	var class model.CreateClassRequest
	fields = Bind(jsonContext(`{"course_id":1,"date":"2025-03-11","start_time":"25:99","duration_minutes":45}`), &class)
	if _, ok := fields["start_time"]; !ok || len(fields) != 1 {
		t.Fatalf("bad start time errors = %v", fields)
	}
}

func TestBindQuery(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?student_id=4&class_id=9&initiated_from=target", nil)

	var q model.CandidateQuery
	if fields := BindQuery(c, &q); fields != nil {
		t.Fatalf("unexpected errors %v", fields)
	}
	if q.StudentID != 4 || q.ClassID != 9 || q.InitiatedFrom != "target" {
		t.Fatalf("query = %+v", q)
	}

	c.Request = httptest.NewRequest(http.MethodGet, "/?class_id=9&initiated_from=nowhere", nil)
	q = model.CandidateQuery{}
	fields := BindQuery(c, &q)
	if len(fields) != 2 || fields["student_id"] == "" || fields["initiated_from"] == "" {
		t.Fatalf("errors = %v", fields)
	}
}
