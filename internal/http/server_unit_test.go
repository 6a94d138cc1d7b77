package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/GameoCoder/attendance-backend/internal/auth"
	"github.com/GameoCoder/attendance-backend/internal/config"
	"github.com/GameoCoder/attendance-backend/internal/model"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"Bearer abc":       "abc",
		"bearer abc":       "abc",
		"Basic abc":        "",
		"Bearer":           "",
		"Bearer  spaced  ": "spaced",
	}
	for header, expect := range cases {
		if got := bearerToken(header); got != expect {
			t.Fatalf("header %q: expected %q, got %q", header, expect, got)
		}
	}
}

func TestMapSchedule(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	entry := model.ScheduleEntry{
		ID:          5,
		SectionName: "Grade 10 - A",
		SubjectName: "Physics",
		Room:        "201",
		DayOfWeek:   "Monday",
		Start:       "09:00",
		End:         "10:00",
	}
	resp := mapSchedule(entry, now)
	if resp.ScheduleID != 5 || resp.ClassName != "Grade 10 - A" || resp.SubjectName != "Physics" {
		t.Fatalf("unexpected mapping: %+v", resp)
	}
	if resp.Date != "2024-01-01" {
		t.Fatalf("expected date 2024-01-01, got %s", resp.Date)
	}
}

// newBareServer builds a server with no store wired. Requests rejected by
// the auth gate must never reach a handler, so a nil store only panics if
// the gate leaks.
func newBareServer(t *testing.T) (*Server, config.Config) {
	t.Helper()
	cfg := config.Config{
		JWTSecret:      "test-secret",
		JWTIssuer:      "test-issuer",
		AccessTokenTTL: time.Minute,
		Timezone:       "UTC",
	}
	server, err := NewServer(cfg, nil, nil, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("server init: %v", err)
	}
	return server, cfg
}

func TestTeacherEndpointsRejectMissingToken(t *testing.T) {
	server, _ := newBareServer(t)
	router := server.Router()

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/schedules/current-class"},
		{http.MethodGet, "/schedules"},
		{http.MethodPost, "/schedules/bulk-attendance"},
		{http.MethodGet, "/faculty/attendance-status"},
		{http.MethodPost, "/faculty/start-attendance/1"},
		{http.MethodPost, "/faculty/finalize-attendance/1"},
		{http.MethodPost, "/students"},
	}
	for _, tc := range paths {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestTeacherEndpointsRejectStudentRole(t *testing.T) {
	server, cfg := newBareServer(t)
	router := server.Router()

	token, err := auth.NewAccessToken(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, auth.Claims{
		PersonID: 9,
		Role:     "student",
		Name:     "Sam",
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/schedules/current-class", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student token, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsBadSignature(t *testing.T) {
	server, cfg := newBareServer(t)
	router := server.Router()

	token, err := auth.NewAccessToken("other-secret", cfg.JWTIssuer, cfg.AccessTokenTTL, auth.Claims{
		PersonID: 1,
		Role:     "teacher",
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/schedules", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for bad signature, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	server, _ := newBareServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
