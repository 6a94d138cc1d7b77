package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GameoCoder/attendance-backend/internal/attendance"
	"github.com/GameoCoder/attendance-backend/internal/auth"
	"github.com/GameoCoder/attendance-backend/internal/config"
	"github.com/GameoCoder/attendance-backend/internal/crypto"
	"github.com/GameoCoder/attendance-backend/internal/db"
	"github.com/GameoCoder/attendance-backend/internal/model"
	"github.com/GameoCoder/attendance-backend/internal/repository"
	"github.com/GameoCoder/attendance-backend/internal/schedule"
)

var validate = validator.New()

type Server struct {
	cfg        config.Config
	store      *db.Store
	repo       *repository.Store
	svc        *attendance.Service
	redis      *redis.Client
	logger     *zap.Logger
	loc        *time.Location
	sessionTTL time.Duration
}

func NewServer(cfg config.Config, store *db.Store, repo *repository.Store, svc *attendance.Service, redisClient *redis.Client, logger *zap.Logger) (*Server, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:        cfg,
		store:      store,
		repo:       repo,
		svc:        svc,
		redis:      redisClient,
		logger:     logger,
		loc:        loc,
		sessionTTL: cfg.AttendanceSessionTTL,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/login", s.handleLogin)

	r.With(s.authMiddleware, s.requireTeacher).Get("/schedules/current-class", s.handleCurrentClass)
	r.With(s.authMiddleware, s.requireTeacher).Get("/schedules", s.handleListSchedules)
	r.With(s.authMiddleware, s.requireTeacher).Post("/schedules/bulk-attendance", s.handleBulkAttendance)

	r.With(s.authMiddleware, s.requireTeacher).Get("/faculty/attendance-status", s.handleAttendanceStatus)
	r.With(s.authMiddleware, s.requireTeacher).Post("/faculty/start-attendance/{scheduleID}", s.handleStartAttendance)
	r.With(s.authMiddleware, s.requireTeacher).Post("/faculty/finalize-attendance/{scheduleID}", s.handleFinalizeAttendance)

	r.With(s.authMiddleware, s.requireTeacher).Post("/students", s.handleCreateStudent)

	return r
}

// Models

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type scheduleResponse struct {
	ScheduleID  int64  `json:"schedule_id"`
	ClassName   string `json:"class_name"`
	SubjectName string `json:"subject_name"`
	RoomNumber  string `json:"room_number"`
	DayOfWeek   string `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Date        string `json:"date"`
}

type bulkAttendanceRequest struct {
	ScheduleID     int64               `json:"schedule_id" validate:"required"`
	AttendanceData []attendance.Record `json:"attendance_data" validate:"required"`
}

type finalizeRequest struct {
	Finalized []attendance.FinalizeEntry `json:"finalized" validate:"required,dive"`
}

type createStudentRequest struct {
	Name      string `json:"name" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	Section   string `json:"section" validate:"required"`
	RFIDTag   string `json:"rfid_tag" validate:"required"`
}

type startAttendanceEntry struct {
	RollNo  string  `json:"roll_no"`
	Name    string  `json:"name"`
	RFIDTag *string `json:"rfid_tag"`
	Present bool    `json:"present"`
}

// Handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	person, err := s.repo.GetPersonByIDNumber(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			loginAttemptsTotal.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := crypto.CheckPassword(person.PasswordHash, req.Password); err != nil {
		loginAttemptsTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if person.Role != model.RoleTeacher {
		loginAttemptsTotal.WithLabelValues("forbidden").Inc()
		writeError(w, http.StatusForbidden, "role_forbidden")
		return
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		PersonID: person.ID,
		Role:     person.Role,
		Name:     person.Name,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	loginAttemptsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleCurrentClass(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	now := time.Now().In(s.loc)
	entries, err := s.repo.ListTeacherSchedulesForDay(r.Context(), claims.PersonID, schedule.DayName(now))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	entry := schedule.FirstActive(entries, now)
	if entry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No active class found at the moment."})
		return
	}
	writeJSON(w, http.StatusOK, mapSchedule(*entry, now))
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	now := time.Now().In(s.loc)
	entries, err := s.repo.ListTeacherSchedulesForDay(r.Context(), claims.PersonID, schedule.DayName(now))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]scheduleResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, mapSchedule(entry, now))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBulkAttendance(w http.ResponseWriter, r *http.Request) {
	var req bulkAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	summary, results, err := s.svc.Ingest(r.Context(), req.ScheduleID, req.AttendanceData)
	if err != nil {
		s.logger.Error("bulk attendance failed", zap.Int64("schedule_id", req.ScheduleID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	attendanceRecordsTotal.WithLabelValues("successful").Add(float64(summary.Successful))
	attendanceRecordsTotal.WithLabelValues("duplicates").Add(float64(summary.Duplicates))
	attendanceRecordsTotal.WithLabelValues("failed").Add(float64(summary.Failed))

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"summary": summary,
		"results": results,
	})
}

func (s *Server) handleAttendanceStatus(w http.ResponseWriter, r *http.Request) {
	rawID := r.URL.Query().Get("schedule_id")
	if rawID == "" {
		writeError(w, http.StatusBadRequest, "missing_schedule_id")
		return
	}
	scheduleID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_schedule_id")
		return
	}

	roster, err := s.svc.Reconcile(r.Context(), scheduleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if roster == nil {
		roster = []model.RosterEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"attendance": roster,
	})
}

func (s *Server) handleStartAttendance(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := scheduleIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_schedule_id")
		return
	}

	students, err := s.repo.ListSectionStudents(r.Context(), scheduleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if s.redis != nil {
		if err := s.openAttendanceSession(r.Context(), scheduleID); err != nil {
			s.logger.Warn("attendance session marker not stored", zap.Int64("schedule_id", scheduleID), zap.Error(err))
		}
	}

	resp := make([]startAttendanceEntry, 0, len(students))
	for _, student := range students {
		resp = append(resp, startAttendanceEntry{
			RollNo:  student.IDNumber,
			Name:    student.Name,
			RFIDTag: student.RFIDTag,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"attendance": resp})
}

func (s *Server) handleFinalizeAttendance(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := scheduleIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_schedule_id")
		return
	}

	var req finalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	if err := s.svc.Finalize(r.Context(), scheduleID, req.Finalized); err != nil {
		if errors.Is(err, attendance.ErrUnknownRollNo) {
			writeError(w, http.StatusBadRequest, "unknown_roll_no")
			return
		}
		s.logger.Error("finalize attendance failed", zap.Int64("schedule_id", scheduleID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	s.closeAttendanceSession(r.Context(), scheduleID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "attendance finalized",
	})
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	hash, err := crypto.HashPassword(s.cfg.DefaultStudentPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	err = s.store.WithTx(r.Context(), func(tx pgx.Tx) error {
		return repository.CreateStudent(r.Context(), tx, req.Name, req.StudentID, req.Section, req.RFIDTag, hash)
	})
	if err != nil {
		if errors.Is(err, repository.ErrSectionNotFound) {
			writeError(w, http.StatusNotFound, "section_not_found")
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeError(w, http.StatusConflict, "student_exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "student created",
	})
}

// Utilities

func mapSchedule(entry model.ScheduleEntry, now time.Time) scheduleResponse {
	return scheduleResponse{
		ScheduleID:  entry.ID,
		ClassName:   entry.SectionName,
		SubjectName: entry.SubjectName,
		RoomNumber:  entry.Room,
		DayOfWeek:   entry.DayOfWeek,
		StartTime:   entry.Start,
		EndTime:     entry.End,
		Date:        now.Format("2006-01-02"),
	}
}

func scheduleIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "scheduleID"), 10, 64)
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
