package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attendanceRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_records_total",
		Help: "Bulk attendance records by classification.",
	}, []string{"outcome"})

	loginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})
)
