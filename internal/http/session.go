package http

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// A session marker flags an attendance sheet as open between
// start-attendance and finalize-attendance. Purely advisory: missing redis
// degrades to no markers rather than failing the request.

func attendanceSessionKey(scheduleID int64) string {
	return "attendance:session:" + strconv.FormatInt(scheduleID, 10)
}

func (s *Server) openAttendanceSession(ctx context.Context, scheduleID int64) error {
	if s.redis == nil {
		return errors.New("redis_not_configured")
	}
	openedAt := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	return s.redis.Set(ctx, attendanceSessionKey(scheduleID), openedAt, s.sessionTTL).Err()
}

func (s *Server) closeAttendanceSession(ctx context.Context, scheduleID int64) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, attendanceSessionKey(scheduleID)).Err()
}
