package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GameoCoder/attendance-backend/internal/model"
)

var ErrSectionNotFound = errors.New("section not found")

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same queries can run pooled or inside a transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetPersonByIDNumber(ctx context.Context, idNumber string) (model.Person, error) {
	var person model.Person
	row := s.pool.QueryRow(ctx, `
		SELECT person_id, id_number, name, role, rfid_tag, password, created_at
		FROM persons
		WHERE id_number = $1
	`, idNumber)
	err := row.Scan(
		&person.ID,
		&person.IDNumber,
		&person.Name,
		&person.Role,
		&person.RFIDTag,
		&person.PasswordHash,
		&person.CreatedAt,
	)
	return person, err
}

// ListTeacherSchedulesForDay returns the teacher's schedule entries for one
// day of the week, ordered by start time.
func (s *Store) ListTeacherSchedulesForDay(ctx context.Context, teacherID int64, dayOfWeek string) ([]model.ScheduleEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			s.schedule_id,
			s.teacher_id,
			sec.section_name,
			sub.subject_name,
			c.room_number,
			s.day_of_week,
			TO_CHAR(s.start_time, 'HH24:MI') AS start_time,
			TO_CHAR(s.end_time, 'HH24:MI') AS end_time
		FROM schedule s
		JOIN sections sec ON s.section_id = sec.section_id
		JOIN classrooms c ON s.classroom_id = c.classroom_id
		JOIN subjects sub ON s.subject_id = sub.subject_id
		WHERE s.teacher_id = $1 AND s.day_of_week = $2
		ORDER BY s.start_time, s.schedule_id
	`, teacherID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.ScheduleEntry
	for rows.Next() {
		var entry model.ScheduleEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TeacherID,
			&entry.SectionName,
			&entry.SubjectName,
			&entry.Room,
			&entry.DayOfWeek,
			&entry.Start,
			&entry.End,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListSectionStudents returns the roster of the section a schedule belongs
// to, ordered by student name. Status is left unset.
func (s *Store) ListSectionStudents(ctx context.Context, scheduleID int64) ([]model.RosterEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.person_id, p.name, p.id_number, p.rfid_tag
		FROM persons p
		JOIN student_sections ss ON p.person_id = ss.person_id
		WHERE ss.section_id = (SELECT section_id FROM schedule WHERE schedule_id = $1)
		ORDER BY p.name
	`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.RosterEntry
	for rows.Next() {
		var student model.RosterEntry
		if err := rows.Scan(&student.PersonID, &student.Name, &student.IDNumber, &student.RFIDTag); err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

// ListAttendanceTags returns the set of RFID tags already recorded for a
// schedule.
func (s *Store) ListAttendanceTags(ctx context.Context, scheduleID int64) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT rfid_tag FROM attendance WHERE schedule_id = $1`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make(map[string]struct{})
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags[tag] = struct{}{}
	}
	return tags, rows.Err()
}

// CreateStudent inserts a student and maps them to a section inside tx.
// Returns ErrSectionNotFound when the named section does not exist.
func CreateStudent(ctx context.Context, tx pgx.Tx, name, idNumber, sectionName, rfidTag, passwordHash string) error {
	var personID int64
	row := tx.QueryRow(ctx, `
		INSERT INTO persons (name, rfid_tag, role, id_number, password)
		VALUES ($1, $2, 'student', $3, $4)
		RETURNING person_id
	`, name, rfidTag, idNumber, passwordHash)
	if err := row.Scan(&personID); err != nil {
		return err
	}

	var sectionID int64
	row = tx.QueryRow(ctx, `SELECT section_id FROM sections WHERE section_name = $1`, sectionName)
	if err := row.Scan(&sectionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSectionNotFound
		}
		return err
	}

	_, err := tx.Exec(ctx, `INSERT INTO student_sections (person_id, section_id) VALUES ($1, $2)`, personID, sectionID)
	return err
}

func AttendanceExists(ctx context.Context, q Querier, scheduleID int64, rfidTag string) (bool, error) {
	var exists bool
	row := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM attendance WHERE schedule_id = $1 AND rfid_tag = $2)
	`, scheduleID, rfidTag)
	err := row.Scan(&exists)
	return exists, err
}

func InsertAttendance(ctx context.Context, q Querier, record model.AttendanceRecord) error {
	_, err := q.Exec(ctx, `
		INSERT INTO attendance (attendance_id, schedule_id, rfid_tag, "timestamp", status)
		VALUES ($1, $2, $3, $4, $5)
	`, record.ID, record.ScheduleID, record.RFIDTag, record.Timestamp, record.Status)
	return err
}

// InsertAttendanceIfAbsent records a present row unless the (schedule, tag)
// pair already exists. Reports whether a row was written.
func InsertAttendanceIfAbsent(ctx context.Context, q Querier, record model.AttendanceRecord) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO attendance (attendance_id, schedule_id, rfid_tag, "timestamp", status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT attendance_schedule_tag_unique DO NOTHING
	`, record.ID, record.ScheduleID, record.RFIDTag, record.Timestamp, record.Status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetStudentByTag resolves the owner of an RFID tag together with their
// section name, for the ingestion response payload.
func GetStudentByTag(ctx context.Context, q Querier, rfidTag string) (name, section string, err error) {
	row := q.QueryRow(ctx, `
		SELECT p.name, sec.section_name
		FROM persons p
		JOIN student_sections ss ON p.person_id = ss.person_id
		JOIN sections sec ON ss.section_id = sec.section_id
		WHERE p.rfid_tag = $1
	`, rfidTag)
	err = row.Scan(&name, &section)
	return name, section, err
}

// GetTagByRollNo resolves a student's RFID tag from their id number.
func GetTagByRollNo(ctx context.Context, q Querier, rollNo string) (string, error) {
	var tag *string
	row := q.QueryRow(ctx, `SELECT rfid_tag FROM persons WHERE id_number = $1 AND role = 'student'`, rollNo)
	if err := row.Scan(&tag); err != nil {
		return "", err
	}
	if tag == nil {
		return "", pgx.ErrNoRows
	}
	return *tag, nil
}
