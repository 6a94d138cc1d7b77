package model

import "time"

type Person struct {
	ID           int64
	IDNumber     string
	Name         string
	Role         string
	RFIDTag      *string
	PasswordHash string
	CreatedAt    time.Time
}

type Section struct {
	ID   int64
	Name string
}

// ScheduleEntry is one recurring weekly meeting slot of a section.
// Start and End are clock times formatted HH:MM.
type ScheduleEntry struct {
	ID          int64
	TeacherID   int64
	SectionName string
	SubjectName string
	Room        string
	DayOfWeek   string
	Start       string
	End         string
}

type AttendanceRecord struct {
	ID         string
	ScheduleID int64
	RFIDTag    string
	Timestamp  time.Time
	Status     string
}

// RosterEntry is an enrolled student with their reconciled status for
// one schedule: "present" when a ledger row exists for their tag.
type RosterEntry struct {
	PersonID int64   `json:"person_id"`
	Name     string  `json:"name"`
	IDNumber string  `json:"id_number"`
	RFIDTag  *string `json:"rfid_tag"`
	Status   string  `json:"status"`
}

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"

	StatusPresent = "present"
	StatusAbsent  = "absent"
)
