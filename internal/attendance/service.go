package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/GameoCoder/attendance-backend/internal/db"
	"github.com/GameoCoder/attendance-backend/internal/model"
	"github.com/GameoCoder/attendance-backend/internal/repository"
)

var ErrUnknownRollNo = errors.New("unknown roll number")

const (
	msgPresent   = "Present"
	msgDuplicate = "Duplicate attendance record"
	msgMalformed = "Malformed record"
	msgFailed    = "Failed to record attendance"
)

// Record is one candidate scan in a bulk submission.
type Record struct {
	RFIDTag   string `json:"rfid_tag"`
	Timestamp string `json:"timestamp"`
}

type Student struct {
	Name    string `json:"name"`
	Section string `json:"section"`
}

// Result is the per-record outcome, in input order.
type Result struct {
	RFIDTag     string   `json:"rfid_tag"`
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Student     *Student `json:"student"`
	IsDuplicate bool     `json:"isDuplicate"`
}

type Summary struct {
	Successful int `json:"successful"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// FinalizeEntry marks one roster row in an administrative close-out.
type FinalizeEntry struct {
	RollNo  string `json:"roll_no" validate:"required"`
	Present bool   `json:"present"`
}

type Service struct {
	store *db.Store
	repo  *repository.Store
}

func NewService(store *db.Store, repo *repository.Store) *Service {
	return &Service{store: store, repo: repo}
}

// validateRecord reports why a record may not reach the store, or "".
func validateRecord(record Record) string {
	if record.RFIDTag == "" || record.Timestamp == "" {
		return msgMalformed
	}
	if _, err := time.Parse(time.RFC3339, record.Timestamp); err != nil {
		return msgMalformed
	}
	return ""
}

// Ingest processes a batch of scans against the ledger inside one
// transaction. Each record lands in exactly one bucket: successful,
// duplicate, or failed. Store errors on a single record roll back only that
// record's savepoint; errors outside the per-record boundary abort the whole
// batch. Resubmitting a processed batch is idempotent: the (schedule, tag)
// uniqueness turns repeats into duplicates, not rows.
func (s *Service) Ingest(ctx context.Context, scheduleID int64, records []Record) (Summary, []Result, error) {
	summary := Summary{}
	results := make([]Result, 0, len(records))

	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		for _, record := range records {
			if msg := validateRecord(record); msg != "" {
				summary.Failed++
				results = append(results, Result{RFIDTag: record.RFIDTag, Message: msg})
				continue
			}

			outcome, err := s.ingestOne(ctx, tx, scheduleID, record)
			if err != nil {
				return err
			}
			switch {
			case outcome.IsDuplicate:
				summary.Duplicates++
			case outcome.Success:
				summary.Successful++
			default:
				summary.Failed++
			}
			results = append(results, outcome)
		}
		return nil
	})
	if err != nil {
		return Summary{}, nil, err
	}
	return summary, results, nil
}

// ingestOne runs one record's store work under a savepoint. A store error
// rolls the savepoint back and classifies the record as failed; the batch
// transaction stays usable. Errors managing the savepoint itself propagate
// and abort the batch.
func (s *Service) ingestOne(ctx context.Context, tx pgx.Tx, scheduleID int64, record Record) (Result, error) {
	inner, err := tx.Begin(ctx)
	if err != nil {
		return Result{}, err
	}

	result, err := func() (Result, error) {
		exists, err := repository.AttendanceExists(ctx, inner, scheduleID, record.RFIDTag)
		if err != nil {
			return Result{}, err
		}
		if exists {
			return Result{RFIDTag: record.RFIDTag, Message: msgDuplicate, IsDuplicate: true}, nil
		}

		timestamp, _ := time.Parse(time.RFC3339, record.Timestamp)
		if err := repository.InsertAttendance(ctx, inner, model.AttendanceRecord{
			ID:         uuid.New().String(),
			ScheduleID: scheduleID,
			RFIDTag:    record.RFIDTag,
			Timestamp:  timestamp,
			Status:     model.StatusPresent,
		}); err != nil {
			return Result{}, err
		}

		outcome := Result{RFIDTag: record.RFIDTag, Success: true, Message: msgPresent}
		name, section, err := repository.GetStudentByTag(ctx, inner, record.RFIDTag)
		if err == nil {
			outcome.Student = &Student{Name: name, Section: section}
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return Result{}, err
		}
		return outcome, nil
	}()
	if err != nil {
		_ = inner.Rollback(ctx)
		return Result{RFIDTag: record.RFIDTag, Message: msgFailed}, nil
	}
	if err := inner.Commit(ctx); err != nil {
		return Result{}, err
	}
	return result, nil
}

// Reconcile lists the schedule's enrolled students ordered by name, each
// marked present or absent by ledger membership. Two independent reads; the
// race window between them is accepted.
func (s *Service) Reconcile(ctx context.Context, scheduleID int64) ([]model.RosterEntry, error) {
	students, err := s.repo.ListSectionStudents(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	tags, err := s.repo.ListAttendanceTags(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	for i := range students {
		students[i].Status = model.StatusAbsent
		if students[i].RFIDTag != nil {
			if _, ok := tags[*students[i].RFIDTag]; ok {
				students[i].Status = model.StatusPresent
			}
		}
	}
	return students, nil
}

// Finalize closes out a roster: every entry marked present gets a
// conflict-safe present row keyed by the student's tag, resolved from the
// roll number. Entries with present=false are skipped; no negative record is
// stored. Any failure rolls back the whole call.
func (s *Service) Finalize(ctx context.Context, scheduleID int64, entries []FinalizeEntry) error {
	return s.store.WithTx(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		for _, entry := range entries {
			if !entry.Present {
				continue
			}
			tag, err := repository.GetTagByRollNo(ctx, tx, entry.RollNo)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrUnknownRollNo
				}
				return err
			}
			if _, err := repository.InsertAttendanceIfAbsent(ctx, tx, model.AttendanceRecord{
				ID:         uuid.New().String(),
				ScheduleID: scheduleID,
				RFIDTag:    tag,
				Timestamp:  now,
				Status:     model.StatusPresent,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
