package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core/attendance"
	"github.com/vidhyasetu/backend/core/marks"
	"github.com/vidhyasetu/backend/storage/database"
)

type attendanceRepository struct {
	repo
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{repo{db: db}}
}

func (r *attendanceRepository) Upsert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	const q = `
		INSERT INTO attendance (student_id, date, status, marked_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT attendance_student_date_key
		DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
		RETURNING id, student_id, date, status, marked_by, created_at, updated_at`
	var saved attendance.Record
	err := r.exec(ctx).GetContext(ctx, &saved, q,
		rec.StudentID, rec.Date, rec.Status, rec.MarkedBy, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return attendance.Record{}, database.ConflictFromError(err)
	}
	saved.Date = saved.Date.UTC()
	return saved, nil
}

func (r *attendanceRepository) ListForStudent(ctx context.Context, studentID string) ([]attendance.Record, error) {
	records := make([]attendance.Record, 0)
	err := r.exec(ctx).SelectContext(ctx, &records, `
		SELECT id, student_id, date, status, marked_by, created_at, updated_at
		FROM attendance WHERE student_id = $1 ORDER BY date DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "listing attendance")
	}
	for i := range records {
		records[i].Date = records[i].Date.UTC()
	}
	return records, nil
}

func (r *attendanceRepository) CountByStudent(ctx context.Context, from, to time.Time, studentIDs ...string) (map[string]attendance.Counts, error) {
	counts := make(map[string]attendance.Counts)
	if len(studentIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		StudentID string `db:"student_id"`
		attendance.Counts
	}
	err := r.selectIn(ctx, &rows, `
		SELECT student_id,
			COUNT(*) FILTER (WHERE status = 'P') AS present,
			COUNT(*) FILTER (WHERE status = 'A') AS absent
		FROM attendance
		WHERE student_id IN (?) AND date >= ? AND date < ?
		GROUP BY student_id`, studentIDs, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "counting attendance")
	}
	for _, row := range rows {
		counts[row.StudentID] = row.Counts
	}
	return counts, nil
}

type marksRepository struct {
	repo
}

var _ marks.Repository = (*marksRepository)(nil)

func NewMarksRepository(db *sqlx.DB) marks.Repository {
	return &marksRepository{repo{db: db}}
}

func (r *marksRepository) CreateSubject(ctx context.Context, s marks.Subject) (marks.Subject, error) {
	err := r.exec(ctx).GetContext(ctx, &s.ID, `INSERT INTO subject (name, class_name) VALUES ($1, $2) RETURNING id`, s.Name, s.Class)
	if err != nil {
		return marks.Subject{}, database.ConflictFromError(err)
	}
	return s, nil
}

func (r *marksRepository) GetSubject(ctx context.Context, id int64) (marks.Subject, error) {
	var s marks.Subject
	if err := r.exec(ctx).GetContext(ctx, &s, `SELECT id, name, class_name FROM subject WHERE id = $1`, id); err != nil {
		if database.IsNoRows(err) {
			return s, marks.ErrSubjectNotFound
		}
		return s, errors.Wrap(err, "getting subject")
	}
	return s, nil
}

func (r *marksRepository) ListSubjects(ctx context.Context, class string) ([]marks.Subject, error) {
	var w where
	if class != "" {
		w.add("class_name = ?", class)
	}
	subjects := make([]marks.Subject, 0)
	err := r.selectIn(ctx, &subjects, `SELECT id, name, class_name FROM subject`+w.String()+` ORDER BY class_name, name`, w.args...)
	return subjects, errors.Wrap(err, "listing subjects")
}

func (r *marksRepository) Upsert(ctx context.Context, m marks.Mark) (marks.Mark, error) {
	const q = `
		WITH saved AS (
			INSERT INTO mark (student_id, subject_id, exam_name, marks_obtained, total_marks, uploaded_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT ON CONSTRAINT mark_student_subject_exam_key
			DO UPDATE SET marks_obtained = EXCLUDED.marks_obtained, total_marks = EXCLUDED.total_marks,
				uploaded_by = EXCLUDED.uploaded_by, updated_at = EXCLUDED.updated_at
			RETURNING *
		)
		SELECT saved.id, saved.student_id, saved.subject_id, s.name AS subject_name, saved.exam_name, saved.marks_obtained,
			saved.total_marks, saved.uploaded_by, saved.created_at, saved.updated_at
		FROM saved JOIN subject s ON s.id = saved.subject_id`
	var saved marks.Mark
	err := r.exec(ctx).GetContext(ctx, &saved, q,
		m.StudentID, m.SubjectID, m.ExamName, m.MarksObtained, m.TotalMarks, m.UploadedBy, m.CreatedAt.UTC(), m.UpdatedAt.UTC())
	if err != nil {
		return marks.Mark{}, database.ConflictFromError(err)
	}
	return saved, nil
}

const markColumns = `m.id, m.student_id, m.subject_id, s.name AS subject_name, m.exam_name, m.marks_obtained,
	m.total_marks, m.uploaded_by, m.created_at, m.updated_at`

func (r *marksRepository) ListForStudent(ctx context.Context, studentID, exam string) ([]marks.Mark, error) {
	var w where
	w.add("m.student_id = ?", studentID)
	if exam != "" {
		w.add("m.exam_name = ?", exam)
	}
	list := make([]marks.Mark, 0)
	err := r.selectIn(ctx, &list, `SELECT `+markColumns+` FROM mark m JOIN subject s ON s.id = m.subject_id`+
		w.String()+` ORDER BY s.name, m.exam_name`, w.args...)
	return list, errors.Wrap(err, "listing marks")
}

func (r *marksRepository) Exams(ctx context.Context, studentID string) ([]string, error) {
	exams := make([]string, 0)
	err := r.exec(ctx).SelectContext(ctx, &exams, `SELECT DISTINCT exam_name FROM mark WHERE student_id = $1 ORDER BY exam_name`, studentID)
	return exams, errors.Wrap(err, "listing exams")
}
