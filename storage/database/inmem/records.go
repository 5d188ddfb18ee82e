package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/attendance"
	"github.com/vidhyasetu/backend/core/marks"
)

type attendanceRepository struct {
	db *DB
}

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) Upsert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	db := repo.db
	if _, ok := db.users[rec.StudentID]; !ok {
		return attendance.Record{}, errNoSuchUser
	}
	for id, old := range db.attendance {
		if old.StudentID == rec.StudentID && old.Date.Equal(rec.Date) {
			upd := old
			upd.Status = rec.Status
			upd.MarkedBy = rec.MarkedBy
			upd.UpdatedAt = rec.UpdatedAt
			db.attendance[id] = upd
			onRollback(ctx, func() { db.attendance[id] = old })
			return upd, nil
		}
	}

	rec.ID = db.nextID()
	db.attendance[rec.ID] = rec
	onRollback(ctx, func() { delete(db.attendance, rec.ID) })
	return rec, nil
}

func (repo *attendanceRepository) ListForStudent(_ context.Context, studentID string) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]attendance.Record, 0)
	for _, rec := range repo.db.attendance {
		if rec.StudentID == studentID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return records, nil
}

func (repo *attendanceRepository) CountByStudent(_ context.Context, from, to time.Time, studentIDs ...string) (map[string]attendance.Counts, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}
	counts := make(map[string]attendance.Counts)
	for _, rec := range repo.db.attendance {
		if !wanted[rec.StudentID] || rec.Date.Before(from) || !rec.Date.Before(to) {
			continue
		}
		c := counts[rec.StudentID]
		if rec.Status == attendance.StatusPresent {
			c.Present++
		} else {
			c.Absent++
		}
		counts[rec.StudentID] = c
	}
	return counts, nil
}

type marksRepository struct {
	db *DB
}

func NewMarksRepository(db *DB) marks.Repository {
	return &marksRepository{db: db}
}

var errObtainedOverTotal = errors.New("check constraint violated: " + marks.ConstraintObtainedInTotal)

func (repo *marksRepository) CreateSubject(ctx context.Context, s marks.Subject) (marks.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	db := repo.db
	for _, other := range db.subjects {
		if other.Class == s.Class && other.Name == s.Name {
			return marks.Subject{}, &core.ConflictError{Constraint: marks.ConstraintSubjectName}
		}
	}
	s.ID = db.nextID()
	db.subjects[s.ID] = s
	onRollback(ctx, func() { delete(db.subjects, s.ID) })
	return s, nil
}

func (repo *marksRepository) GetSubject(_ context.Context, id int64) (marks.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return s, nil
	}
	return marks.Subject{}, marks.ErrSubjectNotFound
}

func (repo *marksRepository) ListSubjects(_ context.Context, class string) ([]marks.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]marks.Subject, 0)
	for _, s := range repo.db.subjects {
		if class == "" || s.Class == class {
			subjects = append(subjects, s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Class != subjects[j].Class {
			return subjects[i].Class < subjects[j].Class
		}
		return subjects[i].Name < subjects[j].Name
	})
	return subjects, nil
}

func (repo *marksRepository) Upsert(ctx context.Context, m marks.Mark) (marks.Mark, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	db := repo.db
	if _, ok := db.users[m.StudentID]; !ok {
		return marks.Mark{}, errNoSuchUser
	}
	subject, ok := db.subjects[m.SubjectID]
	if !ok {
		return marks.Mark{}, marks.ErrSubjectNotFound
	}
	if m.Graded() && *m.MarksObtained > *m.TotalMarks {
		return marks.Mark{}, errObtainedOverTotal
	}

	for id, old := range db.marks {
		if old.StudentID == m.StudentID && old.SubjectID == m.SubjectID && old.ExamName == m.ExamName {
			upd := old
			upd.MarksObtained = m.MarksObtained
			upd.TotalMarks = m.TotalMarks
			upd.UploadedBy = m.UploadedBy
			upd.UpdatedAt = m.UpdatedAt
			db.marks[id] = upd
			onRollback(ctx, func() { db.marks[id] = old })
			upd.SubjectName = subject.Name
			return upd, nil
		}
	}

	m.ID = db.nextID()
	db.marks[m.ID] = m
	onRollback(ctx, func() { delete(db.marks, m.ID) })
	m.SubjectName = subject.Name
	return m, nil
}

func (repo *marksRepository) ListForStudent(_ context.Context, studentID, exam string) ([]marks.Mark, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	list := make([]marks.Mark, 0)
	for _, m := range repo.db.marks {
		if m.StudentID != studentID || (exam != "" && m.ExamName != exam) {
			continue
		}
		m.SubjectName = repo.db.subjects[m.SubjectID].Name
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].SubjectName != list[j].SubjectName {
			return list[i].SubjectName < list[j].SubjectName
		}
		return list[i].ExamName < list[j].ExamName
	})
	return list, nil
}

func (repo *marksRepository) Exams(_ context.Context, studentID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := map[string]bool{}
	exams := make([]string, 0)
	for _, m := range repo.db.marks {
		if m.StudentID == studentID && !seen[m.ExamName] {
			seen[m.ExamName] = true
			exams = append(exams, m.ExamName)
		}
	}
	sort.Strings(exams)
	return exams, nil
}
