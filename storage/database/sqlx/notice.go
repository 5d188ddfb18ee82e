package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core/homework"
	"github.com/vidhyasetu/backend/core/notice"
	"github.com/vidhyasetu/backend/storage/database"
)

type noticeRepository struct {
	repo
}

var _ notice.Repository = (*noticeRepository)(nil)

func NewNoticeRepository(db *sqlx.DB) notice.Repository {
	return &noticeRepository{repo{db: db}}
}

const noticeColumns = `id, title, message, created_by, is_active, created_at`

func (r *noticeRepository) Create(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	err := r.exec(ctx).GetContext(ctx, &n.ID, `
		INSERT INTO notice (title, message, created_by, is_active, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		n.Title, n.Message, n.CreatedBy, n.IsActive, n.CreatedAt.UTC())
	if err != nil {
		return notice.Notice{}, database.ConflictFromError(err)
	}
	return n, nil
}

func (r *noticeRepository) Get(ctx context.Context, id int64) (notice.Notice, error) {
	var n notice.Notice
	if err := r.exec(ctx).GetContext(ctx, &n, `SELECT `+noticeColumns+` FROM notice WHERE id = $1`, id); err != nil {
		if database.IsNoRows(err) {
			return n, notice.ErrNotFound
		}
		return n, errors.Wrap(err, "getting notice")
	}
	return n, nil
}

func (r *noticeRepository) List(ctx context.Context, activeOnly bool) ([]notice.Notice, error) {
	q := `SELECT ` + noticeColumns + ` FROM notice`
	if activeOnly {
		q += ` WHERE is_active`
	}
	list := make([]notice.Notice, 0)
	err := r.exec(ctx).SelectContext(ctx, &list, q+` ORDER BY created_at DESC, id DESC`)
	return list, errors.Wrap(err, "listing notices")
}

func (r *noticeRepository) SetActive(ctx context.Context, id int64, active bool) (notice.Notice, error) {
	var n notice.Notice
	err := r.exec(ctx).GetContext(ctx, &n, `UPDATE notice SET is_active = $2 WHERE id = $1 RETURNING `+noticeColumns, id, active)
	if err != nil {
		if database.IsNoRows(err) {
			return n, notice.ErrNotFound
		}
		return n, errors.Wrap(err, "updating notice")
	}
	return n, nil
}

type homeworkRepository struct {
	repo
}

var _ homework.Repository = (*homeworkRepository)(nil)

func NewHomeworkRepository(db *sqlx.DB) homework.Repository {
	return &homeworkRepository{repo{db: db}}
}

func (r *homeworkRepository) Create(ctx context.Context, hw homework.Homework) (homework.Homework, error) {
	err := r.exec(ctx).GetContext(ctx, &hw.ID, `
		INSERT INTO homework (teacher_id, title, description, class_name, section, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		hw.TeacherID, hw.Title, hw.Description, hw.Class, hw.Section, hw.DueDate, hw.CreatedAt.UTC())
	if err != nil {
		return homework.Homework{}, database.ConflictFromError(err)
	}
	return hw, nil
}

func (r *homeworkRepository) List(ctx context.Context, filter homework.Filter) ([]homework.Homework, error) {
	var w where
	if filter.Class != "" {
		w.add("class_name = ?", filter.Class)
	}
	if filter.Section != "" {
		w.add("section = ?", filter.Section)
	}
	if filter.TeacherID != "" {
		w.add("teacher_id = ?", filter.TeacherID)
	}
	q := `SELECT id, teacher_id, title, description, class_name, section, due_date, created_at FROM homework` +
		w.String() + ` ORDER BY due_date, id DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		w.args = append(w.args, filter.Limit)
	}

	list := make([]homework.Homework, 0)
	if err := r.selectIn(ctx, &list, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "listing homework")
	}
	for i := range list {
		list[i].DueDate = list[i].DueDate.UTC()
	}
	return list, nil
}
