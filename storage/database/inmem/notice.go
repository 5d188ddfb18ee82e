package inmemdb

import (
	"context"
	"sort"

	"github.com/vidhyasetu/backend/core/homework"
	"github.com/vidhyasetu/backend/core/notice"
)

type noticeRepository struct {
	db *DB
}

func NewNoticeRepository(db *DB) notice.Repository {
	return &noticeRepository{db: db}
}

func (repo *noticeRepository) Create(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	db := repo.db
	n.ID = db.nextID()
	db.notices[n.ID] = n
	onRollback(ctx, func() { delete(db.notices, n.ID) })
	return n, nil
}

func (repo *noticeRepository) Get(_ context.Context, id int64) (notice.Notice, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if n, ok := repo.db.notices[id]; ok {
		return n, nil
	}
	return notice.Notice{}, notice.ErrNotFound
}

func (repo *noticeRepository) List(_ context.Context, activeOnly bool) ([]notice.Notice, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	list := make([]notice.Notice, 0)
	for _, n := range repo.db.notices {
		if !activeOnly || n.IsActive {
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (repo *noticeRepository) SetActive(ctx context.Context, id int64, active bool) (notice.Notice, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	db := repo.db
	old, ok := db.notices[id]
	if !ok {
		return notice.Notice{}, notice.ErrNotFound
	}
	upd := old
	upd.IsActive = active
	db.notices[id] = upd
	onRollback(ctx, func() { db.notices[id] = old })
	return upd, nil
}

type homeworkRepository struct {
	db *DB
}

func NewHomeworkRepository(db *DB) homework.Repository {
	return &homeworkRepository{db: db}
}

func (repo *homeworkRepository) Create(ctx context.Context, hw homework.Homework) (homework.Homework, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	db := repo.db
	hw.ID = db.nextID()
	db.homework[hw.ID] = hw
	onRollback(ctx, func() { delete(db.homework, hw.ID) })
	return hw, nil
}

func (repo *homeworkRepository) List(_ context.Context, filter homework.Filter) ([]homework.Homework, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	list := make([]homework.Homework, 0)
	for _, hw := range repo.db.homework {
		switch {
		case filter.Class != "" && hw.Class != filter.Class:
		case filter.Section != "" && hw.Section != filter.Section:
		case filter.TeacherID != "" && (hw.TeacherID == nil || *hw.TeacherID != filter.TeacherID):
		default:
			list = append(list, hw)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].DueDate.Equal(list[j].DueDate) {
			return list[i].DueDate.Before(list[j].DueDate)
		}
		return list[i].ID > list[j].ID
	})
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}
