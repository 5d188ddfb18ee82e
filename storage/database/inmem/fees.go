package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/fees"
)

type feesRepository struct {
	db *DB
}

func NewFeesRepository(db *DB) fees.Repository {
	return &feesRepository{db: db}
}

func (repo *feesRepository) CreateStructure(ctx context.Context, s fees.Structure) (fees.Structure, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	db := repo.db
	for _, other := range db.structures {
		if other.Class == s.Class && other.Month == s.Month {
			return fees.Structure{}, &core.ConflictError{Constraint: fees.ConstraintClassMonth}
		}
	}
	s.ID = db.nextID()
	db.structures[s.ID] = s
	onRollback(ctx, func() { delete(db.structures, s.ID) })
	return s, nil
}

func (repo *feesRepository) GetStructure(_ context.Context, id int64) (fees.Structure, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.structures[id]; ok {
		return s, nil
	}
	return fees.Structure{}, fees.ErrStructureNotFound
}

func (repo *feesRepository) ListStructures(_ context.Context, class string) ([]fees.Structure, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	list := make([]fees.Structure, 0)
	for _, s := range repo.db.structures {
		if class == "" || s.Class == class {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Class != list[j].Class {
			return list[i].Class < list[j].Class
		}
		return list[i].Month < list[j].Month
	})
	return list, nil
}

func (repo *feesRepository) CreatePendingRecords(ctx context.Context, structureID int64, studentIDs ...string) ([]string, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	db := repo.db
	if _, ok := db.structures[structureID]; !ok {
		return nil, fees.ErrStructureNotFound
	}
	has := make(map[string]bool)
	for _, f := range db.feeRecords {
		if f.StructureID == structureID {
			has[f.StudentID] = true
		}
	}

	var created []string
	for _, sid := range studentIDs {
		if has[sid] {
			continue
		}
		if _, ok := db.users[sid]; !ok {
			return nil, errNoSuchUser
		}
		row := feeRow{ID: db.nextID(), StudentID: sid, StructureID: structureID, Status: fees.StatusPending}
		db.feeRecords[row.ID] = row
		onRollback(ctx, func() { delete(db.feeRecords, row.ID) })
		has[sid] = true
		created = append(created, sid)
	}
	return created, nil
}

// joined must be called with db.mu held.
func (repo *feesRepository) joined(f feeRow) fees.Record {
	s := repo.db.structures[f.StructureID]
	return fees.Record{
		ID:            f.ID,
		StudentID:     f.StudentID,
		StructureID:   f.StructureID,
		Class:         s.Class,
		Month:         s.Month,
		Amount:        s.Amount,
		Status:        f.Status,
		PaidOn:        f.PaidOn,
		TransactionID: f.TransactionID,
	}
}

func (repo *feesRepository) GetRecord(_ context.Context, id int64) (fees.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if f, ok := repo.db.feeRecords[id]; ok {
		return repo.joined(f), nil
	}
	return fees.Record{}, fees.ErrRecordNotFound
}

func (repo *feesRepository) ListRecords(_ context.Context, filter fees.RecordFilter) ([]fees.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var students map[string]bool
	if len(filter.StudentIDs) > 0 {
		students = make(map[string]bool, len(filter.StudentIDs))
		for _, id := range filter.StudentIDs {
			students[id] = true
		}
	}

	list := make([]fees.Record, 0)
	for _, f := range repo.db.feeRecords {
		rec := repo.joined(f)
		switch {
		case students != nil && !students[rec.StudentID]:
		case filter.Class != "" && rec.Class != filter.Class:
		case filter.Month != "" && rec.Month != filter.Month:
		case filter.Status != "" && rec.Status != filter.Status:
		default:
			list = append(list, rec)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.ID < b.ID
	})
	return list, nil
}

func (repo *feesRepository) MarkPaid(ctx context.Context, id int64, paidOn time.Time, transactionID string) (fees.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	db := repo.db
	old, ok := db.feeRecords[id]
	if !ok {
		return fees.Record{}, fees.ErrRecordNotFound
	}
	if old.Status != fees.StatusPending {
		return fees.Record{}, fees.ErrAlreadyPaid
	}
	for _, f := range db.feeRecords {
		if f.TransactionID != nil && *f.TransactionID == transactionID {
			return fees.Record{}, &core.ConflictError{Constraint: fees.ConstraintTransactionID}
		}
	}

	upd := old
	upd.Status = fees.StatusPaid
	upd.PaidOn = &paidOn
	upd.TransactionID = &transactionID
	db.feeRecords[id] = upd
	onRollback(ctx, func() { db.feeRecords[id] = old })
	return repo.joined(upd), nil
}
