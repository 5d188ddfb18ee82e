// Package inmemdb keeps every table in memory, enforcing the same unique constraints and cascades
// as the PostgreSQL schema. It backs service tests and demo runs.
package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/attendance"
	"github.com/vidhyasetu/backend/core/fees"
	"github.com/vidhyasetu/backend/core/homework"
	"github.com/vidhyasetu/backend/core/marks"
	"github.com/vidhyasetu/backend/core/notice"
	"github.com/vidhyasetu/backend/core/user"
)

type feeRow struct {
	ID            int64
	StudentID     string
	StructureID   int64
	Status        fees.Status
	PaidOn        *time.Time
	TransactionID *string
}

type DB struct {
	mu sync.RWMutex

	users      map[string]user.User
	teachers   map[string]user.TeacherProfile
	students   map[string]user.StudentProfile
	attendance map[int64]attendance.Record
	subjects   map[int64]marks.Subject
	marks      map[int64]marks.Mark
	structures map[int64]fees.Structure
	feeRecords map[int64]feeRow
	notices    map[int64]notice.Notice
	homework   map[int64]homework.Homework

	seq int64
}

var _ core.Transactor = (*DB)(nil)

func New() *DB {
	return &DB{
		users:      make(map[string]user.User),
		teachers:   make(map[string]user.TeacherProfile),
		students:   make(map[string]user.StudentProfile),
		attendance: make(map[int64]attendance.Record),
		subjects:   make(map[int64]marks.Subject),
		marks:      make(map[int64]marks.Mark),
		structures: make(map[int64]fees.Structure),
		feeRecords: make(map[int64]feeRow),
		notices:    make(map[int64]notice.Notice),
		homework:   make(map[int64]homework.Homework),
	}
}

// nextID must be called with db.mu held.
func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

type txKey struct{}

// txLog collects the undo steps of the writes made within a transaction.
type txLog struct {
	mu   sync.Mutex
	undo []func()
}

// WithinTx runs fn; when fn fails every write it made through ctx is undone, newest first.
// Transactions are not isolated from each other: like READ COMMITTED without locks, concurrent
// transactions only collide on unique constraints.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txLog); ok {
		return fn(ctx)
	}

	tx := new(txLog)
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		db.mu.Lock()
		tx.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		tx.undo = nil
		tx.mu.Unlock()
		db.mu.Unlock()
		return err
	}
	return nil
}

// onRollback registers undo for the write being made. It must be called with db.mu held.
func onRollback(ctx context.Context, undo func()) {
	tx, ok := ctx.Value(txKey{}).(*txLog)
	if !ok {
		return
	}
	tx.mu.Lock()
	tx.undo = append(tx.undo, undo)
	tx.mu.Unlock()
}
