package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vidhyasetu/backend/core"
	"github.com/vidhyasetu/backend/core/fees"
	"github.com/vidhyasetu/backend/storage/database"
)

type feesRepository struct {
	repo
}

var _ fees.Repository = (*feesRepository)(nil)

func NewFeesRepository(db *sqlx.DB) fees.Repository {
	return &feesRepository{repo{db: db}}
}

func (r *feesRepository) CreateStructure(ctx context.Context, s fees.Structure) (fees.Structure, error) {
	err := r.exec(ctx).GetContext(ctx, &s.ID, `
		INSERT INTO fee_structure (class_name, month, amount, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		s.Class, s.Month, s.Amount, core.NowFunc().UTC())
	if err != nil {
		return fees.Structure{}, database.ConflictFromError(err)
	}
	return s, nil
}

func (r *feesRepository) GetStructure(ctx context.Context, id int64) (fees.Structure, error) {
	var s fees.Structure
	if err := r.exec(ctx).GetContext(ctx, &s, `SELECT id, class_name, month, amount FROM fee_structure WHERE id = $1`, id); err != nil {
		if database.IsNoRows(err) {
			return s, fees.ErrStructureNotFound
		}
		return s, errors.Wrap(err, "getting fee structure")
	}
	return s, nil
}

func (r *feesRepository) ListStructures(ctx context.Context, class string) ([]fees.Structure, error) {
	var w where
	if class != "" {
		w.add("class_name = ?", class)
	}
	list := make([]fees.Structure, 0)
	err := r.selectIn(ctx, &list, `SELECT id, class_name, month, amount FROM fee_structure`+w.String()+` ORDER BY class_name, month`, w.args...)
	return list, errors.Wrap(err, "listing fee structures")
}

func (r *feesRepository) CreatePendingRecords(ctx context.Context, structureID int64, studentIDs ...string) ([]string, error) {
	created := make([]string, 0)
	if len(studentIDs) == 0 {
		return created, nil
	}
	q, args, err := bind(`
		INSERT INTO student_fee (student_id, fee_structure_id, status, created_at)
		SELECT u.id, fs.id, 'PENDING', CAST(? AS timestamptz) FROM "user" u, fee_structure fs
		WHERE u.id IN (?) AND fs.id = ?
		ON CONFLICT ON CONSTRAINT student_fee_student_structure_key DO NOTHING
		RETURNING student_id`, core.NowFunc().UTC(), studentIDs, structureID)
	if err != nil {
		return nil, err
	}
	if err := r.exec(ctx).SelectContext(ctx, &created, q, args...); err != nil {
		return nil, errors.Wrap(err, "creating pending fee records")
	}
	if len(created) == 0 {
		if _, err := r.GetStructure(ctx, structureID); err != nil {
			return nil, err
		}
	}
	return created, nil
}

const recordColumns = `f.id, f.student_id, f.fee_structure_id AS structure_id, fs.class_name, fs.month, fs.amount,
	f.status, f.paid_on, f.transaction_id`

const recordFrom = ` FROM student_fee f JOIN fee_structure fs ON fs.id = f.fee_structure_id`

func (r *feesRepository) GetRecord(ctx context.Context, id int64) (fees.Record, error) {
	var rec fees.Record
	if err := r.exec(ctx).GetContext(ctx, &rec, `SELECT `+recordColumns+recordFrom+` WHERE f.id = $1`, id); err != nil {
		if database.IsNoRows(err) {
			return rec, fees.ErrRecordNotFound
		}
		return rec, errors.Wrap(err, "getting fee record")
	}
	return utcRecord(rec), nil
}

func (r *feesRepository) ListRecords(ctx context.Context, filter fees.RecordFilter) ([]fees.Record, error) {
	var w where
	if len(filter.StudentIDs) > 0 {
		w.add("f.student_id IN (?)", filter.StudentIDs)
	}
	if filter.Class != "" {
		w.add("fs.class_name = ?", filter.Class)
	}
	if filter.Month != "" {
		w.add("fs.month = ?", filter.Month)
	}
	if filter.Status != "" {
		w.add("f.status = ?", filter.Status)
	}
	list := make([]fees.Record, 0)
	if err := r.selectIn(ctx, &list, `SELECT `+recordColumns+recordFrom+w.String()+` ORDER BY fs.month, fs.class_name, f.id`, w.args...); err != nil {
		return nil, errors.Wrap(err, "listing fee records")
	}
	for i := range list {
		list[i] = utcRecord(list[i])
	}
	return list, nil
}

// MarkPaid only touches pending records, so two concurrent payments cannot both succeed.
func (r *feesRepository) MarkPaid(ctx context.Context, id int64, paidOn time.Time, transactionID string) (fees.Record, error) {
	res, err := r.exec(ctx).ExecContext(ctx, `
		UPDATE student_fee SET status = 'PAID', paid_on = $2, transaction_id = $3
		WHERE id = $1 AND status = 'PENDING'`, id, paidOn, transactionID)
	if err != nil {
		return fees.Record{}, database.ConflictFromError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fees.Record{}, errors.Wrap(err, "marking fee paid")
	}
	if n == 0 {
		if _, err := r.GetRecord(ctx, id); err != nil {
			return fees.Record{}, err
		}
		return fees.Record{}, fees.ErrAlreadyPaid
	}
	return r.GetRecord(ctx, id)
}

func utcRecord(rec fees.Record) fees.Record {
	if rec.PaidOn != nil {
		d := rec.PaidOn.UTC()
		rec.PaidOn = &d
	}
	return rec
}
