// Package repository implements the domain persistence ports over SQLite.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ehrledger/internal/domain"
)

// timeLayout is the canonical stored timestamp format. Fixed-width fractional
// seconds keep the lexicographic order of stored strings identical to temporal
// order, which the ts range conditions in buildWhere rely on. Full nanosecond
// precision is preserved, so rehashing a stored entry is byte-exact.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const entryColumns = `sequence_id, ts, actor_id, patient_id, action,
	patient_name, age, gender, diagnosis, medication, notes, visit_date, vitals,
	prev_hash, entry_hash`

// LedgerRepo persists audit entries. Appends and chain-tip reads go through
// the single-connection write pool; filtered list reads go through the read
// pool so they never queue behind an append.
type LedgerRepo struct {
	write *sql.DB
	read  *sql.DB
}

// NewLedgerRepo creates a LedgerRepo over a write/read pool pair.
// Passing the same handle for both is fine for tests.
func NewLedgerRepo(write, read *sql.DB) *LedgerRepo {
	return &LedgerRepo{write: write, read: read}
}

func (r *LedgerRepo) Insert(ctx context.Context, e *domain.Entry) error {
	var age interface{}
	if e.Payload.Age != nil {
		age = *e.Payload.Age
	}
	_, err := r.write.ExecContext(ctx, `
		INSERT INTO audit_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SequenceID,
		e.Timestamp.UTC().Format(timeLayout),
		e.ActorID,
		e.PatientID,
		string(e.Action),
		e.Payload.PatientName,
		age,
		e.Payload.Gender,
		e.Payload.Diagnosis,
		e.Payload.Medication,
		e.Payload.Notes,
		e.Payload.VisitDate,
		e.Payload.Vitals,
		e.PrevHash,
		e.EntryHash,
	)
	if err != nil {
		return domain.ErrStoreUnavailable(err, "insert audit entry")
	}
	return nil
}

func (r *LedgerRepo) Tip(ctx context.Context) (*domain.Entry, error) {
	row := r.write.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM audit_entries
		ORDER BY sequence_id DESC LIMIT 1`)
	return scanOptionalEntry(row)
}

func (r *LedgerRepo) Latest(ctx context.Context, patientID string) (*domain.Entry, error) {
	row := r.write.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM audit_entries
		WHERE patient_id = ?
		ORDER BY sequence_id DESC LIMIT 1`, patientID)
	return scanOptionalEntry(row)
}

func (r *LedgerRepo) List(ctx context.Context, f domain.EntryFilter) ([]domain.Entry, error) {
	if f.None {
		return nil, nil
	}

	where, args := buildWhere(f)
	rows, err := r.read.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM audit_entries`+where+`
		ORDER BY sequence_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepo) Count(ctx context.Context, f domain.EntryFilter) (int64, error) {
	if f.None {
		return 0, nil
	}

	where, args := buildWhere(f)
	var n int64
	err := r.read.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_entries`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

func buildWhere(f domain.EntryFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.PatientID != "" {
		conds = append(conds, "patient_id = ?")
		args = append(args, f.PatientID)
	}
	if f.ActorID != "" {
		conds = append(conds, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.PatientName != "" {
		conds = append(conds, "patient_name LIKE ?")
		args = append(args, "%"+f.PatientName+"%")
	}
	if !f.From.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, f.From.UTC().Format(timeLayout))
	}
	if !f.To.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, f.To.UTC().Format(timeLayout))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		e   domain.Entry
		ts  string
		age sql.NullInt64
	)
	err := row.Scan(
		&e.SequenceID, &ts, &e.ActorID, &e.PatientID, (*string)(&e.Action),
		&e.Payload.PatientName, &age, &e.Payload.Gender, &e.Payload.Diagnosis,
		&e.Payload.Medication, &e.Payload.Notes, &e.Payload.VisitDate,
		&e.Payload.Vitals, &e.PrevHash, &e.EntryHash,
	)
	if err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		e.Payload.Age = &v
	}
	e.Timestamp, err = time.Parse(timeLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("parse entry timestamp %q: %w", ts, err)
	}
	return &e, nil
}

func scanOptionalEntry(row *sql.Row) (*domain.Entry, error) {
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	return e, nil
}
