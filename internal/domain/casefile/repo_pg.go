package casefile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kpcrmv4/dentalos-sub000/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

var (
	ErrCaseNotFound = errors.New("clinical case not found")
	ErrNeedNotFound = errors.New("material need not found")
)

// =========== Clinical Case Repository ===========

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository { return &caseRepoPG{pool: pool} }

func (r *caseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const caseCols = `id, patient_ref, title, clinician_ref, scheduled_date, status, readiness, note, created_at, updated_at`

func (r *caseRepoPG) scanCase(row pgx.Row) (*ClinicalCase, error) {
	var cc ClinicalCase
	err := row.Scan(&cc.ID, &cc.PatientRef, &cc.Title, &cc.ClinicianRef, &cc.ScheduledDate,
		&cc.Status, &cc.Readiness, &cc.Note, &cc.CreatedAt, &cc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	return &cc, err
}

func (r *caseRepoPG) Create(ctx context.Context, cc *ClinicalCase) error {
	cc.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_case (id, patient_ref, title, clinician_ref, scheduled_date, status, readiness, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		cc.ID, cc.PatientRef, cc.Title, cc.ClinicianRef, cc.ScheduledDate, cc.Status, cc.Readiness, cc.Note)
	return err
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalCase, error) {
	return r.scanCase(r.conn(ctx).QueryRow(ctx, `SELECT `+caseCols+` FROM clinical_case WHERE id = $1`, id))
}

func (r *caseRepoPG) Update(ctx context.Context, cc *ClinicalCase) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_case SET title=$2, clinician_ref=$3, scheduled_date=$4, status=$5, note=$6, updated_at=NOW()
		WHERE id = $1`,
		cc.ID, cc.Title, cc.ClinicianRef, cc.ScheduledDate, cc.Status, cc.Note)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return err
}

func (r *caseRepoPG) UpdateReadiness(ctx context.Context, id uuid.UUID, readiness string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE clinical_case SET readiness=$2, updated_at=NOW() WHERE id = $1`, id, readiness)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return err
}

func (r *caseRepoPG) List(ctx context.Context, limit, offset int) ([]*ClinicalCase, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_case`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+caseCols+` FROM clinical_case ORDER BY scheduled_date NULLS LAST, created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ClinicalCase
	for rows.Next() {
		cc, err := r.scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cc)
	}
	return items, total, rows.Err()
}

// =========== Material Need Repository ===========

type needRepoPG struct{ pool *pgxpool.Pool }

func NewNeedRepoPG(pool *pgxpool.Pool) NeedRepository { return &needRepoPG{pool: pool} }

func (r *needRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const needCols = `id, case_id, product_id, quantity, note, created_at`

func (r *needRepoPG) scanNeed(row pgx.Row) (*MaterialNeed, error) {
	var n MaterialNeed
	err := row.Scan(&n.ID, &n.CaseID, &n.ProductID, &n.Quantity, &n.Note, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNeedNotFound
	}
	return &n, err
}

func (r *needRepoPG) Add(ctx context.Context, n *MaterialNeed) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO material_need (id, case_id, product_id, quantity, note)
		VALUES ($1,$2,$3,$4,$5)`,
		n.ID, n.CaseID, n.ProductID, n.Quantity, n.Note)
	return err
}

func (r *needRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MaterialNeed, error) {
	return r.scanNeed(r.conn(ctx).QueryRow(ctx, `SELECT `+needCols+` FROM material_need WHERE id = $1`, id))
}

func (r *needRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*MaterialNeed, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+needCols+` FROM material_need WHERE case_id = $1 ORDER BY created_at`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*MaterialNeed
	for rows.Next() {
		n, err := r.scanNeed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *needRepoPG) Remove(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM material_need WHERE id = $1`, id)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrNeedNotFound
	}
	return err
}
