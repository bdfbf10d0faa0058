package reservation

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

// =========== Reservation Repository ===========

type reservationRepoPG struct{ pool *pgxpool.Pool }

func NewReservationRepoPG(pool *pgxpool.Pool) ReservationRepository {
	return &reservationRepoPG{pool: pool}
}

func (r *reservationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const reservationCols = `id, case_id, product_id, lot_id, quantity, consumed, state, created_by,
	resolution_reason, superseded_by, created_at, resolved_at, updated_at`

func (r *reservationRepoPG) scanReservation(row pgx.Row) (*Reservation, error) {
	var rv Reservation
	err := row.Scan(&rv.ID, &rv.CaseID, &rv.ProductID, &rv.LotID, &rv.Quantity, &rv.Consumed,
		&rv.State, &rv.CreatedBy, &rv.ResolutionReason, &rv.SupersededBy,
		&rv.CreatedAt, &rv.ResolvedAt, &rv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return &rv, err
}

func (r *reservationRepoPG) Create(ctx context.Context, rv *Reservation) error {
	if rv.ID == uuid.Nil {
		rv.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reservation (id, case_id, product_id, lot_id, quantity, consumed, state, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rv.ID, rv.CaseID, rv.ProductID, rv.LotID, rv.Quantity, rv.Consumed, rv.State, rv.CreatedBy)
	return err
}

func (r *reservationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	return r.scanReservation(r.conn(ctx).QueryRow(ctx, `SELECT `+reservationCols+` FROM reservation WHERE id = $1`, id))
}

func (r *reservationRepoPG) Update(ctx context.Context, rv *Reservation) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE reservation SET quantity=$2, consumed=$3, state=$4,
			resolution_reason=$5, superseded_by=$6, resolved_at=$7, updated_at=NOW()
		WHERE id = $1`,
		rv.ID, rv.Quantity, rv.Consumed, rv.State, rv.ResolutionReason, rv.SupersededBy, rv.ResolvedAt)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return err
}

func (r *reservationRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Reservation, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reservationCols+` FROM reservation WHERE case_id = $1 ORDER BY created_at`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Reservation
	for rows.Next() {
		rv, err := r.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rv)
	}
	return items, rows.Err()
}

func (r *reservationRepoPG) ListActiveByLot(ctx context.Context, lotID uuid.UUID) ([]*Reservation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+reservationCols+` FROM reservation
		WHERE lot_id = $1 AND state IN ($2, $3) ORDER BY created_at`,
		lotID, StateReserved, StatePartiallyUsed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Reservation
	for rows.Next() {
		rv, err := r.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rv)
	}
	return items, rows.Err()
}

// =========== Usage Repository ===========

type usageRepoPG struct{ pool *pgxpool.Pool }

func NewUsageRepoPG(pool *pgxpool.Pool) UsageRepository { return &usageRepoPG{pool: pool} }

func (r *usageRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const usageCols = `id, case_id, reservation_id, product_id, lot_id, quantity_used, evidence_ref, reason, recorded_by, recorded_at`

func (r *usageRepoPG) Append(ctx context.Context, u *MaterialUsageRecord) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO material_usage_record (id, case_id, reservation_id, product_id, lot_id, quantity_used, evidence_ref, reason, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.CaseID, u.ReservationID, u.ProductID, u.LotID, u.QuantityUsed, u.EvidenceRef, u.Reason, u.RecordedBy)
	return err
}

func (r *usageRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*MaterialUsageRecord, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+usageCols+` FROM material_usage_record WHERE case_id = $1 ORDER BY recorded_at`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*MaterialUsageRecord
	for rows.Next() {
		var u MaterialUsageRecord
		if err := rows.Scan(&u.ID, &u.CaseID, &u.ReservationID, &u.ProductID, &u.LotID,
			&u.QuantityUsed, &u.EvidenceRef, &u.Reason, &u.RecordedBy, &u.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, &u)
	}
	return items, rows.Err()
}
