package inventory

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

type lotRepoPG struct{ pool *pgxpool.Pool }

func NewLotRepoPG(pool *pgxpool.Pool) LotRepository { return &lotRepoPG{pool: pool} }

func (r *lotRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const lotCols = `id, product_id, lot_code, expiry_date, on_hand_qty, committed_qty, status, received_by, note, created_at, updated_at`

func (r *lotRepoPG) scanLot(row pgx.Row) (*StockLot, error) {
	var l StockLot
	err := row.Scan(&l.ID, &l.ProductID, &l.LotCode, &l.ExpiryDate, &l.OnHandQty, &l.CommittedQty,
		&l.Status, &l.ReceivedBy, &l.Note, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLotNotFound
	}
	return &l, err
}

func (r *lotRepoPG) Create(ctx context.Context, l *StockLot) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO stock_lot (id, product_id, lot_code, expiry_date, on_hand_qty, committed_qty, status, received_by, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		l.ID, l.ProductID, l.LotCode, l.ExpiryDate, l.OnHandQty, l.CommittedQty, l.Status, l.ReceivedBy, l.Note)
	return err
}

func (r *lotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*StockLot, error) {
	return r.scanLot(r.conn(ctx).QueryRow(ctx, `SELECT `+lotCols+` FROM stock_lot WHERE id = $1`, id))
}

func (r *lotRepoPG) UpdateQuantities(ctx context.Context, l *StockLot) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE stock_lot SET on_hand_qty=$2, committed_qty=$3, status=$4, updated_at=NOW()
		WHERE id = $1`,
		l.ID, l.OnHandQty, l.CommittedQty, l.Status)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return err
}

func (r *lotRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE stock_lot SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return err
}

func (r *lotRepoPG) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*StockLot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+lotCols+` FROM stock_lot
		WHERE product_id = $1
		ORDER BY expiry_date ASC NULLS LAST, lot_code ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StockLot
	for rows.Next() {
		l, err := r.scanLot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *lotRepoPG) List(ctx context.Context, limit, offset int) ([]*StockLot, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM stock_lot`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+lotCols+` FROM stock_lot
		ORDER BY expiry_date ASC NULLS LAST, lot_code ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*StockLot
	for rows.Next() {
		l, err := r.scanLot(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}
