package catalog

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

var ErrProductNotFound = errors.New("product not found")

type productRepoPG struct{ pool *pgxpool.Pool }

func NewProductRepoPG(pool *pgxpool.Pool) ProductRepository { return &productRepoPG{pool: pool} }

func (r *productRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const productCols = `id, code, name, category, unit, tracks_expiry, is_active, note, created_at, updated_at`

func (r *productRepoPG) scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Category, &p.Unit, &p.TracksExpiry,
		&p.IsActive, &p.Note, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return &p, err
}

func (r *productRepoPG) Create(ctx context.Context, p *Product) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO product (id, code, name, category, unit, tracks_expiry, is_active, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.Code, p.Name, p.Category, p.Unit, p.TracksExpiry, p.IsActive, p.Note)
	return err
}

func (r *productRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return r.scanProduct(r.conn(ctx).QueryRow(ctx, `SELECT `+productCols+` FROM product WHERE id = $1`, id))
}

func (r *productRepoPG) GetByCode(ctx context.Context, code string) (*Product, error) {
	return r.scanProduct(r.conn(ctx).QueryRow(ctx, `SELECT `+productCols+` FROM product WHERE code = $1`, code))
}

func (r *productRepoPG) Update(ctx context.Context, p *Product) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE product SET name=$2, category=$3, unit=$4, tracks_expiry=$5, is_active=$6, note=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Category, p.Unit, p.TracksExpiry, p.IsActive, p.Note)
	return err
}

func (r *productRepoPG) List(ctx context.Context, limit, offset int) ([]*Product, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM product`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+productCols+` FROM product ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
