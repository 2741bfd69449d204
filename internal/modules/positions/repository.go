package positions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists positions. Every lookup is scoped to the owner, so a
// position of another user is reported as ErrPositionNotFound
type Repository interface {
	Save(ctx context.Context, p *Position) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*Position, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Position, error)
	// Update loads the position, lets fn modify it and writes it back atomically
	Update(ctx context.Context, ownerID, id uuid.UUID, fn func(p *Position) error) (*Position, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

var _ Repository = (*PostgresRepository)(nil)

// ----- Main struct repository and Querier ----- //

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ExecTx executes fn within a database transaction
func (r *PostgresRepository) ExecTx(ctx context.Context, fn func(q *Querier) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}

	if err := fn(NewQuerier(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("repository: transaction rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Querier() *Querier {
	return NewQuerier(r.pool)
}

// DBQuerier is satisfied by both *pgxpool.Pool and pgx.Tx
type DBQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Querier struct {
	db DBQuerier
}

func NewQuerier(db DBQuerier) *Querier {
	return &Querier{db: db}
}

// ----- MODELS ----- //

type positionModel struct {
	ID          uuid.UUID  `db:"id"`
	OwnerID     uuid.UUID  `db:"owner_id"`
	Ticker      string     `db:"ticker"`
	Category    string     `db:"category"`
	Qty         int        `db:"qty"`
	OptionPrice *float64   `db:"option_price"`
	TradePrice  float64    `db:"trade_price"`
	ClosedPrice *float64   `db:"closed_price"`
	IsActive    bool       `db:"is_active"`
	OpenDate    time.Time  `db:"open_date"`
	CloseDate   *time.Time `db:"close_date"`
	Remark      string     `db:"remark"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// ----- MAPPERS ----- //

func toPositionDomain(m *positionModel) Position {
	return Position{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Ticker:      m.Ticker,
		Category:    Category(m.Category),
		Qty:         m.Qty,
		OptionPrice: m.OptionPrice,
		TradePrice:  m.TradePrice,
		OpenDate:    m.OpenDate,
		CloseDate:   m.CloseDate,
		ClosedPrice: m.ClosedPrice,
		Remark:      m.Remark,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ----- Repository Methods ----- //

func (r *PostgresRepository) Save(ctx context.Context, p *Position) error {
	return r.Querier().insertPosition(ctx, p)
}

func (r *PostgresRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*Position, error) {
	p, err := r.Querier().getPosition(ctx, ownerID, id, false)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Position, error) {
	return r.Querier().listPositions(ctx, ownerID, limit, offset)
}

func (r *PostgresRepository) Update(ctx context.Context, ownerID, id uuid.UUID, fn func(p *Position) error) (*Position, error) {
	var out *Position
	err := r.ExecTx(ctx, func(q *Querier) error {
		p, err := q.getPosition(ctx, ownerID, id, true)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := q.updatePosition(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return r.Querier().deletePosition(ctx, ownerID, id)
}

// ----- Querier Methods ----- //

const positionColumns = `id, owner_id, ticker, category, qty, option_price, trade_price, closed_price,
	is_active, open_date, close_date, remark, created_at, updated_at`

func (q *Querier) insertPosition(ctx context.Context, p *Position) error {
	query := `
		INSERT INTO positions (id, owner_id, ticker, category, qty, option_price, trade_price,
			closed_price, is_active, open_date, close_date, remark)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := q.db.QueryRow(ctx, query,
		p.ID,
		p.OwnerID,
		p.Ticker,
		string(p.Category),
		p.Qty,
		p.OptionPrice,
		p.TradePrice,
		p.ClosedPrice,
		p.IsActive,
		p.OpenDate,
		p.CloseDate,
		p.Remark,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

func (q *Querier) getPosition(ctx context.Context, ownerID, id uuid.UUID, forUpdate bool) (*Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1 AND owner_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := q.db.Query(ctx, query, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch position: %w", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[positionModel])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}

	p := toPositionDomain(&m)
	return &p, nil
}

func (q *Querier) listPositions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE owner_id = $1
		ORDER BY open_date DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	models, err := pgx.CollectRows(rows, pgx.RowToStructByName[positionModel])
	if err != nil {
		return nil, fmt.Errorf("failed to scan position rows: %w", err)
	}

	out := make([]Position, len(models))
	for i := range models {
		out[i] = toPositionDomain(&models[i])
	}
	return out, nil
}

func (q *Querier) updatePosition(ctx context.Context, p *Position) error {
	query := `
		UPDATE positions SET
			ticker = $3,
			category = $4,
			qty = $5,
			option_price = $6,
			trade_price = $7,
			closed_price = $8,
			is_active = $9,
			open_date = $10,
			close_date = $11,
			remark = $12,
			updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING updated_at
	`

	err := q.db.QueryRow(ctx, query,
		p.ID,
		p.OwnerID,
		p.Ticker,
		string(p.Category),
		p.Qty,
		p.OptionPrice,
		p.TradePrice,
		p.ClosedPrice,
		p.IsActive,
		p.OpenDate,
		p.CloseDate,
		p.Remark,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPositionNotFound
		}
		return fmt.Errorf("failed to update position: %w", err)
	}
	return nil
}

func (q *Querier) deletePosition(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM positions WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPositionNotFound
	}
	return nil
}
