package tickers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the persistence port of the tickers module
type Repository interface {
	FindTicker(ctx context.Context, symbol string) (*Ticker, error)
	UpsertTicker(ctx context.Context, t *Ticker) error
	ListTickers(ctx context.Context, limit, offset int) ([]Ticker, error)
	SaveTickers(ctx context.Context, ts []Ticker) error

	FindOption(ctx context.Context, q OptionQuery) (*Option, error)
	UpsertOption(ctx context.Context, o *Option) error
	ListOptions(ctx context.Context, limit, offset int) ([]Option, error)
	SaveOptions(ctx context.Context, opts []Option) error
}

var _ Repository = (*PostgresRepository)(nil)

// ----- Main struct repository and Querier ----- //

// PostgresRepository is the PostgreSQL implementation of Repository
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
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Querier struct {
	db DBQuerier
}

func NewQuerier(db DBQuerier) *Querier {
	return &Querier{db: db}
}

// ----- MODELS ----- //

type tickerModel struct {
	Ticker      string    `db:"ticker"`
	ClosedPrice float64   `db:"closed_price"`
	ClosedDate  time.Time `db:"closed_date"`
}

type optionModel struct {
	ID          string    `db:"id"`
	Type        string    `db:"type"`
	Ticker      string    `db:"ticker"`
	StrikePrice float64   `db:"strike_price"`
	Bid         float64   `db:"bid"`
	Ask         float64   `db:"ask"`
	ExpireDate  time.Time `db:"expire_date"`
	Volume      float64   `db:"volume"`
	IV          float64   `db:"iv"`
	ITM         bool      `db:"itm"`
}

// ----- MAPPERS ----- //

func toTickerDomain(m *tickerModel) Ticker {
	return Ticker{Symbol: m.Ticker, ClosedPrice: m.ClosedPrice, ClosedDate: m.ClosedDate}
}

func toOptionDomain(m *optionModel) Option {
	return Option{
		ID:          m.ID,
		Type:        OptionType(m.Type),
		Ticker:      m.Ticker,
		StrikePrice: m.StrikePrice,
		Bid:         m.Bid,
		Ask:         m.Ask,
		ExpireDate:  m.ExpireDate,
		Volume:      m.Volume,
		IV:          m.IV,
		ITM:         m.ITM,
	}
}

// ----- Repository Methods ----- //

func (r *PostgresRepository) FindTicker(ctx context.Context, symbol string) (*Ticker, error) {
	m, err := r.Querier().getTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	t := toTickerDomain(m)
	return &t, nil
}

func (r *PostgresRepository) UpsertTicker(ctx context.Context, t *Ticker) error {
	return r.Querier().upsertTicker(ctx, t)
}

func (r *PostgresRepository) ListTickers(ctx context.Context, limit, offset int) ([]Ticker, error) {
	return r.Querier().listTickers(ctx, limit, offset)
}

// SaveTickers writes one refresh page in a single transaction
func (r *PostgresRepository) SaveTickers(ctx context.Context, ts []Ticker) error {
	return r.ExecTx(ctx, func(q *Querier) error {
		return q.batchUpsertTickers(ctx, ts)
	})
}

func (r *PostgresRepository) FindOption(ctx context.Context, query OptionQuery) (*Option, error) {
	m, err := r.Querier().getOption(ctx, query)
	if err != nil {
		return nil, err
	}
	o := toOptionDomain(m)
	return &o, nil
}

func (r *PostgresRepository) UpsertOption(ctx context.Context, o *Option) error {
	return r.Querier().upsertOption(ctx, o)
}

func (r *PostgresRepository) ListOptions(ctx context.Context, limit, offset int) ([]Option, error) {
	return r.Querier().listOptions(ctx, limit, offset)
}

func (r *PostgresRepository) SaveOptions(ctx context.Context, opts []Option) error {
	return r.ExecTx(ctx, func(q *Querier) error {
		return q.batchUpsertOptions(ctx, opts)
	})
}

// ----- Querier Methods ----- //

const upsertTickerSQL = `
	INSERT INTO tickers (ticker, closed_price, closed_date)
	VALUES ($1, $2, $3)
	ON CONFLICT (ticker)
	DO UPDATE SET
		closed_price = EXCLUDED.closed_price,
		closed_date = EXCLUDED.closed_date
`

const upsertOptionSQL = `
	INSERT INTO options (id, type, ticker, strike_price, bid, ask, expire_date, volume, iv, itm)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id)
	DO UPDATE SET
		bid = EXCLUDED.bid,
		ask = EXCLUDED.ask,
		volume = EXCLUDED.volume,
		iv = EXCLUDED.iv,
		itm = EXCLUDED.itm
`

func (q *Querier) getTicker(ctx context.Context, symbol string) (*tickerModel, error) {
	query := `SELECT ticker, closed_price, closed_date FROM tickers WHERE ticker = $1`

	var m tickerModel
	err := q.db.QueryRow(ctx, query, symbol).Scan(&m.Ticker, &m.ClosedPrice, &m.ClosedDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTickerNotFound
		}
		return nil, fmt.Errorf("failed to fetch ticker: %w", err)
	}
	return &m, nil
}

func (q *Querier) upsertTicker(ctx context.Context, t *Ticker) error {
	if _, err := q.db.Exec(ctx, upsertTickerSQL, t.Symbol, t.ClosedPrice, t.ClosedDate); err != nil {
		return fmt.Errorf("failed to upsert ticker: %w", err)
	}
	return nil
}

func (q *Querier) listTickers(ctx context.Context, limit, offset int) ([]Ticker, error) {
	query := `
		SELECT ticker, closed_price, closed_date
		FROM tickers
		ORDER BY ticker
		LIMIT $1 OFFSET $2
	`

	rows, err := q.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var out []Ticker
	for rows.Next() {
		var m tickerModel
		if err := rows.Scan(&m.Ticker, &m.ClosedPrice, &m.ClosedDate); err != nil {
			return nil, fmt.Errorf("failed to scan ticker row: %w", err)
		}
		out = append(out, toTickerDomain(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed during ticker rows iteration: %w", err)
	}
	return out, nil
}

func (q *Querier) batchUpsertTickers(ctx context.Context, ts []Ticker) error {
	if len(ts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range ts {
		batch.Queue(upsertTickerSQL, t.Symbol, t.ClosedPrice, t.ClosedDate)
	}

	br := q.db.SendBatch(ctx, batch)
	defer br.Close()

	for range ts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to batch upsert tickers: %w", err)
		}
	}
	return nil
}

func (q *Querier) getOption(ctx context.Context, oq OptionQuery) (*optionModel, error) {
	query := `
		SELECT id, type, ticker, strike_price, bid, ask, expire_date, volume, iv, itm
		FROM options
		WHERE ticker = $1 AND type = $2 AND expire_date = $3 AND strike_price = $4
		LIMIT 1
	`

	var m optionModel
	err := q.db.QueryRow(ctx, query, oq.Ticker, string(oq.Type), oq.ExpireDate, oq.StrikePrice).Scan(
		&m.ID,
		&m.Type,
		&m.Ticker,
		&m.StrikePrice,
		&m.Bid,
		&m.Ask,
		&m.ExpireDate,
		&m.Volume,
		&m.IV,
		&m.ITM,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOptionNotFound
		}
		return nil, fmt.Errorf("failed to fetch option: %w", err)
	}
	return &m, nil
}

func (q *Querier) upsertOption(ctx context.Context, o *Option) error {
	_, err := q.db.Exec(ctx, upsertOptionSQL, optionArgs(o)...)
	if err != nil {
		return fmt.Errorf("failed to upsert option: %w", err)
	}
	return nil
}

func (q *Querier) listOptions(ctx context.Context, limit, offset int) ([]Option, error) {
	query := `
		SELECT id, type, ticker, strike_price, bid, ask, expire_date, volume, iv, itm
		FROM options
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := q.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	var out []Option
	for rows.Next() {
		var m optionModel
		if err := rows.Scan(
			&m.ID,
			&m.Type,
			&m.Ticker,
			&m.StrikePrice,
			&m.Bid,
			&m.Ask,
			&m.ExpireDate,
			&m.Volume,
			&m.IV,
			&m.ITM,
		); err != nil {
			return nil, fmt.Errorf("failed to scan option row: %w", err)
		}
		out = append(out, toOptionDomain(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed during option rows iteration: %w", err)
	}
	return out, nil
}

func (q *Querier) batchUpsertOptions(ctx context.Context, opts []Option) error {
	if len(opts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range opts {
		batch.Queue(upsertOptionSQL, optionArgs(&opts[i])...)
	}

	br := q.db.SendBatch(ctx, batch)
	defer br.Close()

	for range opts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to batch upsert options: %w", err)
		}
	}
	return nil
}

func optionArgs(o *Option) []any {
	return []any{
		o.ID,
		string(o.Type),
		o.Ticker,
		o.StrikePrice,
		o.Bid,
		o.Ask,
		o.ExpireDate,
		o.Volume,
		o.IV,
		o.ITM,
	}
}
