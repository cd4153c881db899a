package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"KinneretSentinel/internal/model"
)

const createSurveysTable = `CREATE TABLE IF NOT EXISTS kinneret_surveys (
	survey_date DATE PRIMARY KEY,
	level       DOUBLE PRECISION NOT NULL,
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps the history in a Postgres table keyed by survey date.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the surveys table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createSurveysTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create surveys table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

// Load returns all rows newest first. An empty table yields ErrNoHistory.
func (s *PostgresStore) Load(ctx context.Context) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT survey_date, level FROM kinneret_surveys ORDER BY survey_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query surveys: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var (
			day   time.Time
			level float64
		)
		if err := rows.Scan(&day, &level); err != nil {
			return nil, fmt.Errorf("scan survey: %w", err)
		}
		records = append(records, model.Record{Date: day.Format(model.DateLayout), Level: level})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate surveys: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHistory
	}
	return records, nil
}

// Save inserts every record; rows already present keep their stored level.
func (s *PostgresStore) Save(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`INSERT INTO kinneret_surveys (survey_date, level) VALUES ($1::date, $2)
			ON CONFLICT (survey_date) DO NOTHING`, r.Date, r.Level)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert survey: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
