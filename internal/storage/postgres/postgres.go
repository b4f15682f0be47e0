// Package postgres хранилище бронирований в PostgreSQL
package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/pkg/errors"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	date TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (start_time < end_time)
);

CREATE INDEX IF NOT EXISTS idx_reservations_date ON reservations(date, start_time);
CREATE INDEX IF NOT EXISTS idx_reservations_owner ON reservations(owner_id);
`

// Store реализует storage.ReservationStore поверх pgxpool
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.ReservationStore = (*Store)(nil)

// Open подключается к базе и применяет схему
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

// Migrate создает таблицы, если их нет
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return booking.Persistence("ping", err)
	}
	return nil
}

const selectColumns = `SELECT id, owner_id, date, start_time, end_time, created_at FROM reservations`

func (s *Store) List(ctx context.Context, f storage.Filter) ([]booking.Reservation, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.From != "" {
		add("date >= $%d", f.From)
	}
	if f.To != "" {
		add("date <= $%d", f.To)
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, start_time, end_time"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, booking.Persistence("list", err)
	}
	defer rows.Close()

	items := []booking.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, booking.Persistence("list", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, booking.Persistence("list", err)
	}
	return items, nil
}

// Create сериализует создания в пределах одного дня через advisory lock,
// затем проверяет пересечение и вставляет запись в той же транзакции
func (s *Store) Create(ctx context.Context, r booking.Reservation) (booking.Reservation, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return booking.Reservation{}, booking.Persistence("create", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "navatar:"+r.Date); err != nil {
		return booking.Reservation{}, booking.Persistence("create", fmt.Errorf("lock day: %w", err))
	}

	row := tx.QueryRow(ctx, selectColumns+`
		WHERE date = $1 AND start_time < $2 AND end_time > $3
		ORDER BY start_time LIMIT 1`, r.Date, r.EndTime, r.StartTime)
	conflict, err := scanReservation(row)
	switch {
	case err == nil:
		return booking.Reservation{}, &booking.OverlapError{With: conflict, Owner: r.OwnerID}
	case !stderrors.Is(err, pgx.ErrNoRows):
		return booking.Reservation{}, booking.Persistence("create", fmt.Errorf("check overlap: %w", err))
	}

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`INSERT INTO reservations (id, owner_id, date, start_time, end_time, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ID, r.OwnerID, r.Date, r.StartTime, r.EndTime, r.CreatedAt,
	); err != nil {
		return booking.Reservation{}, booking.Persistence("create", fmt.Errorf("insert: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return booking.Reservation{}, booking.Persistence("create", fmt.Errorf("commit: %w", err))
	}
	return r, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reservations WHERE id=$1`, id)
	if err != nil {
		return booking.Persistence("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrBookingNotFound.WithContext(map[string]interface{}{"id": id})
	}
	return nil
}

// truncate очищает таблицу, используется в тестах
func (s *Store) truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE reservations`)
	return err
}

func scanReservation(row pgx.Row) (booking.Reservation, error) {
	var r booking.Reservation
	err := row.Scan(&r.ID, &r.OwnerID, &r.Date, &r.StartTime, &r.EndTime, &r.CreatedAt)
	return r, err
}
