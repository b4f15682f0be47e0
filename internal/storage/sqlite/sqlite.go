package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/pkg/errors"
)

// SQLiteStorage реализует storage.ReservationStore для SQLite
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.ReservationStore = (*SQLiteStorage)(nil)

// New создает новое подключение к SQLite базе данных
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Одно соединение: транзакции проверки и вставки выполняются строго по очереди
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStorage{db: db, now: time.Now}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// dsn берет блокировку записи в начале транзакции: проверка пересечения и
// вставка не упираются в SQLITE_BUSY_SNAPSHOT, если файл открыт несколькими процессами
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_txlock=immediate&_pragma=busy_timeout(5000)"
}

// migrate выполняет миграции базы данных
func (s *SQLiteStorage) migrate() error {
	// Включаем WAL mode для лучшей конкурентности
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Другие процессы ждут освобождения блокировки вместо SQLITE_BUSY
	if _, err := s.db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			CHECK (start_time < end_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_date ON reservations(date, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_owner ON reservations(owner_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

// Close закрывает подключение к базе данных
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping проверяет подключение к базе данных
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return booking.Persistence("ping", err)
	}
	return nil
}

const selectColumns = `SELECT id, owner_id, date, start_time, end_time, created_at FROM reservations`

// List возвращает бронирования по фильтру, упорядоченные по дате и началу
func (s *SQLiteStorage) List(ctx context.Context, f storage.Filter) ([]booking.Reservation, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.From != "" {
		where = append(where, "date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "date <= ?")
		args = append(args, f.To)
	}
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, start_time, end_time"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, booking.Persistence("list", fmt.Errorf("failed to list reservations: %w", err))
	}
	defer rows.Close()

	items := []booking.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, booking.Persistence("list", fmt.Errorf("failed to scan reservation: %w", err))
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, booking.Persistence("list", err)
	}

	return items, nil
}

// Create атомарно проверяет пересечение и вставляет бронь
func (s *SQLiteStorage) Create(ctx context.Context, r booking.Reservation) (booking.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return booking.Reservation{}, booking.Persistence("create", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	// HH:MM сравниваются лексикографически, "24:00" больше любого времени дня
	row := tx.QueryRowContext(ctx, selectColumns+`
		WHERE date = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time LIMIT 1`, r.Date, r.EndTime, r.StartTime)

	conflict, err := scanReservation(row)
	switch {
	case err == nil:
		return booking.Reservation{}, &booking.OverlapError{With: conflict, Owner: r.OwnerID}
	case !stderrors.Is(err, sql.ErrNoRows):
		return booking.Reservation{}, booking.Persistence("create", fmt.Errorf("failed to check overlap: %w", err))
	}

	r.ID = uuid.NewString()
	r.CreatedAt = s.now().UTC()

	_, err = tx.ExecContext(ctx, `INSERT INTO reservations (id, owner_id, date, start_time, end_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, r.ID, r.OwnerID, r.Date, r.StartTime, r.EndTime, r.CreatedAt)
	if err != nil {
		return booking.Reservation{}, booking.Persistence("create", fmt.Errorf("failed to insert reservation: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return booking.Reservation{}, booking.Persistence("create", fmt.Errorf("failed to commit: %w", err))
	}

	return r, nil
}

// Delete удаляет бронь по id
func (s *SQLiteStorage) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return booking.Persistence("delete", fmt.Errorf("failed to delete reservation: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return booking.Persistence("delete", fmt.Errorf("failed to get affected rows: %w", err))
	}

	if rowsAffected == 0 {
		return errors.ErrBookingNotFound.WithContext(map[string]interface{}{"id": id})
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(sc scanner) (booking.Reservation, error) {
	var r booking.Reservation
	err := sc.Scan(&r.ID, &r.OwnerID, &r.Date, &r.StartTime, &r.EndTime, &r.CreatedAt)
	return r, err
}
