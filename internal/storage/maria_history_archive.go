package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/logging"
)

// MariaHistoryArchive реализует HistoryArchive для MariaDB/MySQL.
// Использует таблицу edit_transactions.
type MariaHistoryArchive struct {
	db *sql.DB
}

// NewMariaHistoryArchive подключается к базе и создаёт таблицу при необходимости.
//
// Параметры:
//
//	dsn - строка подключения (user:pass@tcp(host:port)/dbname)
func NewMariaHistoryArchive(dsn string) (*MariaHistoryArchive, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("некорректный DSN MariaDB: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	a := &MariaHistoryArchive{db: db}
	if err := a.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	logging.GetStorageLogger().Info("🗃️ Архив транзакций MariaDB подключён")
	return a, nil
}

func (a *MariaHistoryArchive) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS edit_transactions (
			id         CHAR(36)     PRIMARY KEY,
			operator   VARCHAR(64)  NOT NULL,
			world      VARCHAR(64)  NOT NULL,
			label      VARCHAR(64)  NOT NULL,
			changes    INT          NOT NULL,
			partial    BOOLEAN      NOT NULL DEFAULT FALSE,
			min_x INT NOT NULL, min_y INT NOT NULL, min_z INT NOT NULL,
			max_x INT NOT NULL, max_y INT NOT NULL, max_z INT NOT NULL,
			created_at DATETIME(3)  NOT NULL,
			INDEX idx_operator_created (operator, created_at)
		) ENGINE=InnoDB
	`

	if _, err := a.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы edit_transactions: %w", err)
	}
	return nil
}

// Record сохраняет запись. Повторная запись той же транзакции игнорируется.
func (a *MariaHistoryArchive) Record(ctx context.Context, rec history.Record) error {
	query := `
		INSERT IGNORE INTO edit_transactions
			(id, operator, world, label, changes, partial,
			 min_x, min_y, min_z, max_x, max_y, max_z, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := a.db.ExecContext(ctx, query,
		rec.ID.String(), rec.Operator, rec.World, rec.Label, rec.Changes, rec.Partial,
		rec.Min.X, rec.Min.Y, rec.Min.Z, rec.Max.X, rec.Max.Y, rec.Max.Z, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции %s: %w", rec.ID, err)
	}
	return nil
}

// List возвращает последние записи оператора
func (a *MariaHistoryArchive) List(ctx context.Context, operator string, limit int) ([]history.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, operator, world, label, changes, partial,
		       min_x, min_y, min_z, max_x, max_y, max_z, created_at
		FROM edit_transactions
		WHERE (? = '' OR operator = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := a.db.QueryContext(ctx, query, operator, operator, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения архива: %w", err)
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		var (
			rec history.Record
			id  string
		)
		if err := rows.Scan(&id, &rec.Operator, &rec.World, &rec.Label, &rec.Changes, &rec.Partial,
			&rec.Min.X, &rec.Min.Y, &rec.Min.Z, &rec.Max.X, &rec.Max.Y, &rec.Max.Z, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка разбора записи архива: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("некорректный ID транзакции %q: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close закрывает соединение с базой данных.
func (a *MariaHistoryArchive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
