// Package journal хранит принятые MESSAGE в SQLite (WAL), чтобы их можно
// было просмотреть после остановки агента.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arzzra/sofia_sip/pkg/message"
)

// Entry запись журнала
type Entry struct {
	ID          int64
	ReceivedAt  time.Time
	From        string
	To          string
	Subject     string
	ContentType string
	Payload     []byte
}

// EntryFromView собирает запись из снимка сообщения. Отсутствующие
// поля остаются пустыми.
func EntryFromView(v message.View, at time.Time) Entry {
	e := Entry{ReceivedAt: at.UTC()}
	if from, ok := v.From(); ok {
		e.From = from.String()
	}
	if to, ok := v.To(); ok {
		e.To = to.String()
	}
	e.Subject, _ = v.Subject()
	e.ContentType, _ = v.ContentType()
	if pl, ok := v.Payload(); ok {
		e.Payload = pl.Bytes()
	}
	return e
}

// Journal хранилище
type Journal struct {
	db *sql.DB
}

// Open открывает или создает базу и применяет схему
func Open(path string) (*Journal, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return j, nil
}

// Close закрывает базу
func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		received_at  TEXT NOT NULL,
		from_addr    TEXT NOT NULL DEFAULT '',
		to_addr      TEXT NOT NULL DEFAULT '',
		subject      TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL DEFAULT '',
		payload      BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_messages_received ON messages(received_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record сохраняет запись и возвращает ее идентификатор
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	var id int64
	err := retryOnContention(ctx, func() error {
		res, err := j.db.ExecContext(ctx,
			`INSERT INTO messages (received_at, from_addr, to_addr, subject, content_type, payload)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.ReceivedAt.UTC().Format(time.RFC3339Nano), e.From, e.To, e.Subject, e.ContentType, e.Payload,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record message: %w", err)
	}
	return id, nil
}

// List последние limit записей, новые первыми. limit <= 0 без
// ограничения.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, received_at, from_addr, to_addr, subject, content_type, payload
		 FROM messages ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &at, &e.From, &e.To, &e.Subject, &e.ContentType, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if e.ReceivedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse received_at %q: %w", at, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count число записей
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
