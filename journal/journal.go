// Package journal keeps an SQLite audit trail of command sessions: what was sent where, and what
// came back.
package journal

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"nav-command/codec"
	"nav-command/message"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one finished session.
type Entry struct {
	ID      int64
	Time    time.Time
	Target  string // "host:port", empty if no target could be resolved
	Record  message.CommandRecord
	Reply   []byte
	Outcome string // see middleware.Classify
	Error   string
}

type Journal struct {
	db    *sql.DB
	codec *codec.BinaryCodec
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// sqlite allows one writer, keep every statement on the same connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	// Records are stored little endian so a journal can be read on another host.
	j := &Journal{db: db, codec: &codec.BinaryCodec{Order: binary.LittleEndian}}
	if err := j.init(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) init() error {
	_, err := j.db.Exec(`CREATE TABLE IF NOT EXISTS sessions(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		target TEXT NOT NULL,
		mode INTEGER NOT NULL,
		record BLOB NOT NULL,
		reply BLOB,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// Record appends e and returns its id.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	image, err := j.codec.Encode(&e.Record)
	if err != nil {
		return 0, err
	}

	res, err := j.db.ExecContext(ctx,
		`INSERT INTO sessions(at, target, mode, record, reply, outcome, error) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UnixNano(), e.Target, e.Record.Mode, image, e.Reply, e.Outcome, e.Error)
	if err != nil {
		return 0, fmt.Errorf("failed to record session: %w", err)
	}
	return res.LastInsertId()
}

// List returns the latest limit entries, newest first. limit <= 0 returns everything.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, at, target, record, reply, outcome, error FROM sessions ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e     Entry
			at    int64
			image []byte
		)
		if err := rows.Scan(&e.ID, &at, &e.Target, &image, &e.Reply, &e.Outcome, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if err := j.codec.Decode(image, &e.Record); err != nil {
			return nil, fmt.Errorf("session %d: %w", e.ID, err)
		}
		e.Time = time.Unix(0, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
