package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/georgevio/oml4go/internal/infrastructure/config"
	"github.com/georgevio/oml4go/internal/infrastructure/database"

	_ "github.com/georgevio/oml4go/migrations" // registers the spool schema
)

// spoolSink records protocol text into a SQLite file, one row per line.
type spoolSink struct {
	db      *database.DB
	session int64
	pending bytes.Buffer
}

// SpoolDialer returns a dialer for "sqlite:<path>" URLs. Each connection
// opens a new session so a reconnect shows up as a fresh header block.
func SpoolDialer(cfg config.SpoolConfig) Dialer {
	return func(ctx context.Context, target string) (Sink, error) {
		if target == "" {
			return nil, fmt.Errorf("%w: sqlite url without path", ErrInvalidURL)
		}

		db, err := openSpool(ctx, cfg, target)
		if err != nil {
			return nil, err
		}

		res, err := db.ExecContext(ctx,
			"INSERT INTO spool_sessions (target, opened_at) VALUES (?, ?)",
			target, time.Now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("opening spool session: %w", err)
		}
		session, err := res.LastInsertId()
		if err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("opening spool session: %w", err)
		}

		return &spoolSink{db: db, session: session}, nil
	}
}

func openSpool(ctx context.Context, cfg config.SpoolConfig, path string) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}
	return db, nil
}

func (s *spoolSink) Write(p []byte) (int, error) {
	return s.pending.Write(p)
}

// Flush stores every complete buffered line in a single transaction.
// A trailing partial line stays buffered.
func (s *spoolSink) Flush() error {
	data := s.pending.Bytes()
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO spool_lines (session, line, written_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing spool insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, line := range bytes.Split(data[:end], []byte{'\n'}) {
		if _, err := stmt.ExecContext(ctx, s.session, string(line), now); err != nil {
			return fmt.Errorf("writing spool line: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing spool lines: %w", err)
	}

	s.pending.Next(end + 1)
	return nil
}

func (s *spoolSink) Close() error {
	flushErr := s.Flush()
	if err := s.db.Close(); err != nil {
		return err
	}
	return flushErr
}

// SpoolSession describes one connection recorded in a spool.
type SpoolSession struct {
	ID       int64
	Target   string
	OpenedAt time.Time
	Lines    int
}

// Spool gives read access to a spool file written by sqlite: channels.
type Spool struct {
	db *database.DB
}

// OpenSpool opens (and if needed creates) the spool at path.
func OpenSpool(ctx context.Context, cfg config.SpoolConfig, path string) (*Spool, error) {
	db, err := openSpool(ctx, cfg, path)
	if err != nil {
		return nil, err
	}
	return &Spool{db: db}, nil
}

// Sessions lists recorded sessions, oldest first.
func (s *Spool) Sessions(ctx context.Context) ([]SpoolSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.target, s.opened_at, COUNT(l.id)
		FROM spool_sessions s LEFT JOIN spool_lines l ON l.session = s.id
		GROUP BY s.id ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("listing spool sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SpoolSession
	for rows.Next() {
		var ss SpoolSession
		var opened string
		if err := rows.Scan(&ss.ID, &ss.Target, &opened, &ss.Lines); err != nil {
			return nil, fmt.Errorf("scanning spool session: %w", err)
		}
		ss.OpenedAt, _ = time.Parse(time.RFC3339Nano, opened) //nolint:errcheck // Format is controlled
		sessions = append(sessions, ss)
	}
	return sessions, rows.Err()
}

// Dump writes the protocol text of one session to w, or of every session
// in order when session is zero.
func (s *Spool) Dump(ctx context.Context, session int64, w io.Writer) error {
	query := "SELECT line FROM spool_lines ORDER BY session, id"
	var args []any
	if session != 0 {
		query = "SELECT line FROM spool_lines WHERE session = ? ORDER BY id"
		args = append(args, session)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reading spool: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("scanning spool line: %w", err)
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Reset drops the spool tables by rolling back their migration.
func (s *Spool) Reset(ctx context.Context) error {
	return s.db.MigrateDown(ctx)
}

// Close releases the spool file.
func (s *Spool) Close() error {
	return s.db.Close()
}
