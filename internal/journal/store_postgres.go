package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"flightsurety/pkg/domain"
	"flightsurety/pkg/platform/sentinel"
	txcontext "flightsurety/pkg/platform/tx"
)

const uniqueViolation = "23505"

// schema creates the journal table. Safe to run repeatedly.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_journal (
		seq        BIGSERIAL PRIMARY KEY,
		id         UUID NOT NULL UNIQUE,
		op         TEXT NOT NULL,
		actor      TEXT NOT NULL,
		payload    JSONB NOT NULL,
		request_id TEXT NOT NULL DEFAULT '',
		at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_journal_op_idx ON ledger_journal (op)`,
}

// PostgresStore persists the journal in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Migrate creates the journal table and its indexes in one transaction.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		for _, stmt := range schema {
			if _, err := s.execer(ctx).ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate journal: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) (Entry, error) {
	query := `
		INSERT INTO ledger_journal (id, op, actor, payload, request_id, at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		entry.ID,
		string(entry.Op),
		entry.Actor.String(),
		[]byte(entry.Payload),
		entry.RequestID,
		entry.At,
	).Scan(&entry.Seq)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return Entry{}, fmt.Errorf("append entry %s: %w", entry.ID, sentinel.ErrConflict)
		}
		return Entry{}, fmt.Errorf("append entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT seq, id, op, actor, payload, request_id, at
		FROM ledger_journal
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			op      string
			actor   string
			payload []byte
		)
		if err := rows.Scan(&e.Seq, &e.ID, &op, &actor, &payload, &e.RequestID, &e.At); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Op = Op(op)
		e.Actor = domain.Address(actor)
		e.Payload = payload
		e.At = e.At.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}
