package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/policygate/policygate/internal/domain"
)

// SQLiteAuditStore persists audit records to a local SQLite file. WAL mode
// keeps appends cheap under concurrent moderation calls. Rows are only ever
// inserted; there is no update or delete path.
type SQLiteAuditStore struct {
	db *sql.DB
}

func NewSQLiteAuditStore(path string) (*SQLiteAuditStore, error) {
	if path == "" {
		return nil, fmt.Errorf("audit db path cannot be empty")
	}

	// modernc's driver takes pragmas as _pragma=name(value); the
	// mattn-style _journal_mode form is silently ignored.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS audit_log (
		     seq            INTEGER PRIMARY KEY AUTOINCREMENT,
		     event_id       TEXT NOT NULL UNIQUE,
		     timestamp      TEXT NOT NULL,
		     content_hash   TEXT NOT NULL,
		     content_length INTEGER NOT NULL,
		     verdict        TEXT NOT NULL,
		     provider_used  TEXT NOT NULL
		 )`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit_log table: %w", err)
	}

	return &SQLiteAuditStore{db: db}, nil
}

func (s *SQLiteAuditStore) Append(ctx context.Context, record *domain.AuditRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (event_id, timestamp, content_hash, content_length, verdict, provider_used)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.EventID.String(),
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.ContentHash,
		record.ContentLength,
		string(record.Verdict),
		string(record.ProviderUsed),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuditWriteFailed, err)
	}
	return nil
}

func (s *SQLiteAuditStore) List(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, timestamp, content_hash, content_length, verdict, provider_used
		 FROM audit_log ORDER BY seq ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.AuditRecord
	for rows.Next() {
		var (
			rec               domain.AuditRecord
			eventID, ts       string
			verdict, provider string
		)
		if err := rows.Scan(&eventID, &ts, &rec.ContentHash, &rec.ContentLength, &verdict, &provider); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		rec.EventID, err = uuid.Parse(eventID)
		if err != nil {
			return nil, fmt.Errorf("parse audit event id: %w", err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp: %w", err)
		}
		rec.Verdict = domain.Verdict(verdict)
		rec.ProviderUsed = domain.ProviderRole(provider)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit rows: %w", err)
	}

	return records, nil
}

func (s *SQLiteAuditStore) Close() error {
	return s.db.Close()
}

var _ domain.AuditStore = (*SQLiteAuditStore)(nil)
