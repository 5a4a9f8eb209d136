package pgstore

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/davidahmann/specgate/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func OpenPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) WithTx(fn func(ledger.Tx) error) error {
	tx, err := s.db.BeginTx(context.Background(), &sql.TxOptions{})
	if err != nil {
		return err
	}
	wrapped := &Tx{tx: tx}
	if err := fn(wrapped); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) PutReport(rec ledger.ReportRecord) error {
	return s.WithTx(func(tx ledger.Tx) error { return tx.PutReport(rec) })
}

func (s *Store) GetReport(reportID string) (ledger.ReportRecord, bool) {
	return scanReport(s.db.QueryRow(selectReport+` WHERE report_id = $1`, reportID))
}

func (s *Store) ListReports(limit int) ([]ledger.ReportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(selectReport+`
ORDER BY created_at DESC, report_id ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ledger.ReportRecord{}
	for rows.Next() {
		var rec ledger.ReportRecord
		var body string
		if err := rows.Scan(&rec.ReportID, &rec.Score, &rec.Level, &rec.DocumentTitle, &rec.DocumentURL, &rec.RulesHash, &body, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.BodyJSON = []byte(body)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// created_at is rendered back as RFC3339 UTC so records match the other stores.
const selectReport = `SELECT report_id, score, level, document_title, document_url, rules_hash, body_json,
  to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
FROM specgate_quality_reports`

func scanReport(row *sql.Row) (ledger.ReportRecord, bool) {
	var rec ledger.ReportRecord
	var body string
	if err := row.Scan(&rec.ReportID, &rec.Score, &rec.Level, &rec.DocumentTitle, &rec.DocumentURL, &rec.RulesHash, &body, &rec.CreatedAt); err != nil {
		return ledger.ReportRecord{}, false
	}
	rec.BodyJSON = []byte(body)
	return rec, true
}

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) PutReport(rec ledger.ReportRecord) error {
	_, err := t.tx.Exec(
		`INSERT INTO specgate_quality_reports(report_id, score, level, document_title, document_url, rules_hash, body_json, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT(report_id) DO NOTHING`,
		rec.ReportID,
		rec.Score,
		rec.Level,
		rec.DocumentTitle,
		rec.DocumentURL,
		rec.RulesHash,
		string(rec.BodyJSON),
		rec.CreatedAt,
	)
	return err
}

func (t *Tx) GetReport(reportID string) (ledger.ReportRecord, bool) {
	return scanReport(t.tx.QueryRow(selectReport+` WHERE report_id = $1`, reportID))
}
