package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/astralabs/astra/internal/plan"
)

// AuditLog is a durable trail of everything the pipeline decided and did:
// the utterance, the resolved intent, the policy verdict, and the per-step
// execution report. It exists for after-the-fact review and has no role in
// pipeline decisions.
type AuditLog struct {
	DB *sql.DB
}

// AuditEntry is one recorded pipeline run.
type AuditEntry struct {
	ID        int64
	Utterance string
	Intent    string
	Allowed   bool
	Reason    string
	Report    plan.Report
	CreatedAt time.Time
}

func NewAuditLog(dbPath string) (*AuditLog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	query := `CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		utterance TEXT,
		intent TEXT,
		allowed INTEGER,
		reason TEXT,
		report TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, err
	}

	return &AuditLog{DB: db}, nil
}

// Record persists one pipeline run. The report may be nil for runs the
// guard rejected before dispatch.
func (a *AuditLog) Record(utterance, intent string, allowed bool, reason string, report plan.Report) error {
	encoded, err := json.Marshal(report)
	if err != nil {
		return err
	}
	query := `INSERT INTO runs (utterance, intent, allowed, reason, report) VALUES (?, ?, ?, ?, ?)`
	_, err = a.DB.Exec(query, utterance, intent, boolToInt(allowed), reason, string(encoded))
	return err
}

// Recent returns up to limit runs, newest first.
func (a *AuditLog) Recent(limit int) ([]AuditEntry, error) {
	query := `SELECT id, utterance, intent, allowed, reason, report, created_at
		FROM runs ORDER BY id DESC LIMIT ?`
	rows, err := a.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var allowed int
		var report string
		if err := rows.Scan(&e.ID, &e.Utterance, &e.Intent, &allowed, &e.Reason, &report, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Allowed = allowed != 0
		if report != "" && report != "null" {
			if err := json.Unmarshal([]byte(report), &e.Report); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (a *AuditLog) Close() error {
	return a.DB.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
