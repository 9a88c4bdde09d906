package gateway

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tkivisto/ecugate/pkg/api"
	"github.com/tkivisto/ecugate/pkg/messages"
)

// Audit is an append-only record of processed messages backed by
// SQLite. It is an operational trail for the gateway, not runtime
// state: the queue and the machine never read from it.
type Audit struct {
	db *sql.DB
}

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	MessageID   string
	MessageType string
	ECUID       string
	Summary     string
	ProcessedAt time.Time
}

// OpenAudit opens (creating if needed) the audit database at path and
// initializes the schema.
func OpenAudit(path string) (*Audit, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	a, err := NewAudit(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// NewAudit initializes the required schema in the given database and
// returns a new Audit over it. The caller keeps ownership of db unless
// it came from OpenAudit.
func NewAudit(db *sql.DB) (*Audit, error) {
	a := &Audit{db: db}
	if err := a.initSchema(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Audit) initSchema() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_messages (
			message_id TEXT NOT NULL,
			message_type TEXT NOT NULL,
			ecu_id TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL,
			processed_at TIMESTAMP NOT NULL
		);`,
	)
	return err
}

// Record appends one processed message to the trail.
func (a *Audit) Record(msg api.Message) error {
	ecuID := ""
	if m, ok := msg.(*messages.ECUData); ok {
		ecuID = m.ECUID()
	}

	_, err := a.db.Exec(`
		INSERT INTO processed_messages (message_id, message_type, ecu_id, summary, processed_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID(),
		msg.Type(),
		ecuID,
		msg.String(),
		time.Now().UTC(),
	)
	return err
}

// Count returns the number of recorded messages.
func (a *Audit) Count() (int64, error) {
	var n int64
	err := a.db.QueryRow(`SELECT COUNT(*) FROM processed_messages`).Scan(&n)
	return n, err
}

// Recent returns up to limit of the most recently recorded entries,
// newest first.
func (a *Audit) Recent(limit int) ([]AuditEntry, error) {
	rows, err := a.db.Query(`
		SELECT message_id, message_type, ecu_id, summary, processed_at
		FROM processed_messages
		ORDER BY processed_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.MessageID, &e.MessageType, &e.ECUID, &e.Summary, &e.ProcessedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (a *Audit) Close() error {
	return a.db.Close()
}
