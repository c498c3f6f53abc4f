package journal

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registered as "sqlite"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/xerrors"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	start_time TEXT NOT NULL,
	end_time TEXT,
	status TEXT NOT NULL,
	config TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES sessions(id),
	rule_name TEXT NOT NULL,
	action_tag TEXT NOT NULL,
	receipt BLOB NOT NULL,
	timestamp TEXT NOT NULL,
	undo_status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_session ON transactions(session_id);
`

// Journal is the embedded undo log. A real run opens a file-backed
// Journal; a dry run opens one against ":memory:" so the same code path
// exercises identical SQL without touching disk (property 10: dry-run
// mirrors a real run's decisions).
type Journal struct {
	db *sql.DB
}

// Open opens (and migrates) a Journal backed by path, or an in-memory
// database when path is ":memory:".
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, xerrors.Storagepathf(path, "open journal failed", err)
	}
	// Every connection to ":memory:" sees its own empty database, so the
	// in-memory journal keeps a single connection; a file journal is
	// bounded to five.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, xerrors.Storagepathf(path, "migrate journal failed", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// StartSession inserts a new session row in "running" status and returns
// its id.
func (j *Journal) StartSession(ctx context.Context, config string) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO sessions (start_time, status, config) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), "running", config)
	if err != nil {
		return 0, xerrors.Storagef("start_session failed", err)
	}
	return res.LastInsertId()
}

// EndSession stamps end_time and the final status on a session.
func (j *Journal) EndSession(ctx context.Context, id int64, status string) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE sessions SET end_time = ?, status = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), status, id)
	if err != nil {
		return xerrors.Storagef("end_session failed", err)
	}
	return nil
}

// GetLastSessionID returns the most recently started session's id.
func (j *Journal) GetLastSessionID(ctx context.Context) (int64, error) {
	var id int64
	err := j.db.QueryRowContext(ctx, `SELECT id FROM sessions ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err != nil {
		return 0, xerrors.Storagef("get_last_session_id failed", err)
	}
	return id, nil
}

// RecordTransactionInput bundles what RecordTransaction persists for one
// completed action.
type RecordTransactionInput struct {
	SessionID int64
	RuleName  string
	ActionTag string
	Receipt   *plugin.Receipt
}

// RecordTransaction inserts a transaction row, but only when the
// receipt carries at least one undo operation — an action with no undo
// (a read-only inspection, a no-op skip) is never persisted, per the
// journal's invariant that every row is replayable.
func (j *Journal) RecordTransaction(ctx context.Context, in RecordTransactionInput) error {
	if len(in.Receipt.Undo) == 0 {
		return nil
	}
	data, err := encodeReceipt(in.Receipt)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO transactions (session_id, rule_name, action_tag, receipt, timestamp, undo_status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.SessionID, in.RuleName, in.ActionTag, data,
		time.Now().UTC().Format(time.RFC3339Nano), string(UndoPending))
	if err != nil {
		return xerrors.Storagef("record_transaction failed", err)
	}
	return nil
}

// GetPendingTransactionsForSession returns every transaction for session
// still awaiting undo, oldest first (undo must replay in reverse
// chronological order, which the caller reverses).
func (j *Journal) GetPendingTransactionsForSession(ctx context.Context, sessionID int64) ([]*Transaction, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session_id, rule_name, action_tag, receipt, timestamp, undo_status
		 FROM transactions WHERE session_id = ? AND undo_status = ? ORDER BY id ASC`,
		sessionID, string(UndoPending))
	if err != nil {
		return nil, xerrors.Storagef("get_pending_transactions_for_session failed", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		var (
			t        Transaction
			ts       string
			status   string
			receipt  []byte
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.RuleName, &t.ActionTag, &receipt, &ts, &status); err != nil {
			return nil, xerrors.Storagef("scan transaction failed", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, xerrors.Storagef("parse transaction timestamp failed", err)
		}
		t.Timestamp = parsed
		t.UndoStatus = UndoStatus(status)
		t.Receipt, err = decodeReceipt(receipt)
		if err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// UpdateTransactionUndoStatus records the outcome of replaying one
// transaction's undo.
func (j *Journal) UpdateTransactionUndoStatus(ctx context.Context, id int64, status UndoStatus) error {
	_, err := j.db.ExecContext(ctx, `UPDATE transactions SET undo_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return xerrors.Storagef("update_transaction_undo_status failed", err)
	}
	return nil
}

// ListSessions returns every recorded session, most recent first, backing
// the `organizer sessions` introspection command.
func (j *Journal) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, start_time, end_time, status, config FROM sessions ORDER BY id DESC`)
	if err != nil {
		return nil, xerrors.Storagef("list_sessions failed", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSession returns one session by id, backing `organizer show`.
func (j *Journal) GetSession(ctx context.Context, id int64) (*Session, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, status, config FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		s       Session
		start   string
		end     sql.NullString
	)
	if err := row.Scan(&s.ID, &start, &end, &s.Status, &s.Config); err != nil {
		return nil, xerrors.Storagef("scan session failed", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, start)
	if err != nil {
		return nil, xerrors.Storagef("parse session start_time failed", err)
	}
	s.StartTime = parsed
	if end.Valid {
		endTime, err := time.Parse(time.RFC3339Nano, end.String)
		if err != nil {
			return nil, xerrors.Storagef("parse session end_time failed", err)
		}
		s.EndTime = &endTime
	}
	return &s, nil
}

// GetTransactionsForSession returns every transaction recorded for a
// session regardless of undo status, oldest first, backing `organizer
// show <session>`.
func (j *Journal) GetTransactionsForSession(ctx context.Context, sessionID int64) ([]*Transaction, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session_id, rule_name, action_tag, receipt, timestamp, undo_status
		 FROM transactions WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, xerrors.Storagef("get_transactions_for_session failed", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		var (
			t       Transaction
			ts      string
			status  string
			receipt []byte
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.RuleName, &t.ActionTag, &receipt, &ts, &status); err != nil {
			return nil, xerrors.Storagef("scan transaction failed", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, xerrors.Storagef("parse transaction timestamp failed", err)
		}
		t.Timestamp = parsed
		t.UndoStatus = UndoStatus(status)
		t.Receipt, err = decodeReceipt(receipt)
		if err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
