// internal/state/session.go
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/user/waferchat/internal/types"
	"github.com/user/waferchat/pkg/llm"
)

// SessionStore keeps sessions and their conversations in SQLite.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a SessionStore on an opened database.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionColumns = `s.id, s.key, s.title, s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)`

func scanSession(row interface{ Scan(...any) error }) (*types.Session, error) {
	var (
		sess             types.Session
		id, key          string
		created, updated int64
	)
	if err := row.Scan(&id, &key, &sess.Title, &created, &updated, &sess.MessageCount); err != nil {
		return nil, err
	}
	sess.ID = types.SessionID(id)
	sess.Key = types.SessionKey(key)
	sess.CreatedAt = fromUnix(created)
	sess.UpdatedAt = fromUnix(updated)
	return &sess, nil
}

// ResolveOrCreate returns the SessionID for the given key, creating a new session if needed.
func (s *SessionStore) ResolveOrCreate(ctx context.Context, key types.SessionKey) (types.SessionID, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM sessions WHERE key = ?", string(key)).Scan(&id)
	if err == nil {
		return types.SessionID(id), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve session: %w", err)
	}

	sid := types.NewSessionID()
	now := toUnix(time.Now())
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO sessions(id, key, title, created_at, updated_at) VALUES(?, ?, ?, ?, ?) ON CONFLICT(key) DO NOTHING",
		string(sid), string(key), types.DefaultSessionTitle, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM sessions WHERE key = ?", string(key)).Scan(&id); err != nil {
		return "", fmt.Errorf("resolve session: %w", err)
	}
	return types.SessionID(id), nil
}

// Get returns the session with the given ID.
func (s *SessionStore) Get(ctx context.Context, id types.SessionID) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions s WHERE s.id = ?", string(id))
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// GetByKey returns the session bound to key.
func (s *SessionStore) GetByKey(ctx context.Context, key types.SessionKey) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions s WHERE s.key = ?", string(key))
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", key, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// List returns all sessions, most recently updated first.
func (s *SessionStore) List(ctx context.Context) ([]*types.Session, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+sessionColumns+" FROM sessions s ORDER BY s.updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*types.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SetTitle renames a session.
func (s *SessionStore) SetTitle(ctx context.Context, id types.SessionID, title string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?",
		title, toUnix(time.Now()), string(id),
	)
	if err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	return requireRow(res, "session", string(id))
}

// Delete removes a session and its messages. Artifacts it created are kept.
func (s *SessionStore) Delete(ctx context.Context, id types.SessionID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireRow(res, "session", string(id))
}

// Messages returns the session's conversation in order.
func (s *SessionStore) Messages(ctx context.Context, id types.SessionID) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, role, content, tool_calls, created_at FROM messages WHERE session_id = ? ORDER BY seq",
		string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var out []llm.Message
	for rows.Next() {
		var (
			msg       llm.Message
			role      string
			toolCalls string
			created   int64
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &toolCalls, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = llm.Role(role)
		msg.Timestamp = fromUnix(created)
		if toolCalls != "" {
			if err := json.Unmarshal([]byte(toolCalls), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls of %s: %w", msg.ID, err)
			}
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// SaveMessages replaces the session's conversation with messages.
func (s *SessionStore) SaveMessages(ctx context.Context, id types.SessionID, messages []llm.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE sessions SET updated_at = ? WHERE id = ?", toUnix(time.Now()), string(id))
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if err := requireRow(res, "session", string(id)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", string(id)); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages(session_id, seq, id, role, content, tool_calls, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range messages {
		var toolCalls string
		if len(msg.ToolCalls) > 0 {
			data, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("encode tool calls of %s: %w", msg.ID, err)
			}
			toolCalls = string(data)
		}
		if _, err := stmt.ExecContext(ctx, string(id), i, msg.ID, string(msg.Role), msg.Content, toolCalls, toUnix(msg.Timestamp)); err != nil {
			return fmt.Errorf("insert message %s: %w", msg.ID, err)
		}
	}
	return tx.Commit()
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, types.ErrNotFound)
	}
	return nil
}
