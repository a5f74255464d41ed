// internal/state/artifact.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/user/waferchat/internal/types"
)

// ArtifactStore keeps documents created through the document tools.
type ArtifactStore struct {
	db *sql.DB
}

// NewArtifactStore creates an ArtifactStore on an opened database.
func NewArtifactStore(db *sql.DB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

const artifactColumns = "id, COALESCE(session_id, ''), title, type, content, created_at, updated_at"

func scanArtifact(row interface{ Scan(...any) error }) (*types.Artifact, error) {
	var (
		a                  types.Artifact
		id, sessionID, typ string
		created, updated   int64
	)
	if err := row.Scan(&id, &sessionID, &a.Title, &typ, &a.Content, &created, &updated); err != nil {
		return nil, err
	}
	a.ID = types.ArtifactID(id)
	a.SessionID = types.SessionID(sessionID)
	a.Type = types.ArtifactType(typ)
	a.CreatedAt = fromUnix(created)
	a.UpdatedAt = fromUnix(updated)
	return &a, nil
}

// Create stores a new artifact.
func (s *ArtifactStore) Create(ctx context.Context, sessionID types.SessionID, title string, typ types.ArtifactType, content string) (*types.Artifact, error) {
	now := time.Now()
	a := &types.Artifact{
		ID:        types.NewArtifactID(),
		SessionID: sessionID,
		Title:     title,
		Type:      typ,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var sid any
	if sessionID != "" {
		sid = string(sessionID)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO artifacts(id, session_id, title, type, content, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?)",
		string(a.ID), sid, a.Title, string(a.Type), a.Content, toUnix(now), toUnix(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	return a, nil
}

// Update replaces an artifact's content.
func (s *ArtifactStore) Update(ctx context.Context, id types.ArtifactID, content string) (*types.Artifact, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE artifacts SET content = ?, updated_at = ? WHERE id = ?",
		content, toUnix(time.Now()), string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("update artifact: %w", err)
	}
	if err := requireRow(res, "artifact", string(id)); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get returns the artifact with the given ID.
func (s *ArtifactStore) Get(ctx context.Context, id types.ArtifactID) (*types.Artifact, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+artifactColumns+" FROM artifacts WHERE id = ?", string(id))
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return a, nil
}

// List returns all artifacts, most recently updated first.
func (s *ArtifactStore) List(ctx context.Context) ([]*types.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+artifactColumns+" FROM artifacts ORDER BY updated_at DESC, created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*types.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
