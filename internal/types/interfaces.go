// internal/types/interfaces.go
package types

import (
	"context"

	"github.com/user/waferchat/pkg/llm"
)

type SessionStore interface {
	ResolveOrCreate(ctx context.Context, key SessionKey) (SessionID, error)
	Get(ctx context.Context, id SessionID) (*Session, error)
	GetByKey(ctx context.Context, key SessionKey) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	SetTitle(ctx context.Context, id SessionID, title string) error
	Delete(ctx context.Context, id SessionID) error
}

type MessageStore interface {
	Messages(ctx context.Context, id SessionID) ([]llm.Message, error)
	SaveMessages(ctx context.Context, id SessionID, messages []llm.Message) error
}

type ArtifactStore interface {
	Create(ctx context.Context, sessionID SessionID, title string, typ ArtifactType, content string) (*Artifact, error)
	Update(ctx context.Context, id ArtifactID, content string) (*Artifact, error)
	Get(ctx context.Context, id ArtifactID) (*Artifact, error)
	List(ctx context.Context) ([]*Artifact, error)
}
