package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/user/waferchat/internal/types"
	"github.com/user/waferchat/pkg/llm"
)

// mockDispatcher returns pre-configured responses in order.
type mockDispatcher struct {
	mu        sync.Mutex
	responses []*llm.Response
	errs      []error
	calls     [][]llm.Message
	// onDispatch, if set, runs with the zero-based call index before the
	// reply is returned.
	onDispatch func(int)
}

func (m *mockDispatcher) Dispatch(_ context.Context, messages []llm.Message, _ llm.Config) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.calls)
	m.calls = append(m.calls, messages)
	if m.onDispatch != nil {
		m.onDispatch(idx)
	}
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return &llm.Response{Content: "fallback"}, nil
}

// memArtifacts is an in-memory ArtifactStore.
type memArtifacts struct {
	mu    sync.Mutex
	items map[types.ArtifactID]*types.Artifact
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{items: map[types.ArtifactID]*types.Artifact{}}
}

func (m *memArtifacts) Create(_ context.Context, sid types.SessionID, title string, typ types.ArtifactType, content string) (*types.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	a := &types.Artifact{ID: types.NewArtifactID(), SessionID: sid, Title: title, Type: typ, Content: content, CreatedAt: now, UpdatedAt: now}
	m.items[a.ID] = a
	return a, nil
}

func (m *memArtifacts) Update(_ context.Context, id types.ArtifactID, content string) (*types.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	a.Content = content
	a.UpdatedAt = time.Now()
	return a, nil
}

func (m *memArtifacts) Get(_ context.Context, id types.ArtifactID) (*types.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return a, nil
}

func (m *memArtifacts) List(_ context.Context) ([]*types.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Artifact
	for _, a := range m.items {
		out = append(out, a)
	}
	return out, nil
}

// memStore is an in-memory session and message store.
type memStore struct {
	mu       sync.Mutex
	sessions map[types.SessionKey]*types.Session
	messages map[types.SessionID][]llm.Message
}

func newMemStore() *memStore {
	return &memStore{
		sessions: map[types.SessionKey]*types.Session{},
		messages: map[types.SessionID][]llm.Message{},
	}
}

func (m *memStore) ResolveOrCreate(_ context.Context, key types.SessionKey) (types.SessionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s.ID, nil
	}
	s := &types.Session{ID: types.NewSessionID(), Key: key, Title: types.DefaultSessionTitle}
	m.sessions[key] = s
	return s.ID, nil
}

func (m *memStore) find(id types.SessionID) *types.Session {
	for _, s := range m.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (m *memStore) Get(_ context.Context, id types.SessionID) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.find(id); s != nil {
		return s, nil
	}
	return nil, types.ErrNotFound
}

func (m *memStore) GetByKey(_ context.Context, key types.SessionKey) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s, nil
	}
	return nil, types.ErrNotFound
}

func (m *memStore) List(_ context.Context) ([]*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Session
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) SetTitle(_ context.Context, id types.SessionID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.find(id); s != nil {
		s.Title = title
		return nil
	}
	return types.ErrNotFound
}

func (m *memStore) Delete(_ context.Context, id types.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.sessions {
		if s.ID == id {
			delete(m.sessions, k)
		}
	}
	delete(m.messages, id)
	return nil
}

func (m *memStore) Messages(_ context.Context, id types.SessionID) ([]llm.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Message(nil), m.messages[id]...), nil
}

func (m *memStore) SaveMessages(ctx context.Context, id types.SessionID, msgs []llm.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id] = append([]llm.Message(nil), msgs...)
	return nil
}

var (
	_ types.ArtifactStore = (*memArtifacts)(nil)
	_ Store               = (*memStore)(nil)
)
