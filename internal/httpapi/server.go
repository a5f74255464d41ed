// internal/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/user/waferchat/internal/gateway"
	"github.com/user/waferchat/internal/runtime"
	"github.com/user/waferchat/internal/types"
	"github.com/user/waferchat/pkg/llm"
)

// Conversations runs serialized conversation operations. *gateway.Gateway
// implements it.
type Conversations interface {
	Send(ctx context.Context, key types.SessionKey, text string) (*runtime.Result, error)
	Edit(ctx context.Context, key types.SessionKey, messageID, text string) (*runtime.Result, error)
	Approve(ctx context.Context, key types.SessionKey, callID string) (*runtime.Result, error)
	Reject(ctx context.Context, key types.SessionKey, callID string) (*runtime.Result, error)
}

// Store is the read side the API needs.
type Store interface {
	types.SessionStore
	types.MessageStore
}

// Server is the JSON HTTP API for browser front ends.
type Server struct {
	conv      Conversations
	store     Store
	artifacts types.ArtifactStore
	mux       *http.ServeMux
}

// NewServer creates a Server.
func NewServer(conv Conversations, store Store, artifacts types.ArtifactStore) *Server {
	s := &Server{
		conv:      conv,
		store:     store,
		artifacts: artifacts,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/models", s.handleModels)
	s.mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /api/sessions/{key}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/sessions/{key}", s.handleDeleteSession)
	s.mux.HandleFunc("POST /api/sessions/{key}/messages", s.handleSend)
	s.mux.HandleFunc("PUT /api/sessions/{key}/messages/{id}", s.handleEdit)
	s.mux.HandleFunc("POST /api/sessions/{key}/tools/{id}/approve", s.handleApprove)
	s.mux.HandleFunc("POST /api/sessions/{key}/tools/{id}/reject", s.handleReject)
	s.mux.HandleFunc("GET /api/artifacts", s.handleListArtifacts)
	s.mux.HandleFunc("GET /api/artifacts/{id}", s.handleGetArtifact)
	s.mux.HandleFunc("PUT /api/artifacts/{id}", s.handleUpdateArtifact)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, llm.Models())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*types.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

type sessionResponse struct {
	Session  *types.Session `json:"session"`
	Messages []llm.Message  `json:"messages"`
	Pending  []llm.ToolCall `json:"pending"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sess, err := s.store.GetByKey(ctx, key)
	if err != nil {
		writeError(w, err)
		return
	}
	msgs, err := s.store.Messages(ctx, sess.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []llm.Message{}
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Messages: msgs, Pending: runtime.PendingCalls(msgs)})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sess, err := s.store.GetByKey(ctx, key)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Delete(ctx, sess.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathKey(w http.ResponseWriter, r *http.Request) (types.SessionKey, bool) {
	key, err := types.ParseSessionKey(r.PathValue("key"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return "", false
	}
	return key, true
}

type textRequest struct {
	Text string `json:"text"`
}

func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON"})
		return "", false
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "text is required"})
		return "", false
	}
	return req.Text, true
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	text, ok := decodeText(w, r)
	if !ok {
		return
	}
	res, err := s.conv.Send(r.Context(), key, text)
	s.writeResult(w, res, err)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	text, ok := decodeText(w, r)
	if !ok {
		return
	}
	res, err := s.conv.Edit(r.Context(), key, r.PathValue("id"), text)
	s.writeResult(w, res, err)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	res, err := s.conv.Approve(r.Context(), key, r.PathValue("id"))
	s.writeResult(w, res, err)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	key, ok := pathKey(w, r)
	if !ok {
		return
	}
	res, err := s.conv.Reject(r.Context(), key, r.PathValue("id"))
	s.writeResult(w, res, err)
}

func (s *Server) writeResult(w http.ResponseWriter, res *runtime.Result, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Messages == nil {
		res.Messages = []llm.Message{}
	}
	if res.Pending == nil {
		res.Pending = []llm.ToolCall{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	list, err := s.artifacts.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*types.Artifact{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	art, err := s.artifacts.Get(r.Context(), types.ArtifactID(r.PathValue("id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

type artifactUpdateRequest struct {
	Content *string `json:"content"`
}

func (s *Server) handleUpdateArtifact(w http.ResponseWriter, r *http.Request) {
	var req artifactUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "content is required"})
		return
	}
	art, err := s.artifacts.Update(r.Context(), types.ArtifactID(r.PathValue("id")), *req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, runtime.ErrToolCallNotFound), errors.Is(err, runtime.ErrMessageNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	case errors.Is(err, llm.ErrToolCallCompleted):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
		return
	case errors.Is(err, runtime.ErrNotEditable):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	case errors.Is(err, gateway.ErrStopped):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: err.Error()})
		return
	}

	kind := llm.Classify(err)
	body := errorBody{Error: err.Error(), Kind: kind.String()}
	switch kind {
	case llm.KindAuthentication:
		var ae *llm.AuthenticationError
		if errors.As(err, &ae) {
			body.Error = ae.Error()
		}
		writeJSON(w, http.StatusUnauthorized, body)
	case llm.KindPrecondition:
		var pe *llm.PreconditionError
		if errors.As(err, &pe) {
			body.Error = pe.Error()
		}
		writeJSON(w, http.StatusBadRequest, body)
	case llm.KindProvider, llm.KindTransport, llm.KindMalformedToolCall:
		writeJSON(w, http.StatusBadGateway, body)
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}
