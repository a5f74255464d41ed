// internal/types/ids.go
package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// SessionKey is the caller-chosen handle of a conversation, such as
// "cli:3f9a1c2e" or "web:tab-7". The part before the first colon names the
// surface that opened it.
type SessionKey string

type SessionID string
type RunID string
type ArtifactID string

const maxSessionKeyLen = 128

// ErrInvalidSessionKey is returned by ParseSessionKey.
var ErrInvalidSessionKey = errors.New("invalid session key")

func NewSessionID() SessionID   { return SessionID(uuid.NewString()) }
func NewRunID() RunID           { return RunID(uuid.NewString()) }
func NewArtifactID() ArtifactID { return ArtifactID(uuid.NewString()) }

// NewSessionKey returns a fresh key on surface with a short random suffix.
func NewSessionKey(surface string) SessionKey {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return SessionKey(surface + ":" + suffix)
}

// ParseSessionKey validates a key supplied from outside the process.
func ParseSessionKey(s string) (SessionKey, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSessionKey)
	}
	if len(s) > maxSessionKeyLen {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidSessionKey, maxSessionKeyLen)
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", fmt.Errorf("%w: %q", ErrInvalidSessionKey, s)
		}
	}
	return SessionKey(s), nil
}

// Surface returns the prefix before the first colon, or "" if there is none.
func (k SessionKey) Surface() string {
	surface, _, ok := strings.Cut(string(k), ":")
	if !ok {
		return ""
	}
	return surface
}
