// Package state provides SQLite-backed storage implementations.
package state

import (
	"github.com/user/waferchat/internal/runtime"
	"github.com/user/waferchat/internal/types"
)

// Compile-time interface compliance checks.
var _ types.SessionStore = (*SessionStore)(nil)
var _ types.MessageStore = (*SessionStore)(nil)
var _ runtime.Store = (*SessionStore)(nil)
var _ types.ArtifactStore = (*ArtifactStore)(nil)
