package store

import (
	"context"
	"strings"
)

// Fields is a partial document update: existing keys are overwritten, other
// keys are left alone. A nil value writes JSON null.
type Fields map[string]any

// ServerTimestamp is a placeholder field value resolved to the server's
// current time in milliseconds at the moment the write executes. Deferred
// disconnect writes use it so lastSeen reflects the disconnect time, not the
// registration time.
const ServerTimestamp = ".sv:timestamp"

// Store is a client for a hierarchical document tree addressed by
// slash-separated paths. Child keys generated by Push sort chronologically
// among siblings, which is the only ordering guarantee the tree provides.
//
// Disconnect actions are deferred writes keyed by a session id. Registering
// an action for a session replaces any previous one; they execute when the
// session's connection is reported gone (FireDisconnectActions) unless
// cancelled first.
type Store interface {
	// GetDoc unmarshals the document at path into out. The boolean reports
	// whether a document exists there.
	GetDoc(ctx context.Context, path string, out any) (bool, error)
	// SetDoc writes doc at path, replacing any existing document.
	SetDoc(ctx context.Context, path string, doc any) error
	// Update merges fields into the document at path, creating the node if
	// it does not exist.
	Update(ctx context.Context, path string, fields Fields) error
	// Exists reports whether path holds a document or any descendants.
	Exists(ctx context.Context, path string) (bool, error)
	// Push mints a new ordered unique child key for path.
	Push(ctx context.Context, path string) (string, error)
	// Subtree returns the document at path together with all descendants,
	// children ordered by key. Returns nil when nothing exists at path.
	Subtree(ctx context.Context, path string) (*Snapshot, error)

	RegisterDisconnectAction(ctx context.Context, session, path string, fields Fields) error
	CancelDisconnectActions(ctx context.Context, session string) error
	FireDisconnectActions(ctx context.Context, session string) error
}

// Join builds a tree path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}
