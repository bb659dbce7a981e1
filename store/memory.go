package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store. It backs local development runs and stands
// in for the persistent tree in tests.
type Memory struct {
	mu      sync.RWMutex
	docs    map[string]json.RawMessage
	actions map[string]disconnectAction
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs:    make(map[string]json.RawMessage),
		actions: make(map[string]disconnectAction),
		now:     time.Now,
	}
}

func (m *Memory) GetDoc(_ context.Context, path string, out any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.docs[path]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) SetDoc(_ context.Context, path string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[path] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Update(_ context.Context, path string, fields Fields) error {
	fields = resolveServerValues(fields, m.now())
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := map[string]any{}
	if raw, ok := m.docs[path]; ok {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
	}
	for k, v := range fields {
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[path] = raw
	return nil
}

func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.docs[path]; ok {
		return true, nil
	}
	prefix := path + "/"
	for p := range m.docs {
		if strings.HasPrefix(p, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) Push(_ context.Context, _ string) (string, error) {
	return NewPushID(m.now()), nil
}

func (m *Memory) Subtree(_ context.Context, path string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := path + "/"
	var rows []snapshotRow
	for p, raw := range m.docs {
		if p == path || strings.HasPrefix(p, prefix) {
			rows = append(rows, snapshotRow{path: p, doc: raw})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].path < rows[j].path })
	return assemble(path, rows), nil
}

func (m *Memory) RegisterDisconnectAction(_ context.Context, session, path string, fields Fields) error {
	m.mu.Lock()
	m.actions[session] = disconnectAction{Path: path, Fields: fields}
	m.mu.Unlock()
	return nil
}

func (m *Memory) CancelDisconnectActions(_ context.Context, session string) error {
	m.mu.Lock()
	delete(m.actions, session)
	m.mu.Unlock()
	return nil
}

func (m *Memory) FireDisconnectActions(ctx context.Context, session string) error {
	m.mu.Lock()
	action, ok := m.actions[session]
	delete(m.actions, session)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.Update(ctx, action.Path, action.Fields)
}
