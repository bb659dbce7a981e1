package store

import (
	"encoding/json"
	"sort"
	"strings"
)

// Snapshot is a materialized view of a node and its descendants. Children are
// ordered by key, which for push-generated keys means chronological order.
type Snapshot struct {
	Key      string
	Doc      json.RawMessage
	Children []*Snapshot
}

// Child returns the direct child with the given key, or nil.
func (s *Snapshot) Child(key string) *Snapshot {
	if s == nil {
		return nil
	}
	for _, c := range s.Children {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// Decode unmarshals the node's document into out. Decoding a snapshot with no
// document is a no-op.
func (s *Snapshot) Decode(out any) error {
	if s == nil || s.Doc == nil {
		return nil
	}
	return json.Unmarshal(s.Doc, out)
}

// snapshotRow is one stored node feeding snapshot assembly.
type snapshotRow struct {
	path string
	doc  json.RawMessage
}

// assemble builds the snapshot rooted at root from rows whose paths equal
// root or descend from it. Rows outside the subtree are ignored. Returns nil
// when no row belongs to the subtree.
func assemble(root string, rows []snapshotRow) *Snapshot {
	var any bool
	snap := &Snapshot{Key: lastSegment(root)}
	prefix := root + "/"

	for _, row := range rows {
		if row.path == root {
			snap.Doc = row.doc
			any = true
			continue
		}
		if !strings.HasPrefix(row.path, prefix) {
			continue
		}
		any = true
		node := snap
		for _, seg := range strings.Split(row.path[len(prefix):], "/") {
			child := node.Child(seg)
			if child == nil {
				child = &Snapshot{Key: seg}
				node.Children = append(node.Children, child)
			}
			node = child
		}
		node.Doc = row.doc
	}
	if !any {
		return nil
	}
	sortChildren(snap)
	return snap
}

func sortChildren(s *Snapshot) {
	sort.Slice(s.Children, func(i, j int) bool {
		return s.Children[i].Key < s.Children[j].Key
	})
	for _, c := range s.Children {
		sortChildren(c)
	}
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
