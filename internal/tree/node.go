// Package tree maintains a lazily loaded view of the bucket's folder
// hierarchy.
package tree

import (
	"sync"

	"github.com/s5bridge/s5bridge/internal/remotepath"
)

// State is the load state of a folder node.
type State int

const (
	// Unloaded folders may have children that were not fetched yet.
	Unloaded State = iota
	Loading
	// Loaded nodes hold their complete child list, possibly empty.
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Node is one entry of the tree. The record describing a node lives on its
// parent at the node's row; use Engine.Locate to read it.
type Node struct {
	mu       sync.RWMutex
	parent   *Node
	row      int
	path     remotepath.Path
	level    int
	state    State
	children []*Node
	records  []remotepath.Record
}

// Path returns the node's bucket-relative location.
func (n *Node) Path() remotepath.Path { return n.path }

// Level returns the depth of the node; the root is level 1.
func (n *Node) Level() int { return n.level }

// Parent returns the containing node, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Row returns the node's index in its parent's child list.
func (n *Node) Row() int { return n.row }

// IsFolder reports whether the node can have children.
func (n *Node) IsFolder() bool { return n.path.Kind() != remotepath.KindFile }

// State returns the node's load state.
func (n *Node) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Children returns a snapshot of the loaded children.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// ChildRecords returns a snapshot of the records of the loaded children,
// row-indexed like Children.
func (n *Node) ChildRecords() []remotepath.Record {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]remotepath.Record, len(n.records))
	copy(out, n.records)
	return out
}

func (n *Node) setState(s State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = s
}

// replaceChildren installs a new child list and its records.
func (n *Node) replaceChildren(records []remotepath.Record, state State) {
	children := make([]*Node, len(records))
	for i, rec := range records {
		child := &Node{
			parent: n,
			row:    i,
			path:   remotepath.FromRecord(rec),
			level:  rec.Level,
			state:  Unloaded,
		}
		if rec.Kind == remotepath.KindFile {
			child.state = Loaded
		}
		children[i] = child
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.children = children
	n.records = records
	n.state = state
}

func (n *Node) clear(state State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.children = nil
	n.records = nil
	n.state = state
}
