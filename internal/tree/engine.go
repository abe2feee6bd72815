package tree

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/s5bridge/s5bridge/internal/config"
	"github.com/s5bridge/s5bridge/internal/constants"
	"github.com/s5bridge/s5bridge/internal/logging"
	"github.com/s5bridge/s5bridge/internal/remotepath"
	"github.com/s5bridge/s5bridge/internal/storage"
)

// Lister fetches one listing page.
type Lister interface {
	ListPage(ctx context.Context, prefix, delimiter, token string, maxKeys int32) (*storage.Page, error)
}

// RootName is the display name of the bucket root.
const RootName = "."

// Engine builds and refreshes the tree from delimiter listings.
type Engine struct {
	lister   Lister
	workers  int
	pageSize int32
	logger   *logging.Logger

	mu         sync.RWMutex
	root       *Node
	rootRecord remotepath.Record
	lastErr    error
}

// NewEngine creates an engine. workers bounds the goroutines that build
// child records during an expansion; values outside 1..MaxListingWorkers
// are clamped.
func NewEngine(lister Lister, workers int, logger *logging.Logger) *Engine {
	if workers <= 0 {
		workers = config.DefaultListingWorkers
	}
	if workers > config.MaxListingWorkers {
		workers = config.MaxListingWorkers
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{
		lister:   lister,
		workers:  workers,
		pageSize: constants.ListPageSize,
		logger:   logger,
	}
}

// Root returns the root node, nil before Initialize.
func (e *Engine) Root() *Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.root
}

// Initialize replaces the tree with a single root node. The root is
// Unloaded when the bucket holds at least one object and Loaded (and
// childless) otherwise. A failed listing is logged and leaves the root
// Unloaded so a later Expand can retry; only cancellation is returned.
func (e *Engine) Initialize(ctx context.Context) (*Node, error) {
	root := &Node{
		path:  remotepath.NewWithKind(remotepath.KindFolder),
		level: 1,
		state: Unloaded,
	}
	record := remotepath.Record{Name: RootName, Level: 1, Kind: remotepath.KindFolder, Key: ""}

	page, err := e.lister.ListPage(ctx, "", "", "", 1)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Warnf("listing bucket root failed: %v", err)
	} else if page.KeyCount == 0 && len(page.Objects) == 0 {
		root.state = Loaded
	}

	e.mu.Lock()
	e.root = root
	e.rootRecord = record
	e.lastErr = err
	e.mu.Unlock()
	return root, nil
}

// LastErr returns the error of the most recent listing, nil when it
// succeeded.
func (e *Engine) LastErr() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

func (e *Engine) setLastErr(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

// Locate returns the record describing node. Records are stored on the
// parent; the root's record is held by the engine. A node that is no longer
// its parent's child (after a Refresh or Collapse of the parent) is
// described from its own path.
func (e *Engine) Locate(node *Node) remotepath.Record {
	parent := node.Parent()
	if parent == nil {
		e.mu.RLock()
		defer e.mu.RUnlock()
		return e.rootRecord
	}
	parent.mu.RLock()
	defer parent.mu.RUnlock()
	if node.row < len(parent.records) && node.row < len(parent.children) && parent.children[node.row] == node {
		return parent.records[node.row]
	}
	return remotepath.Record{
		Name:  node.path.Name(),
		Level: node.level,
		Kind:  node.path.Kind(),
		Key:   node.path.RelativeKey(),
	}
}

// Expand lists the direct children of a folder node. Common prefixes become
// Unloaded folders, objects become files. Pages are fetched in order while
// the file records of each page are built by a bounded worker pool; all
// workers are joined before Expand returns. A folder with no children ends
// Loaded and empty. A listing error is logged, kept for LastErr and leaves
// the node Unloaded and childless; only cancellation is returned.
func (e *Engine) Expand(ctx context.Context, node *Node) error {
	if !node.IsFolder() {
		return nil
	}
	rec := e.Locate(node)
	node.setState(Loading)

	records, err := e.list(ctx, rec)
	if err != nil {
		node.clear(Unloaded)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.logger.Warnf("listing %q failed: %v", rec.Key, err)
		e.setLastErr(err)
		return nil
	}
	e.setLastErr(nil)
	node.replaceChildren(records, Loaded)
	e.logger.Debugf("expanded %q: %d children", rec.Key, len(records))
	return nil
}

func (e *Engine) list(ctx context.Context, parent remotepath.Record) ([]remotepath.Record, error) {
	prefix := parent.Key
	level := parent.Level + 1

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	var folders []remotepath.Record
	filesByPage := make(map[int][]remotepath.Record)
	var filesMu sync.Mutex

	token := ""
	pages := 0
	var listErr error
	for {
		page, err := e.lister.ListPage(gctx, prefix, remotepath.Separator, token, e.pageSize)
		if err != nil {
			listErr = err
			break
		}
		for _, p := range page.Prefixes {
			folders = append(folders, remotepath.Record{
				Name:  displayName(p, prefix),
				Level: level,
				Kind:  remotepath.KindFolder,
				Key:   p,
			})
		}

		idx := pages
		objects := page.Objects
		g.Go(func() error {
			recs := make([]remotepath.Record, 0, len(objects))
			for _, obj := range objects {
				// Zero-byte folder markers list as their own prefix.
				if obj.Key == prefix {
					continue
				}
				recs = append(recs, remotepath.Record{
					Name:  displayName(obj.Key, prefix),
					Level: level,
					Kind:  remotepath.KindFile,
					Key:   obj.Key,
				})
			}
			filesMu.Lock()
			filesByPage[idx] = recs
			filesMu.Unlock()
			return nil
		})
		pages++

		if !page.Truncated || page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	if err := g.Wait(); err != nil && listErr == nil {
		listErr = err
	}
	if listErr != nil {
		return nil, listErr
	}

	records := folders
	for i := 0; i < pages; i++ {
		records = append(records, filesByPage[i]...)
	}
	return records, nil
}

func displayName(key, prefix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, prefix), remotepath.Separator)
}

// Refresh discards the children of node and lists them again.
func (e *Engine) Refresh(ctx context.Context, node *Node) error {
	if !node.IsFolder() {
		return nil
	}
	node.clear(Unloaded)
	return e.Expand(ctx, node)
}

// Collapse drops the children of node and returns it to Unloaded.
func (e *Engine) Collapse(node *Node) {
	if !node.IsFolder() {
		return
	}
	node.clear(Unloaded)
}

// ExpandDepth expands node and its descendant folders down to depth levels
// below node. A depth of 1 is equivalent to Expand.
func (e *Engine) ExpandDepth(ctx context.Context, node *Node, depth int) error {
	if depth <= 0 || !node.IsFolder() {
		return nil
	}
	if node.State() != Loaded {
		if err := e.Expand(ctx, node); err != nil {
			return err
		}
	}
	for _, child := range node.Children() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.ExpandDepth(ctx, child, depth-1); err != nil {
			return err
		}
	}
	return nil
}

// Find resolves an already loaded node by bucket-relative key. The empty
// key is the root. It returns nil when any folder on the way is not loaded.
func (e *Engine) Find(key string) *Node {
	node := e.Root()
	if node == nil {
		return nil
	}
	for _, seg := range remotepath.New(key).Segments() {
		var next *Node
		for _, child := range node.Children() {
			if child.Path().Name() == seg {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		node = next
	}
	return node
}

// FindLoadedAncestor returns the deepest loaded node on the way to key, so a
// refresh after a transfer can target the closest visible folder.
func (e *Engine) FindLoadedAncestor(key string) *Node {
	node := e.Root()
	if node == nil {
		return nil
	}
	for _, seg := range remotepath.New(key).Segments() {
		var next *Node
		for _, child := range node.Children() {
			if child.Path().Name() == seg && child.IsFolder() {
				next = child
				break
			}
		}
		if next == nil || next.State() != Loaded {
			return node
		}
		node = next
	}
	return node
}

// Format renders the loaded part of the tree below node, one entry per line,
// indented by level.
func (e *Engine) Format(node *Node) string {
	var b strings.Builder
	e.format(&b, node)
	return b.String()
}

func (e *Engine) format(b *strings.Builder, node *Node) {
	rec := e.Locate(node)
	indent := strings.Repeat("  ", rec.Level-1)
	name := rec.Name
	if rec.Kind == remotepath.KindFolder && node.Parent() != nil {
		name += remotepath.Separator
	}
	fmt.Fprintf(b, "%s%s\n", indent, name)
	for _, child := range node.Children() {
		e.format(b, child)
	}
}
