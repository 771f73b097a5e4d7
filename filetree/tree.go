package filetree

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"

	"github.com/e4code/e4/internal/logx"
)

// Tree caches listings below a root directory. Children are listed on first
// use and relisted after Invalidate or a filesystem change seen by Watch.
type Tree struct {
	root   string
	lister Lister
	log    pslog.Logger

	mu       sync.Mutex
	children map[string][]Entry
	watcher  *fsnotify.Watcher
	changes  chan string
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithTreeLogger sets the tree's logger.
func WithTreeLogger(logger pslog.Logger) TreeOption {
	return func(t *Tree) { t.log = logger }
}

// NewTree creates a tree rooted at root.
func NewTree(root string, lister Lister, opts ...TreeOption) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	t := &Tree{
		root:     abs,
		lister:   lister,
		children: make(map[string][]Entry),
		changes:  make(chan string, 16),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = logx.Or(t.log)
	t.log = t.log.With("root", abs)
	return t, nil
}

// Root returns the absolute root directory.
func (t *Tree) Root() string {
	return t.root
}

// Children returns the listing of dir, from cache when possible.
func (t *Tree) Children(dir string) ([]Entry, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	cached, ok := t.children[abs]
	t.mu.Unlock()
	if ok {
		return cached, nil
	}

	entries, err := t.lister.List(abs)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children[abs] = entries
	if t.watcher != nil {
		if err := t.watcher.Add(abs); err != nil {
			t.log.Warn("watch failed", "dir", abs, "err", err)
		}
	}
	return entries, nil
}

// Invalidate drops the cached listing of dir.
func (t *Tree) Invalidate(dir string) {
	t.mu.Lock()
	delete(t.children, filepath.Clean(dir))
	t.mu.Unlock()
}

// Changes delivers directories whose listing changed while watching. Sends
// never block; a slow reader misses notifications but not invalidations.
func (t *Tree) Changes() <-chan string {
	return t.changes
}

// Watch starts watching the root and every listed directory. It returns
// once the watcher is installed; watching stops when ctx is done.
func (t *Tree) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", t.root, err)
	}
	t.mu.Lock()
	if t.watcher != nil {
		t.mu.Unlock()
		_ = w.Close()
		return fmt.Errorf("watch %s: already watching", t.root)
	}
	dirs := []string{t.root}
	for dir := range t.children {
		if dir != t.root {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			t.mu.Unlock()
			_ = w.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	t.watcher = w
	t.mu.Unlock()

	t.log.Debug("watching", "dirs", len(dirs))
	go t.run(ctx, w)
	return nil
}

func (t *Tree) run(ctx context.Context, w *fsnotify.Watcher) {
	defer func() {
		t.mu.Lock()
		t.watcher = nil
		t.mu.Unlock()
		_ = w.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			dir := filepath.Dir(event.Name)
			t.Invalidate(dir)
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				t.Invalidate(event.Name)
			}
			t.log.Trace("directory changed", "dir", dir, "op", event.Op.String())
			select {
			case t.changes <- dir:
			default:
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			t.log.Warn("watch error", "err", err)
		}
	}
}
