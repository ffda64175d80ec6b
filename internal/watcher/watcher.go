// Package watcher watches inbox directories for record tables and hands
// settled files to a Handler.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultSettle = 400 * time.Millisecond

// Handler is told about inbox files once they stop changing.
type Handler interface {
	FileChanged(ctx context.Context, path string)
	FileRemoved(ctx context.Context, path string)
}

// HandlerFuncs adapts two functions to a Handler. Nil functions are skipped.
type HandlerFuncs struct {
	Changed func(ctx context.Context, path string)
	Removed func(ctx context.Context, path string)
}

// FileChanged calls h.Changed.
func (h HandlerFuncs) FileChanged(ctx context.Context, path string) {
	if h.Changed != nil {
		h.Changed(ctx, path)
	}
}

// FileRemoved calls h.Removed.
func (h HandlerFuncs) FileRemoved(ctx context.Context, path string) {
	if h.Removed != nil {
		h.Removed(ctx, path)
	}
}

// Inbox watches root directories and reports table files matching its
// extensions. Writes are settled: a file is reported once no event arrived
// for it during the settle interval.
type Inbox struct {
	handler    Handler
	extensions []string
	recursive  bool
	settle     time.Duration
	ignored    []string
	logger     *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	fsw     *fsnotify.Watcher
	roots   map[string][]string // root -> directories added to fsw
	order   []string
	pending map[string]*time.Timer
	done    chan struct{}
	once    sync.Once
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets the logger used for inbox events.
func WithLogger(l *zap.Logger) Option {
	return func(in *Inbox) { in.logger = l }
}

// WithSettle sets how long a file must stay unchanged before it is reported.
func WithSettle(d time.Duration) Option {
	return func(in *Inbox) { in.settle = d }
}

// WithIgnore excludes paths under dirs, e.g. the output directory when it
// lies inside a watched root.
func WithIgnore(dirs ...string) Option {
	return func(in *Inbox) {
		for _, d := range dirs {
			if abs, err := filepath.Abs(d); err == nil {
				in.ignored = append(in.ignored, abs)
			}
		}
	}
}

// NewInbox creates an inbox over roots. An empty extensions list accepts
// every file.
func NewInbox(roots, extensions []string, recursive bool, handler Handler, opts ...Option) *Inbox {
	in := &Inbox{
		handler:    handler,
		extensions: extensions,
		recursive:  recursive,
		settle:     defaultSettle,
		logger:     zap.NewNop(),
		roots:      make(map[string][]string),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			in.order = append(in.order, filepath.Clean(abs))
		}
	}
	return in
}

// Start begins watching. Missing roots are created. The inbox runs until ctx
// is cancelled or Stop is called.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	in.fsw = fsw
	in.ctx = ctx
	in.logger.Debug("inbox starting",
		zap.Strings("roots", in.order),
		zap.Strings("extensions", in.extensions),
		zap.Bool("recursive", in.recursive),
	)
	for _, root := range in.order {
		if err := in.watchRootLocked(root); err != nil {
			_ = fsw.Close()
			in.fsw = nil
			return err
		}
	}
	go in.loop(ctx, fsw)
	return nil
}

func (in *Inbox) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			in.Stop()
			return
		case <-in.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			in.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			in.logger.Warn("inbox watch error", zap.Error(err))
		}
	}
}

func (in *Inbox) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !in.watched(path) {
		return
	}
	in.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		// A rename reports the old name; the new name arrives as Create.
		in.cancel(path)
		if in.accepts(path) {
			in.handler.FileRemoved(in.context(), path)
		}
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Op.Has(fsnotify.Create) {
				in.addSubdirectory(path)
			}
			return
		}
		if in.accepts(path) {
			in.schedule(path)
		}
	}
}

// addSubdirectory watches a directory created inside a root and reports the
// tables already in it.
func (in *Inbox) addSubdirectory(dir string) {
	in.mu.Lock()
	if in.fsw == nil || !in.recursive {
		in.mu.Unlock()
		return
	}
	root := in.rootOfLocked(dir)
	added := in.addTreeLocked(dir)
	if root != "" {
		in.roots[root] = append(in.roots[root], added...)
	}
	in.mu.Unlock()
	in.logger.Debug("inbox subdirectory added", zap.String("path", dir), zap.Int("directories", len(added)))
	in.scan(dir)
}

// addTreeLocked adds dir and every directory below it.
func (in *Inbox) addTreeLocked(dir string) []string {
	var added []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if in.ignoredPath(path) {
			return filepath.SkipDir
		}
		if err := in.fsw.Add(path); err != nil {
			in.logger.Warn("inbox failed to watch directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		added = append(added, path)
		return nil
	})
	return added
}

func (in *Inbox) watchRootLocked(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	if !in.recursive {
		if err := in.fsw.Add(root); err != nil {
			return err
		}
		in.roots[root] = []string{root}
		return nil
	}
	in.roots[root] = in.addTreeLocked(root)
	return nil
}

func (in *Inbox) schedule(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.pending[path]; ok {
		t.Stop()
	}
	in.pending[path] = time.AfterFunc(in.settle, func() {
		in.mu.Lock()
		delete(in.pending, path)
		in.mu.Unlock()
		in.logger.Debug("inbox file settled", zap.String("path", path))
		in.handler.FileChanged(in.context(), path)
	})
}

func (in *Inbox) cancel(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.pending[path]; ok {
		t.Stop()
		delete(in.pending, path)
	}
}

func (in *Inbox) context() context.Context {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.ctx == nil {
		return context.Background()
	}
	return in.ctx
}

// scan reports every accepted file under dir. It stops early once the inbox
// is stopped or its context is done.
func (in *Inbox) scan(dir string) {
	ctx := in.context()
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-in.done:
			return filepath.SkipAll
		case <-ctx.Done():
			return filepath.SkipAll
		default:
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if in.ignoredPath(path) || (!in.recursive && path != dir) {
				return filepath.SkipDir
			}
			return nil
		}
		if in.accepts(path) {
			in.handler.FileChanged(ctx, path)
		}
		return nil
	})
}

func (in *Inbox) watched(path string) bool {
	if in.ignoredPath(path) {
		return false
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.rootOfLocked(path) != ""
}

func (in *Inbox) rootOfLocked(path string) string {
	for _, root := range in.order {
		if within(root, path) {
			return root
		}
	}
	return ""
}

func (in *Inbox) ignoredPath(path string) bool {
	for _, dir := range in.ignored {
		if within(dir, path) {
			return true
		}
	}
	return false
}

// accepts reports whether path names a table the inbox should report.
// Hidden files and office lock files are skipped.
func (in *Inbox) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	return hasExtension(path, in.extensions)
}

func hasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// AddDirectory starts watching root. When syncExisting is set, tables
// already present are reported in the background. Before Start the root is
// only recorded and syncExisting is ignored; call SyncExisting after Start.
func (in *Inbox) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	in.mu.Lock()
	if in.fsw == nil {
		// Not started yet: Start watches every recorded root.
		for _, r := range in.order {
			if r == abs {
				in.mu.Unlock()
				return nil
			}
		}
		in.order = append(in.order, abs)
		in.mu.Unlock()
		return nil
	}
	if _, ok := in.roots[abs]; ok {
		in.mu.Unlock()
		return nil
	}
	if err := in.watchRootLocked(abs); err != nil {
		in.mu.Unlock()
		return err
	}
	in.order = append(in.order, abs)
	in.mu.Unlock()

	in.logger.Info("inbox directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		go in.scan(abs)
	}
	return nil
}

// RemoveDirectory stops watching root. Batches already created from its files
// are kept.
func (in *Inbox) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.fsw == nil {
		return nil
	}
	dirs, ok := in.roots[abs]
	if !ok {
		return nil
	}
	for _, d := range dirs {
		_ = in.fsw.Remove(d)
	}
	delete(in.roots, abs)
	for i, r := range in.order {
		if r == abs {
			in.order = append(in.order[:i], in.order[i+1:]...)
			break
		}
	}
	for path, t := range in.pending {
		if within(abs, path) {
			t.Stop()
			delete(in.pending, path)
		}
	}
	in.logger.Info("inbox directory removed", zap.String("path", abs))
	return nil
}

// Directories returns the watched roots in the order they were added.
func (in *Inbox) Directories() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.order...)
}

// SyncExisting reports every table already present in the watched roots.
// Call it after Start to pick up files dropped while the server was down.
func (in *Inbox) SyncExisting() {
	for _, root := range in.Directories() {
		in.scan(root)
	}
}

// Stop stops watching and drops pending files.
func (in *Inbox) Stop() {
	in.mu.Lock()
	if in.fsw == nil {
		in.mu.Unlock()
		return
	}
	for path, t := range in.pending {
		t.Stop()
		delete(in.pending, path)
	}
	_ = in.fsw.Close()
	in.fsw = nil
	in.mu.Unlock()
	in.once.Do(func() { close(in.done) })
}
