package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options configures a FileDatabase.
type Options struct {
	// Root is the project directory that is scanned and watched.
	Root string
	// Compiler validates imported sources. Defaults to ShaderLabCompiler.
	Compiler Compiler
	// Workers is the number of importer goroutines. Defaults to 2.
	Workers int
	// QueueSize bounds pending imports. Defaults to 256.
	QueueSize int
	// Watch enables the fsnotify watcher that imports on file changes.
	Watch bool
}

type importJob struct {
	path  string
	force bool
}

// FileDatabase is a Database over a directory tree. Imports run on a worker
// pool fed by Refresh, ForceReimport and the optional file watcher.
type FileDatabase struct {
	root     string
	compiler Compiler
	workers  int
	watch    bool
	logger   *zap.Logger

	queue chan importJob
	group singleflight.Group

	mu     sync.RWMutex
	byPath map[string]*Artifact
	byName map[string]string

	// stateLock protects the running state.
	stateLock sync.Mutex
	isRunning bool
	closed    bool
	done      chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	watcher   *watcher
}

// NewFileDatabase creates a stopped database; call Start before Refresh.
func NewFileDatabase(opts Options, logger *zap.Logger) (*FileDatabase, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %q: %w", opts.Root, err)
	}
	if opts.Compiler == nil {
		opts.Compiler = ShaderLabCompiler{}
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}

	return &FileDatabase{
		root:     root,
		compiler: opts.Compiler,
		workers:  opts.Workers,
		watch:    opts.Watch,
		logger:   logger.Named("assets"),
		queue:    make(chan importJob, opts.QueueSize),
		byPath:   make(map[string]*Artifact),
		byName:   make(map[string]string),
		done:     make(chan struct{}),
	}, nil
}

// Root returns the absolute project root.
func (db *FileDatabase) Root() string { return db.root }

// Start launches the importer pool and, if enabled, the file watcher.
func (db *FileDatabase) Start(ctx context.Context) error {
	db.stateLock.Lock()
	defer db.stateLock.Unlock()
	if db.closed {
		return ErrClosed
	}
	if db.isRunning {
		db.logger.Warn("FileDatabase.Start called, but it is already running.")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	if db.watch {
		w, err := newWatcher(db.root, db.logger)
		if err != nil {
			cancel()
			return err
		}
		db.watcher = w
		db.wg.Add(1)
		go func() {
			defer db.wg.Done()
			w.run(runCtx, db.handleWatchEvent)
		}()
	}

	db.cancel = cancel
	db.isRunning = true
	for i := 0; i < db.workers; i++ {
		db.wg.Add(1)
		go db.runWorker(runCtx, i+1)
	}
	db.logger.Debug("Asset database started", zap.String("root", db.root), zap.Int("workers", db.workers), zap.Bool("watch", db.watch))
	return nil
}

// Close stops the watcher and the importer pool and waits for them to exit.
func (db *FileDatabase) Close() error {
	db.stateLock.Lock()
	if db.closed {
		db.stateLock.Unlock()
		return nil
	}
	db.closed = true
	close(db.done)
	cancel, w := db.cancel, db.watcher
	db.stateLock.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if w != nil {
		err = w.close()
	}
	db.wg.Wait()
	return err
}

func (db *FileDatabase) runWorker(ctx context.Context, workerID int) {
	defer db.wg.Done()
	logger := db.logger.With(zap.Int("worker_id", workerID))
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-db.queue:
			if _, err, _ := db.group.Do(job.path, func() (interface{}, error) {
				return nil, db.importFile(ctx, job.path, job.force)
			}); err != nil && ctx.Err() == nil {
				logger.Warn("Shader import failed", zap.String("path", job.path), zap.Error(err))
			}
		}
	}
}

func (db *FileDatabase) enqueue(ctx context.Context, job importJob) error {
	select {
	case <-db.done:
		return ErrClosed
	default:
	}
	select {
	case db.queue <- job:
		return nil
	case <-db.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// key normalizes a path to an absolute, clean form used in the indexes.
func (db *FileDatabase) key(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(db.root, path)
	}
	return filepath.Clean(path)
}

// Refresh walks the project and schedules every new or changed shader.
// Artifacts whose source disappeared are dropped.
func (db *FileDatabase) Refresh(ctx context.Context) error {
	seen := make(map[string]bool)
	var stale []importJob

	err := filepath.WalkDir(db.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ShaderExt) {
			return nil
		}
		key := filepath.Clean(path)
		seen[key] = true

		hash, err := hashFile(key)
		if err != nil {
			return nil
		}
		db.mu.RLock()
		a, ok := db.byPath[key]
		db.mu.RUnlock()
		if !ok || a.Hash != hash {
			stale = append(stale, importJob{path: key})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", db.root, err)
	}

	db.mu.Lock()
	for path := range db.byPath {
		if !seen[path] {
			db.forgetLocked(path)
		}
	}
	db.mu.Unlock()

	for _, job := range stale {
		if err := db.enqueue(ctx, job); err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		db.logger.Debug("Refresh scheduled imports", zap.Int("count", len(stale)))
	}
	return nil
}

// ForceReimport schedules path for import regardless of its hash.
func (db *FileDatabase) ForceReimport(ctx context.Context, path string) error {
	return db.enqueue(ctx, importJob{path: db.key(path), force: true})
}

func (db *FileDatabase) importFile(ctx context.Context, path string, force bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			db.mu.Lock()
			db.forgetLocked(path)
			db.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	hash := hashBytes(src)

	db.mu.RLock()
	prev, ok := db.byPath[path]
	db.mu.RUnlock()
	if ok && !force && prev.Hash == hash {
		return nil
	}

	res, err := db.compiler.Compile(ctx, path, src)
	if err != nil {
		return err
	}

	name := res.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	artifact := &Artifact{
		Name:       name,
		Path:       path,
		Hash:       hash,
		Errors:     res.Errors,
		ImportedAt: time.Now(),
	}

	db.mu.Lock()
	db.forgetLocked(path)
	// DeleteAsset may have removed the source while it was compiling.
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		db.mu.Unlock()
		return nil
	}
	db.byPath[path] = artifact
	db.byName[name] = path
	db.mu.Unlock()

	if len(res.Errors) > 0 {
		db.logger.Debug("Imported shader with errors", zap.String("shader", name), zap.String("path", path), zap.Strings("errors", res.Errors))
	} else {
		db.logger.Debug("Imported shader", zap.String("shader", name), zap.String("path", path))
	}
	return nil
}

// forgetLocked drops the artifact for path. db.mu must be held.
func (db *FileDatabase) forgetLocked(path string) {
	a, ok := db.byPath[path]
	if !ok {
		return
	}
	delete(db.byPath, path)
	if db.byName[a.Name] == path {
		delete(db.byName, a.Name)
	}
}

// LoadArtifactByPath returns a copy of the artifact imported from path.
func (db *FileDatabase) LoadArtifactByPath(path string) (*Artifact, error) {
	key := db.key(path)
	db.mu.RLock()
	defer db.mu.RUnlock()
	a, ok := db.byPath[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	cp := *a
	return &cp, nil
}

// FindArtifactByName returns a copy of the artifact declaring name.
func (db *FileDatabase) FindArtifactByName(name string) (*Artifact, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	path, ok := db.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: shader %q", ErrNotFound, name)
	}
	cp := *db.byPath[path]
	return &cp, nil
}

func (db *FileDatabase) HasCompileError(a *Artifact) bool {
	return a == nil || len(a.Errors) > 0
}

// CreateMaterial writes a material bound to a at path.
func (db *FileDatabase) CreateMaterial(path string, a *Artifact) (*Material, error) {
	if a == nil {
		return nil, errors.New("cannot create a material without an artifact")
	}
	m := NewMaterial(db.key(path), a)
	if err := writeMaterial(m); err != nil {
		return nil, err
	}
	db.logger.Debug("Created material", zap.String("path", m.Path), zap.String("shader", a.Name))
	return m, nil
}

func (db *FileDatabase) LoadMaterial(path string) (*Material, error) {
	return readMaterial(db.key(path))
}

// DeleteAsset removes the file at path and forgets any artifact imported from it.
func (db *FileDatabase) DeleteAsset(path string) error {
	key := db.key(path)
	db.mu.Lock()
	defer db.mu.Unlock()
	db.forgetLocked(key)

	if err := os.Remove(key); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Artifacts returns a snapshot of every imported artifact.
func (db *FileDatabase) Artifacts() []Artifact {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]Artifact, 0, len(db.byPath))
	for _, a := range db.byPath {
		out = append(out, *a)
	}
	return out
}

func (db *FileDatabase) handleWatchEvent(ctx context.Context, path string, removed bool) {
	if removed {
		db.mu.Lock()
		db.forgetLocked(path)
		db.mu.Unlock()
		return
	}
	if err := db.enqueue(ctx, importJob{path: path}); err != nil && !errors.Is(err, ErrClosed) && ctx.Err() == nil {
		db.logger.Warn("Failed to schedule import", zap.String("path", path), zap.Error(err))
	}
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return hashBytes(data), nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
