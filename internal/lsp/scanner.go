package lsp

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/hightemp/php-lsp/internal/phplsp"
)

// skipDirs names directories the background scan and file watcher never
// descend into, matching the teacher's internal/indexer/filescanner.go
// defaultSkipDirs (vendor is NOT skipped here: autoload-derived source
// directories frequently point inside vendor/, per SPEC_FULL.md §4.8+'s
// vendor-package folding).
var skipDirs = map[string]bool{
	"node_modules": true,
	"var":          true,
	"vendor-bin":   true,
	"bin":          true,
	"cache":        true,
	".git":         true,
	".github":      true,
	".gitlab":      true,
	".run":         true,
	".idea":        true,
	".vscode":      true,
	"tests":        true,
}

// WorkspaceScanner walks and watches a project's PHP source directories,
// keeping the WorkspaceIndex current. Grounded on the teacher's
// FileScanner (internal/indexer/filescanner.go) for the fsnotify-watcher +
// 200ms-debounce + bounded-worker-pool shape, but drops its sqlite-backed
// file_hashes table per spec §6 "no persisted state": change detection
// uses an in-memory xxhash digest per path instead (cespare/xxhash; this
// scanner is its only user in the server).
type WorkspaceScanner struct {
	root    string
	index   *phplsp.WorkspaceIndex
	hashes  sync.Map // absolute path string -> uint64 content hash
	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	onUpdate func()
}

// NewWorkspaceScanner allocates a scanner rooted at root, publishing into
// index.
func NewWorkspaceScanner(root string, index *phplsp.WorkspaceIndex) *WorkspaceScanner {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkspaceScanner{root: root, index: index, ctx: ctx, cancel: cancel}
}

// SetOnUpdate registers a callback invoked after every batch of index
// changes (used by the server to re-publish diagnostics for open files).
func (s *WorkspaceScanner) SetOnUpdate(fn func()) {
	s.onUpdate = fn
}

func uriForPath(path string) string {
	return "file://" + filepath.ToSlash(path)
}

func pathForURI(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func skipPathComponent(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		if skipDirs[part] {
			return true
		}
	}
	return false
}

// collectPhpFiles walks dirs, returning every `.php` file not under a
// skipped directory.
func collectPhpFiles(root string, dirs []string) []string {
	seen := make(map[string]bool)
	var files []string
	for _, dir := range dirs {
		_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if skipPathComponent(root, path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.EqualFold(filepath.Ext(path), ".php") {
				return nil
			}
			if seen[path] {
				return nil
			}
			seen[path] = true
			files = append(files, path)
			return nil
		})
	}
	return files
}

// ScanAll walks every directory in dirs and indexes every `.php` file found
// under a bounded worker pool, per spec §5's "bounded worker pool (e.g., 4
// concurrent file parses)" / teacher's runtime.NumCPU()+2 capped at 16.
// progress, if non-nil, is called after each file completes with
// (done, total).
func (s *WorkspaceScanner) ScanAll(ctx context.Context, dirs []string, progress func(done, total int)) {
	// Stop early on either the caller's ctx or Close().
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	files := collectPhpFiles(s.root, dirs)
	total := len(files)
	if total == 0 {
		return
	}

	workerCount := runtime.NumCPU() + 2
	if workerCount > 16 {
		workerCount = 16
	}

	fileChan := make(chan string, 64)
	var done int
	var doneMu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range fileChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				s.indexOneFile(path)
				if progress != nil {
					doneMu.Lock()
					done++
					n := done
					doneMu.Unlock()
					progress(n, total)
				}
			}
		}()
	}

	for _, path := range files {
		select {
		case <-ctx.Done():
			close(fileChan)
			wg.Wait()
			return
		case fileChan <- path:
		}
	}
	close(fileChan)
	wg.Wait()

	if s.onUpdate != nil {
		s.onUpdate()
	}
}

// indexOneFile re-parses and re-digests path if its content hash changed
// since the last time it was indexed.
func (s *WorkspaceScanner) indexOneFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Printf("scanner: failed to read %s: %v", path, err)
		return
	}
	h := xxhash.Sum64(content)
	if prev, ok := s.hashes.Load(path); ok && prev.(uint64) == h {
		return
	}

	parser := phplsp.NewFileParser()
	parser.ParseFull(content)
	tree := parser.Tree()
	if tree == nil {
		parser.Close()
		return
	}
	uri := uriForPath(path)
	fs := phplsp.ExtractFileSymbols(tree.RootNode(), content, uri)
	s.index.UpdateFile(uri, fs)
	s.hashes.Store(path, h)
	parser.Close()
}

// IndexFiles re-digests the given absolute paths, used for didCreate/
// didChange/watched-file notifications outside the initial scan.
func (s *WorkspaceScanner) IndexFiles(paths []string) {
	for _, path := range paths {
		if skipPathComponent(s.root, path) {
			continue
		}
		s.indexOneFile(path)
	}
	if s.onUpdate != nil {
		s.onUpdate()
	}
}

// RemoveFiles drops the given absolute paths from the index and hash
// cache, used for didDelete notifications.
func (s *WorkspaceScanner) RemoveFiles(paths []string) {
	for _, path := range paths {
		s.index.RemoveFile(uriForPath(path))
		s.hashes.Delete(path)
	}
	if s.onUpdate != nil {
		s.onUpdate()
	}
}

// StartWatcher installs an fsnotify watcher over dirs with a 200ms debounce,
// matching the teacher's StartWatcher/processChanges shape.
func (s *WorkspaceScanner) StartWatcher(dirs []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer func() { _ = s.watcher.Close() }()

		pendingAdds := make(map[string]bool)
		pendingRemoves := make(map[string]bool)
		debounce := time.NewTimer(time.Hour)
		debounce.Stop()

		flush := func() {
			if len(pendingAdds) > 0 {
				files := make([]string, 0, len(pendingAdds))
				for f := range pendingAdds {
					files = append(files, f)
				}
				pendingAdds = make(map[string]bool)
				s.IndexFiles(files)
			}
			if len(pendingRemoves) > 0 {
				files := make([]string, 0, len(pendingRemoves))
				for f := range pendingRemoves {
					files = append(files, f)
				}
				pendingRemoves = make(map[string]bool)
				s.RemoveFiles(files)
			}
		}

		reset := func() {
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(200 * time.Millisecond)
		}

		for {
			select {
			case <-s.ctx.Done():
				flush()
				return
			case event, ok := <-s.watcher.Events:
				if !ok {
					return
				}
				if skipPathComponent(s.root, event.Name) {
					continue
				}
				info, err := os.Stat(event.Name)
				if err != nil {
					if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && strings.EqualFold(filepath.Ext(event.Name), ".php") {
						pendingRemoves[event.Name] = true
						delete(pendingAdds, event.Name)
						reset()
					}
					continue
				}
				if info.IsDir() {
					if event.Op&fsnotify.Create != 0 {
						if err := s.addDirectoryToWatcher(event.Name); err != nil {
							log.Printf("scanner: failed to watch %s: %v", event.Name, err)
						}
					}
					continue
				}
				if !strings.EqualFold(filepath.Ext(event.Name), ".php") {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					pendingAdds[event.Name] = true
					delete(pendingRemoves, event.Name)
					reset()
				} else if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					pendingRemoves[event.Name] = true
					delete(pendingAdds, event.Name)
					reset()
				}
			case err, ok := <-s.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("scanner: watcher error: %v", err)
			case <-debounce.C:
				flush()
			}
		}
	}()

	for _, dir := range dirs {
		if err := s.addDirectoryToWatcher(dir); err != nil {
			return err
		}
	}
	return nil
}

func (s *WorkspaceScanner) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if skipPathComponent(s.root, path) {
			return filepath.SkipDir
		}
		if err := s.watcher.Add(path); err != nil {
			log.Printf("scanner: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}

// Close stops the watcher goroutine and waits for it to exit. It also
// cancels a running ScanAll, which stops before the next file it would
// index.
func (s *WorkspaceScanner) Close() {
	s.cancel()
	s.wg.Wait()
}
