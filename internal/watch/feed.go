package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/docfx-topics/internal/filter"
	"github.com/KaramelBytes/docfx-topics/internal/logging"
	"github.com/KaramelBytes/docfx-topics/internal/topic"
	"github.com/fsnotify/fsnotify"
)

// ContentPatterns are the files a Feed reports on, relative to its directory.
var ContentPatterns = []string{"**/*.md", "**/*.yml"}

// SkipDirs are directory names never watched. Directories whose name starts
// with a dot are skipped too.
var SkipDirs = []string{"_site", "obj", "bin", "node_modules"}

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("watch: feed closed")

// Option configures a Feed.
type Option func(*Feed)

// WithLogger sets the logger used for watch errors.
func WithLogger(l *log.Logger) Option {
	return func(f *Feed) { f.logger = l }
}

// WithDebounce sets how long events are collected before changes are
// emitted. Zero emits every event immediately.
func WithDebounce(d time.Duration) Option {
	return func(f *Feed) { f.debounce = d }
}

// WithBufferSize sets the per-subscriber channel buffer.
func WithBufferSize(n int) Option {
	return func(f *Feed) { f.buffer = n }
}

// Feed multicasts topic changes under a base directory to its subscribers.
type Feed struct {
	baseDir  string
	logger   *log.Logger
	buffer   int
	debounce time.Duration

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	active *session
	closed bool
}

// NewFeed creates a feed for baseDir. Nothing is watched until Subscribe.
func NewFeed(baseDir string, opts ...Option) *Feed {
	f := &Feed{
		baseDir:  filepath.Clean(baseDir),
		buffer:   100,
		debounce: 100 * time.Millisecond,
		subs:     make(map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.New("watch")
	}
	return f
}

// BaseDir returns the directory being observed.
func (f *Feed) BaseDir() string { return f.baseDir }

// Subscribe registers a new observer. The returned channel receives every
// change in emission order and is closed when cancel is called or the feed
// stops. The underlying watch starts with the first subscriber.
func (f *Feed) Subscribe() (<-chan topic.Change, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, nil, ErrClosed
	}
	if f.active == nil {
		s, err := f.start()
		if err != nil {
			return nil, nil, err
		}
		f.active = s
	}
	sub := &subscription{
		ch:   make(chan topic.Change, f.buffer),
		done: make(chan struct{}),
	}
	f.subs[sub] = struct{}{}
	return sub.ch, func() { f.unsubscribe(sub) }, nil
}

// Close stops the watch and closes every subscriber channel. No changes are
// delivered after Close returns.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	subs := f.subs
	f.subs = make(map[*subscription]struct{})
	s := f.active
	f.active = nil
	f.mu.Unlock()

	var err error
	if s != nil {
		err = s.stop()
	}
	for sub := range subs {
		sub.close()
	}
	return err
}

// IsRunning reports whether the underlying watch is active.
func (f *Feed) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active != nil
}

func (f *Feed) unsubscribe(sub *subscription) {
	f.mu.Lock()
	if _, ok := f.subs[sub]; !ok {
		f.mu.Unlock()
		return
	}
	delete(f.subs, sub)
	var s *session
	if len(f.subs) == 0 {
		s = f.active
		f.active = nil
	}
	f.mu.Unlock()

	if s != nil {
		if err := s.stop(); err != nil {
			f.logger.Printf("Error stopping watcher: %v", err)
		}
	}
	sub.close()
}

// session is one run of the underlying fsnotify watcher.
type session struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	// Owned by processEvents once it runs.
	dirs  map[string]struct{}
	files map[string]struct{}
}

func (f *Feed) start() (*session, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	s := &session{
		watcher: w,
		done:    make(chan struct{}),
		dirs:    make(map[string]struct{}),
		files:   make(map[string]struct{}),
	}
	if _, err := f.addTree(s, f.baseDir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", f.baseDir, err)
	}
	s.wg.Add(1)
	go f.processEvents(s)
	return s, nil
}

func (s *session) stop() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if cerr := s.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
		s.wg.Wait()
	})
	return err
}

// processEvents converts fsnotify events into changes until the session
// stops. Events for the same file that arrive within the debounce window are
// coalesced into one change.
func (f *Feed) processEvents(s *session) {
	defer s.wg.Done()

	pending := make(map[string]topic.ChangeKind)
	var order []string
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		for _, path := range order {
			f.notify(s, path, pending[path])
		}
		pending = make(map[string]topic.ChangeKind)
		order = nil
		fire = nil
	}
	enqueue := func(path string, kind topic.ChangeKind) {
		if !f.isContentFile(path) {
			return
		}
		if f.debounce <= 0 {
			f.notify(s, path, kind)
			return
		}
		prev, seen := pending[path]
		if !seen {
			order = append(order, path)
		}
		pending[path] = mergeKinds(prev, kind)
		if fire == nil {
			timer = time.NewTimer(f.debounce)
			fire = timer.C
		}
	}

	for {
		select {
		case <-s.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case <-fire:
			flush()

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			f.handleEvent(s, event, enqueue)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Printf("Warning: watch error: %v", err)
		}
	}
}

func (f *Feed) handleEvent(s *session, event fsnotify.Event, enqueue func(string, topic.ChangeKind)) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			files, err := f.addTree(s, event.Name)
			if err != nil {
				f.logger.Printf("Warning: failed to watch %s: %v", event.Name, err)
			}
			// Files created before the directory was watched.
			for _, file := range files {
				enqueue(file, topic.ChangeAdded)
			}
			return
		}
	}

	switch {
	case event.Has(fsnotify.Create):
		f.track(s, event.Name)
		enqueue(event.Name, topic.ChangeAdded)
	case event.Has(fsnotify.Write):
		f.track(s, event.Name)
		enqueue(event.Name, topic.ChangeChanged)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if _, isDir := s.dirs[event.Name]; isDir {
			for _, file := range f.removeTree(s, event.Name) {
				enqueue(file, topic.ChangeRemoved)
			}
			return
		}
		delete(s.files, event.Name)
		enqueue(event.Name, topic.ChangeRemoved)
	default:
		// Ignore chmod and other events
	}
}

// removeTree forgets a directory that was removed or moved away, together with
// everything below it, and returns the files that were known inside it.
// fsnotify reports only the directory itself in that case.
func (f *Feed) removeTree(s *session, dir string) []string {
	prefix := dir + string(filepath.Separator)
	for d := range s.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(s.dirs, d)
			// A moved directory is still watched under its new location.
			_ = s.watcher.Remove(d)
		}
	}
	var files []string
	for file := range s.files {
		if strings.HasPrefix(file, prefix) {
			delete(s.files, file)
			files = append(files, file)
		}
	}
	sort.Strings(files)
	return files
}

func (f *Feed) track(s *session, path string) {
	if f.isContentFile(path) {
		s.files[path] = struct{}{}
	}
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, skip := range SkipDirs {
		if name == skip {
			return true
		}
	}
	return false
}

// mergeKinds folds a new event for a file into the change already pending
// for it. A zero prev means nothing is pending.
func mergeKinds(prev, next topic.ChangeKind) topic.ChangeKind {
	switch {
	case prev == 0:
		return next
	case next == topic.ChangeRemoved:
		return topic.ChangeRemoved
	case prev == topic.ChangeRemoved:
		// Removed and recreated, e.g. an editor saving through a temp file.
		return topic.ChangeChanged
	default:
		return prev
	}
}

// addTree watches dir and every directory below it except SkipDirs, returning
// the files found along the way.
func (f *Feed) addTree(s *session, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// Entries can vanish while walking.
			return nil
		}
		if d.IsDir() {
			if path != f.baseDir && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			if err := s.watcher.Add(path); err != nil {
				return err
			}
			s.dirs[path] = struct{}{}
			return nil
		}
		if f.isContentFile(path) {
			s.files[path] = struct{}{}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func (f *Feed) isContentFile(path string) bool {
	rel, err := filepath.Rel(f.baseDir, path)
	if err != nil {
		return false
	}
	return filter.MatchAny(ContentPatterns, filepath.ToSlash(rel))
}

func (f *Feed) notify(s *session, path string, kind topic.ChangeKind) {
	rel, err := filepath.Rel(f.baseDir, path)
	if err != nil {
		return
	}

	change := topic.Change{ChangeType: kind, ContentFile: rel}
	if kind != topic.ChangeRemoved {
		topics, err := topic.GetFileTopics(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				f.logger.Printf("Warning: failed to read topics from %s: %v", rel, err)
			}
			return
		}
		change.Topics = make([]topic.Metadata, 0, len(topics))
		for _, t := range topics {
			t.SourceFile = rel
			change.Topics = append(change.Topics, t)
		}
	}
	f.broadcast(s, change)
}

func (f *Feed) broadcast(s *session, change topic.Change) {
	f.mu.Lock()
	if f.active != s {
		f.mu.Unlock()
		return
	}
	subs := make([]*subscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.send(change, s.done)
	}
}

// subscription is one observer's channel. Sends and close are serialized by
// mu so a change is never sent on a closed channel.
type subscription struct {
	ch     chan topic.Change
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func (sub *subscription) send(change topic.Change, stop <-chan struct{}) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	select {
	case sub.ch <- change:
	case <-sub.done:
	case <-stop:
	}
}

func (sub *subscription) close() {
	sub.once.Do(func() { close(sub.done) })
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// ObserveChanges watches baseDir until ctx is done and returns the stream of
// changes. The channel is closed when the watch ends.
func ObserveChanges(ctx context.Context, baseDir string, opts ...Option) (<-chan topic.Change, error) {
	feed := NewFeed(baseDir, opts...)
	changes, _, err := feed.Subscribe()
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		feed.Close()
	}()
	return changes, nil
}
