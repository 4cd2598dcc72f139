// Package cache keeps topic metadata for an open DocFX project, populated from
// a persisted cache file or a project scan and kept current by a change feed.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/KaramelBytes/docfx-topics/internal/logging"
	"github.com/KaramelBytes/docfx-topics/internal/project"
	"github.com/KaramelBytes/docfx-topics/internal/topic"
	"github.com/KaramelBytes/docfx-topics/internal/utils"
	"github.com/KaramelBytes/docfx-topics/internal/watch"
	"golang.org/x/sync/singleflight"
)

// CacheFileName is the name of the persisted cache inside the state directory.
const CacheFileName = "topic-cache.json"

// Project is the part of a loaded project the cache depends on.
type Project interface {
	ProjectFile() string
	ProjectDir() string
	IncludesContentFile(path string) bool
	GetTopics(ctx context.Context, progress project.Progress) ([]topic.Metadata, error)
}

// Loader loads the project defined by projectFile.
type Loader func(projectFile string) (Project, error)

// WatchFunc starts observing topic changes under baseDir. The returned stop
// function ends the observation and closes the channel.
type WatchFunc func(baseDir string) (<-chan topic.Change, func(), error)

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithLoader replaces project.Load as the way projects are opened.
func WithLoader(load Loader) Option {
	return func(c *Cache) { c.load = load }
}

// WithWatch sets how open projects are observed for changes. A nil WatchFunc
// disables incremental updates.
func WithWatch(w WatchFunc) Option {
	return func(c *Cache) { c.watch = w }
}

// Cache holds the topic metadata of at most one open project.
type Cache struct {
	stateDir string
	logger   *log.Logger
	load     Loader
	watch    WatchFunc

	mu                  sync.Mutex
	state               State
	project             Project
	topics              map[string]topic.Metadata
	topicsByContentFile map[string][]topic.Metadata
	// pending holds changes received before population finished.
	pending []topic.Change
	// generation changes whenever the indexed content is discarded, so a
	// population started for older content does not install its result.
	generation uint64
	stopWatch  func()

	populating singleflight.Group
	persistMu  sync.Mutex
}

// New creates a cache that persists its state in stateDir.
func New(stateDir string, opts ...Option) *Cache {
	c := &Cache{
		stateDir:            stateDir,
		load:                ProjectLoader(),
		topics:              make(map[string]topic.Metadata),
		topicsByContentFile: make(map[string][]topic.Metadata),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.New("cache")
	}
	return c
}

// ProjectLoader loads projects with project.Load and opts.
func ProjectLoader(opts ...project.Option) Loader {
	return func(projectFile string) (Project, error) {
		p, err := project.Load(projectFile, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// FeedWatch observes a project directory through a watch.Feed.
func FeedWatch(opts ...watch.Option) WatchFunc {
	return func(baseDir string) (<-chan topic.Change, func(), error) {
		feed := watch.NewFeed(baseDir, opts...)
		changes, cancel, err := feed.Subscribe()
		if err != nil {
			return nil, nil, err
		}
		return changes, func() {
			cancel()
			feed.Close()
		}, nil
	}
}

// CacheFile returns the path of the persisted cache file.
func (c *Cache) CacheFile() string {
	return filepath.Join(c.stateDir, CacheFileName)
}

// State returns the current lifecycle state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsPopulated reports whether the cache holds the open project's topics.
func (c *Cache) IsPopulated() bool { return c.State() == StatePopulated }

// HasOpenProject reports whether a project is open.
func (c *Cache) HasOpenProject() bool { return c.State() != StateNoProject }

// Project returns the open project, or nil.
func (c *Cache) Project() Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project
}

// ProjectFile returns the open project's file, or "".
func (c *Cache) ProjectFile() string {
	if p := c.Project(); p != nil {
		return p.ProjectFile()
	}
	return ""
}

// TopicCount returns the number of cached topics.
func (c *Cache) TopicCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.topics)
}

// Topic returns the topic with the given UID.
func (c *Cache) Topic(uid string) (topic.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project == nil {
		return topic.Metadata{}, ErrNoProject
	}
	t, ok := c.topics[uid]
	if !ok {
		return topic.Metadata{}, fmt.Errorf("%w: %s", ErrTopicNotFound, uid)
	}
	return t, nil
}

// Topics returns the cached topics whose UID starts with uidPrefix (all
// topics when it is empty). The order is unspecified.
func (c *Cache) Topics(uidPrefix string) ([]topic.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project == nil {
		return nil, ErrNoProject
	}
	out := make([]topic.Metadata, 0, len(c.topics))
	for uid, t := range c.topics {
		if strings.HasPrefix(uid, uidPrefix) {
			out = append(out, t)
		}
	}
	return out, nil
}

// OpenProject opens the project defined by projectFile. Opening the project
// that is already open does nothing; opening another one first flushes the
// current state, including the persisted cache file.
func (c *Cache) OpenProject(projectFile string) error {
	abs, err := filepath.Abs(projectFile)
	if err != nil {
		return err
	}

	c.mu.Lock()
	current := c.project
	c.mu.Unlock()
	if current != nil {
		if current.ProjectFile() == abs {
			return nil
		}
		if err := c.closeProject(true); err != nil {
			return err
		}
	}

	p, err := c.load(abs)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.project = p
	c.state = StateUnpopulated
	c.generation++
	c.mu.Unlock()

	c.startWatch(p)
	return nil
}

// CloseProject closes the open project, if any. The persisted cache file is
// kept so the project can be reopened quickly.
func (c *Cache) CloseProject() error {
	return c.closeProject(false)
}

// Close releases the cache's resources; it is CloseProject.
func (c *Cache) Close() error { return c.CloseProject() }

func (c *Cache) closeProject(clearPersisted bool) error {
	c.mu.Lock()
	if c.project == nil {
		c.mu.Unlock()
		return nil
	}
	stop := c.stopWatch
	c.stopWatch = nil
	c.mu.Unlock()

	// Stop the feed first so no change is applied once the project is gone.
	if stop != nil {
		stop()
	}

	c.mu.Lock()
	c.project = nil
	c.mu.Unlock()
	return c.Flush(clearPersisted)
}

// Flush discards all cached topics and, when clearPersisted is set, deletes
// the persisted cache file. An open project stays open but unpopulated.
func (c *Cache) Flush(clearPersisted bool) error {
	c.mu.Lock()
	c.topics = make(map[string]topic.Metadata)
	c.topicsByContentFile = make(map[string][]topic.Metadata)
	c.pending = nil
	c.generation++
	if c.project == nil {
		c.state = StateNoProject
	} else {
		c.state = StateUnpopulated
	}
	c.mu.Unlock()

	if !clearPersisted {
		return nil
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if err := utils.RemoveIfExists(c.CacheFile()); err != nil {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

// EnsurePopulated populates the cache if necessary and reports whether it
// now holds the project's topics. Concurrent callers share one population.
// A failed population is reported to progress and returns false; the cache
// stays unpopulated so a later call can retry.
func (c *Cache) EnsurePopulated(ctx context.Context, progress project.Progress) (bool, error) {
	c.mu.Lock()
	if c.project == nil {
		c.mu.Unlock()
		return false, ErrNoProject
	}
	if c.state == StatePopulated {
		c.mu.Unlock()
		return true, nil
	}
	p, gen := c.project, c.generation
	c.mu.Unlock()

	v, _, _ := c.populating.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return false, nil
		}
		if c.state == StatePopulated {
			c.mu.Unlock()
			return true, nil
		}
		c.state = StatePopulating
		c.mu.Unlock()
		return c.populate(ctx, p, gen, progress), nil
	})
	return v.(bool), nil
}

func (c *Cache) populate(ctx context.Context, p Project, gen uint64, progress project.Progress) bool {
	topics, err := c.loadCacheFile(progress)
	if err != nil {
		c.logger.Printf("Warning: ignoring cache file %s: %v", c.CacheFile(), err)
		topics = nil
	}
	if topics == nil {
		report(progress, "Scanning DocFX project %q...", p.ProjectFile())
		topics, err = p.GetTopics(ctx, progress)
		if err != nil {
			c.logger.Printf("Error: failed to scan %s: %v", p.ProjectFile(), err)
			if progress != nil {
				progress.Fail(err)
			}
			c.mu.Lock()
			if c.generation == gen && c.state == StatePopulating {
				c.state = StateUnpopulated
			}
			c.mu.Unlock()
			return false
		}
	}

	for i := range topics {
		if filepath.IsAbs(topics[i].SourceFile) {
			if rel, err := filepath.Rel(p.ProjectDir(), topics[i].SourceFile); err == nil {
				topics[i].SourceFile = rel
			}
		}
	}

	c.mu.Lock()
	if c.generation != gen {
		// Flushed or switched projects while scanning.
		c.mu.Unlock()
		return false
	}
	c.topics = make(map[string]topic.Metadata, len(topics))
	c.topicsByContentFile = make(map[string][]topic.Metadata)
	for _, t := range topics {
		c.index(t)
	}
	c.state = StatePopulated
	pending := c.pending
	c.pending = nil
	for _, change := range pending {
		c.apply(change)
	}
	count := len(c.topics)
	c.mu.Unlock()

	report(progress, "Found %d topics in DocFX project.", count)
	if err := c.Persist(); err != nil {
		c.logger.Printf("Warning: failed to persist topic cache: %v", err)
	}
	return true
}

// loadCacheFile returns the persisted topics, or nil when there is no cache
// file.
func (c *Cache) loadCacheFile(progress project.Progress) ([]topic.Metadata, error) {
	cacheFile := c.CacheFile()
	report(progress, "Attempting to load topic metadata cache from %q...", cacheFile)

	b, err := os.ReadFile(cacheFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			report(progress, "Cache file %q not found.", cacheFile)
			return nil, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	var topics []topic.Metadata
	if err := json.Unmarshal(b, &topics); err != nil {
		return nil, fmt.Errorf("parse cache file: %w", err)
	}
	if topics == nil {
		topics = []topic.Metadata{}
	}
	report(progress, "Read %d topics from %q.", len(topics), cacheFile)
	return topics, nil
}

// Persist writes the cached topics to the cache file, or deletes the file
// when there are none. It does nothing unless the cache is populated.
func (c *Cache) Persist() error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if c.state != StatePopulated {
		c.mu.Unlock()
		return nil
	}
	snapshot := make([]topic.Metadata, 0, len(c.topics))
	for _, t := range c.topics {
		snapshot = append(snapshot, t)
	}
	c.mu.Unlock()

	cacheFile := c.CacheFile()
	if len(snapshot) == 0 {
		if err := utils.RemoveIfExists(cacheFile); err != nil {
			return fmt.Errorf("remove cache file: %w", err)
		}
		return nil
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].UID < snapshot[j].UID })

	if err := utils.EnsureDir(c.stateDir); err != nil {
		return fmt.Errorf("ensure state dir: %w", err)
	}
	data, err := utils.PrettyJSON(snapshot)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(cacheFile, data)
}

// ApplyChange updates the cache from one topic change notification. Changes
// for files outside the project are ignored; changes that arrive before the
// cache is populated are applied once it is.
func (c *Cache) ApplyChange(change topic.Change) error {
	c.mu.Lock()
	if c.project == nil {
		c.mu.Unlock()
		return ErrNoProject
	}
	if !c.project.IncludesContentFile(change.ContentFile) {
		c.mu.Unlock()
		return nil
	}
	if c.state != StatePopulated {
		c.pending = append(c.pending, change)
		c.mu.Unlock()
		return nil
	}
	changed := c.apply(change)
	c.mu.Unlock()

	if !changed {
		return nil
	}
	return c.Persist()
}

// apply mutates both indexes for change and reports whether anything was
// done. c.mu must be held.
func (c *Cache) apply(change topic.Change) bool {
	switch change.ChangeType {
	case topic.ChangeAdded, topic.ChangeChanged:
		c.removeContentFile(change.ContentFile)
		for _, t := range change.Topics {
			t.SourceFile = change.ContentFile
			if t.DetailedType == 0 {
				t.DetailedType = topic.Classify(t)
			}
			c.index(t)
		}
		if _, ok := c.topicsByContentFile[change.ContentFile]; !ok {
			c.topicsByContentFile[change.ContentFile] = []topic.Metadata{}
		}
		return true
	case topic.ChangeRemoved:
		c.removeContentFile(change.ContentFile)
		return true
	default:
		c.logger.Printf("Warning: received unexpected type of topic change notification: %v (%s)", change.ChangeType, change.ContentFile)
		return false
	}
}

// index adds t to both maps. A UID already defined by another content file
// moves to t's file. c.mu must be held.
func (c *Cache) index(t topic.Metadata) {
	if existing, ok := c.topics[t.UID]; ok {
		c.removeFromContentFile(existing.SourceFile, t.UID)
	}
	c.topics[t.UID] = t
	c.topicsByContentFile[t.SourceFile] = append(c.topicsByContentFile[t.SourceFile], t)
}

func (c *Cache) removeContentFile(contentFile string) {
	for _, t := range c.topicsByContentFile[contentFile] {
		delete(c.topics, t.UID)
	}
	delete(c.topicsByContentFile, contentFile)
}

func (c *Cache) removeFromContentFile(contentFile, uid string) {
	list := c.topicsByContentFile[contentFile]
	kept := list[:0]
	for _, t := range list {
		if t.UID != uid {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(c.topicsByContentFile, contentFile)
		return
	}
	c.topicsByContentFile[contentFile] = kept
}

// ContentFileTopics returns the topics indexed for one content file, given
// relative to the project directory.
func (c *Cache) ContentFileTopics(contentFile string) ([]topic.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project == nil {
		return nil, ErrNoProject
	}
	return append([]topic.Metadata(nil), c.topicsByContentFile[contentFile]...), nil
}

func (c *Cache) startWatch(p Project) {
	if c.watch == nil {
		return
	}
	changes, stop, err := c.watch(p.ProjectDir())
	if err != nil {
		c.logger.Printf("Warning: not watching %s for changes: %v", p.ProjectDir(), err)
		return
	}

	done := make(chan struct{})
	go c.consume(changes, done)

	c.mu.Lock()
	c.stopWatch = func() {
		stop()
		<-done
	}
	c.mu.Unlock()
}

// consume applies changes one at a time, in order, until the feed closes.
// A failure handling one change does not end the subscription.
func (c *Cache) consume(changes <-chan topic.Change, done chan<- struct{}) {
	defer close(done)
	for change := range changes {
		if err := c.ApplyChange(change); err != nil {
			c.logger.Printf("Warning: error handling change to %s: %v", change.ContentFile, err)
		}
	}
}

func report(p project.Progress, format string, args ...any) {
	if p == nil {
		return
	}
	p.Report(fmt.Sprintf(format, args...))
}
