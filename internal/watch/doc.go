// Package watch turns file system events under a directory into topic change
// notifications.
//
// A Feed owns a single fsnotify watcher shared by all of its subscribers. The
// watcher is started by the first Subscribe call and stopped when the last
// subscriber cancels or the feed is closed:
//
//	feed := watch.NewFeed(projectDir)
//	defer feed.Close()
//
//	changes, cancel, err := feed.Subscribe()
//	if err != nil {
//	    return err
//	}
//	defer cancel()
//
//	for change := range changes {
//	    fmt.Printf("%s %s (%d topics)\n", change.ChangeType, change.ContentFile, len(change.Topics))
//	}
//
// Only Markdown (*.md) and YAML (*.yml) files are reported, and only events
// that happen after the watch starts; files that already exist are not
// announced. Paths in notifications are relative to the feed's directory.
//
// The fsnotify operations map as follows:
//   - fsnotify.Create → topic.ChangeAdded
//   - fsnotify.Write → topic.ChangeChanged
//   - fsnotify.Remove → topic.ChangeRemoved
//   - fsnotify.Rename → topic.ChangeRemoved (the new name triggers a separate Create)
//
// Events for one file within the debounce window (100ms by default) are
// coalesced: a Create followed by Writes is one Added change, and a Remove
// followed by a Create is one Changed change.
//
// Directories created while watching are watched too, and the files already
// inside them are reported as added. When a watched directory is removed or
// moved away, every content file known inside it is reported as removed.
// Directories named in SkipDirs, and those starting with a dot, are not
// watched.
package watch
