// Package watch re-runs generation when interface files change. It
// backs hidl-gen's -w flag: the package directories of the requested
// FQNs are watched and the rebuild callback fires after changes settle.
package watch

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hidl-lang/hidl/internal/cli"
)

// debounce groups rapid editor write bursts into one rebuild.
const debounce = 200 * time.Millisecond

// Watcher triggers a rebuild whenever a .hal file under one of the
// watched directories changes.
type Watcher struct {
	fw  *fsnotify.Watcher
	log *cli.Logger
}

func New(log *cli.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = cli.NewLogger(false, false)
	}
	return &Watcher{fw: fw, log: log}, nil
}

// Add registers one directory.
func (w *Watcher) Add(dir string) error {
	return w.fw.Add(dir)
}

// Run blocks, invoking rebuild after each settled burst of .hal
// changes. It returns when the underlying watcher is closed.
func (w *Watcher) Run(rebuild func()) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != ".hal" {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Info("%s %s", strings.ToLower(ev.Op.String()), ev.Name)
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch: %v", err)
		case <-fire:
			fire = nil
			rebuild()
		}
	}
}

func (w *Watcher) Close() error {
	return w.fw.Close()
}
