package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet interval before a change is reported.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changed config documents in a directory. Bursts of
// writes to the same file are reported once.
type Watcher struct {
	Events chan string
	Errors chan error

	watcher  *fsnotify.Watcher
	debounce time.Duration
	closeCh  chan struct{}
	doneCh   chan struct{}
	once     sync.Once
}

// NewWatcher starts watching dir.
func NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher := &Watcher{
		Events:   make(chan string, 4),
		Errors:   make(chan error, 1),
		watcher:  w,
		debounce: debounce,
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops watching, Events and Errors are closed afterwards.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.doneCh
		close(w.Events)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !IsDocument(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			if fire != nil && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			for name := range pending {
				select {
				case w.Events <- name:
				case <-w.closeCh:
					return
				}
			}
			pending = make(map[string]struct{})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}
