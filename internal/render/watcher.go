package render

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ThemeWatcher reloads a theme file into a Renderer whenever it changes on
// disk. A file that fails to parse leaves the current theme in place.
type ThemeWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	renderer *Renderer
	log      zerolog.Logger

	onReload func(Theme)

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewThemeWatcher watches path's directory so editors that replace the file
// on save are still picked up.
func NewThemeWatcher(path string, r *Renderer, log zerolog.Logger) (*ThemeWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("theme path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	tw := &ThemeWatcher{
		watcher:  watcher,
		path:     abs,
		renderer: r,
		log:      log,
		done:     make(chan struct{}),
	}

	tw.wg.Add(1)
	go tw.watchLoop()

	return tw, nil
}

// OnReload registers fn to run after every successful reload. Call it before
// the file can change.
func (tw *ThemeWatcher) OnReload(fn func(Theme)) {
	tw.onReload = fn
}

func (tw *ThemeWatcher) watchLoop() {
	defer tw.wg.Done()
	for {
		select {
		case <-tw.done:
			return
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != tw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				tw.reload()
			}
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			tw.log.Warn().Err(err).Msg("theme watcher error")
		}
	}
}

func (tw *ThemeWatcher) reload() {
	th, err := LoadTheme(tw.path)
	if err != nil {
		tw.log.Warn().Err(err).Str("path", tw.path).Msg("theme reload failed")
		return
	}
	tw.renderer.SetTheme(th)
	tw.log.Info().Str("path", tw.path).Msg("theme reloaded")
	if tw.onReload != nil {
		tw.onReload(th)
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (tw *ThemeWatcher) Close() error {
	var err error
	tw.once.Do(func() {
		close(tw.done)
		err = tw.watcher.Close()
		tw.wg.Wait()
	})
	return err
}
