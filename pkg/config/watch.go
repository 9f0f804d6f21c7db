package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/taigrr/facet/pkg/render"
)

// Watch reloads the scene file at path whenever it, or the model file it
// names, is written or recreated. Each successful reload is sent on the
// returned channel; a reader that falls behind sees only the newest
// scene. Files that fail to load are logged and skipped. The channel is
// closed when ctx is done.
func Watch(ctx context.Context, path string) (<-chan *Scene, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	sw := &sceneWatcher{
		w:     w,
		path:  path,
		dirs:  make(map[string]bool),
		files: make(map[string]bool),
		out:   make(chan *Scene, 1),
	}
	if err := sw.track(s); err != nil {
		w.Close()
		return nil, err
	}
	go sw.loop(ctx)
	return sw.out, nil
}

// sceneWatcher watches directories rather than files so that editors
// that save by rename are still seen.
type sceneWatcher struct {
	w     *fsnotify.Watcher
	path  string
	dirs  map[string]bool
	files map[string]bool
	out   chan *Scene
}

func (sw *sceneWatcher) track(s *Scene) error {
	clear(sw.files)
	for _, f := range []string{sw.path, s.Model} {
		if f == "" {
			continue
		}
		sw.files[filepath.Clean(f)] = true
		dir := filepath.Dir(f)
		if sw.dirs[dir] {
			continue
		}
		if err := sw.w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		sw.dirs[dir] = true
	}
	return nil
}

func (sw *sceneWatcher) loop(ctx context.Context) {
	defer close(sw.out)
	defer sw.w.Close()

	log := render.Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sw.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !sw.files[filepath.Clean(ev.Name)] {
				continue
			}
			s, err := Load(sw.path)
			if err != nil {
				log.Warn("scene reload failed", "path", sw.path, "err", err)
				continue
			}
			if err := sw.track(s); err != nil {
				log.Warn("scene watch", "err", err)
			}
			log.Info("scene reloaded", "path", sw.path, "trigger", ev.Name)
			sw.send(s)
		case err, ok := <-sw.w.Errors:
			if !ok {
				return
			}
			log.Warn("scene watcher", "err", err)
		}
	}
}

// send replaces any scene the reader has not taken yet.
func (sw *sceneWatcher) send(s *Scene) {
	for {
		select {
		case sw.out <- s:
			return
		default:
		}
		select {
		case <-sw.out:
		default:
		}
	}
}
