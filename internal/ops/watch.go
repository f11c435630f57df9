package ops

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Watch reloads the config file whenever it changes and hands the result to update.
// Rapid successive writes are coalesced into one reload after debounce.
// Invalid configs are logged and skipped. Watching stops when ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, update func(Loaded)) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	// editors often replace the file, so watch its directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return errors.Wrap(err, "watch config dir")
	}

	go watchLoop(ctx, watcher, path, debounce, update)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, debounce time.Duration, update func(Loaded)) {
	defer watcher.Close()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			loaded, err := Load(path)
			if err != nil {
				logs.Errorf("config reload failed, err: %+v", err)
				continue
			}
			update(loaded)
			logs.Infof("config reloaded: %s", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logs.Errorf("config watcher, err: %+v", err)
		}
	}
}
