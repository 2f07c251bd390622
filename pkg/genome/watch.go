package genome

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/prime-radiant-inc/sprout/pkg/logger"
)

// Watch starts watching the genome's agents/ and routing/ directories for
// out-of-band changes (a human editing agents/foo.yaml by hand, for
// instance) and returns a channel that receives a value per batch of
// changes. The channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, d := range []string{agentsDir, routingDir} {
		if err := watcher.Add(s.dir + "/" + d); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	ch := make(chan struct{}, 1)
	var closeOnce sync.Once

	go func() {
		defer watcher.Close()
		defer closeOnce.Do(func() { close(ch) })
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Get().Debug("genome: watch error", "err", err)
			}
		}
	}()

	return ch, nil
}
