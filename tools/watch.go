package tools

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	watchDebounce     = 500 * time.Millisecond
	watchPollInterval = 100 * time.Millisecond
)

// shardWatcher calls onChange once the shard directory has been quiet for
// the debounce period after a change to a .js file
type shardWatcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func() error

	mu         sync.Mutex
	lastChange time.Time
	pending    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newShardWatcher(dir string, debounce time.Duration, onChange func() error) (*shardWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &shardWatcher{
		dir:      dir,
		watcher:  watcher,
		debounce: debounce,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching the directory
func (w *shardWatcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()

	log.Printf("✓ Watching %s for shard changes", w.dir)
	return nil
}

func (w *shardWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".js" {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.mu.Lock()
				w.lastChange = time.Now()
				w.pending = true
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: Shard watcher error: %v", err)
		}
	}
}

func (w *shardWatcher) processPending() {
	defer w.wg.Done()

	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			ready := w.pending && time.Since(w.lastChange) >= w.debounce
			if ready {
				w.pending = false
			}
			w.mu.Unlock()

			if ready {
				log.Printf("Shard directory changed, rebuilding symbol index...")
				if err := w.onChange(); err != nil {
					log.Printf("Warning: Rebuild after shard change failed: %v", err)
				}
			}
		}
	}
}

// Close stops watching and waits for the event goroutines to exit
func (w *shardWatcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
