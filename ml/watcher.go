package ml

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ModelWatcher reloads the model artifact whenever it is rewritten and keeps
// a prediction engine built from the latest version.
type ModelWatcher struct {
	mu        sync.RWMutex
	watcher   *fsnotify.Watcher
	path      string
	cacheSize int
	engine    *PredictionEngine
	logger    *zap.Logger

	debounce time.Duration
	pending  time.Time

	OnReload func(engine *PredictionEngine)
	OnError  func(err error)

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	closed  bool
}

func NewModelWatcher(modelPath string, cacheSize int, logger *zap.Logger) (*ModelWatcher, error) {
	if modelPath == "" {
		return nil, errors.New("model path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(modelPath)
	if err != nil {
		w.Close()
		return nil, err
	}
	return &ModelWatcher{
		watcher:   w,
		path:      abs,
		cacheSize: cacheSize,
		logger:    logger,
		debounce:  200 * time.Millisecond,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Engine returns the engine for the most recently loaded model, or nil if
// no model has loaded yet.
func (mw *ModelWatcher) Engine() *PredictionEngine {
	mw.mu.RLock()
	defer mw.mu.RUnlock()
	return mw.engine
}

// Start loads the current artifact, if any, and begins watching its
// directory. Artifacts are replaced by rename, so the directory is watched
// rather than the file. A failed Start leaves the watcher stopped.
func (mw *ModelWatcher) Start(ctx context.Context) error {
	mw.mu.Lock()
	if mw.running {
		mw.mu.Unlock()
		return nil
	}
	if mw.closed {
		mw.mu.Unlock()
		return errors.New("model watcher is stopped")
	}
	if err := mw.watcher.Add(filepath.Dir(mw.path)); err != nil {
		mw.mu.Unlock()
		return fmt.Errorf("watch %s: %w", filepath.Dir(mw.path), err)
	}
	mw.running = true
	mw.mu.Unlock()
	if ok, _ := fileExists(mw.path); ok {
		mw.reload()
	}
	go mw.run(ctx)
	return nil
}

// Stop ends watching and releases the fsnotify handle. It is safe to call
// after a failed Start and more than once.
func (mw *ModelWatcher) Stop() {
	mw.mu.Lock()
	if mw.closed {
		mw.mu.Unlock()
		return
	}
	wasRunning := mw.running
	mw.running = false
	mw.closed = true
	mw.mu.Unlock()

	if wasRunning {
		close(mw.stopCh)
		<-mw.doneCh
	}
	if err := mw.watcher.Close(); err != nil {
		mw.logger.Warn("closing model watcher", zap.Error(err))
	}
}

func (mw *ModelWatcher) run(ctx context.Context) {
	defer close(mw.doneCh)

	ticker := time.NewTicker(mw.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-mw.stopCh:
			return
		case event, ok := <-mw.watcher.Events:
			if !ok {
				return
			}
			mw.handleEvent(event)
		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return
			}
			mw.logger.Warn("model watcher error", zap.Error(err))
		case <-ticker.C:
			mw.mu.Lock()
			due := !mw.pending.IsZero() && time.Since(mw.pending) >= mw.debounce
			if due {
				mw.pending = time.Time{}
			}
			mw.mu.Unlock()
			if due {
				mw.reload()
			}
		}
	}
}

func (mw *ModelWatcher) handleEvent(event fsnotify.Event) {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != mw.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	mw.logger.Debug("model artifact changed", zap.String("op", event.Op.String()))
	mw.mu.Lock()
	mw.pending = time.Now()
	mw.mu.Unlock()
}

func (mw *ModelWatcher) reload() {
	model, _, err := LoadModelArtifact(ModelTypeAveragedPerceptron, mw.path)
	if err == nil {
		var engine *PredictionEngine
		engine, err = NewPredictionEngine(model, mw.cacheSize)
		if err == nil {
			mw.mu.Lock()
			mw.engine = engine
			mw.mu.Unlock()
			mw.logger.Info("model reloaded", zap.String("path", mw.path))
			if mw.OnReload != nil {
				mw.OnReload(engine)
			}
			return
		}
	}
	mw.logger.Warn("model reload failed", zap.String("path", mw.path), zap.Error(err))
	if mw.OnError != nil {
		mw.OnError(err)
	}
}
