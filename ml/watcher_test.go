package ml

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestModelWatcherReloadsRewrittenArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diehard-model.zip")
	watcher, err := NewModelWatcher(path, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reloaded := make(chan *PredictionEngine, 4)
	watcher.OnReload = func(engine *PredictionEngine) { reloaded <- engine }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer watcher.Stop()

	if watcher.Engine() != nil {
		t.Fatal("expected no engine before the artifact exists")
	}
	if err := SaveModel(path, fixedModel(), "run-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case engine := <-reloaded:
		prediction, err := engine.Predict(SmokeQueries()[0])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !prediction.Prediction {
			t.Fatalf("unexpected prediction %+v", prediction)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if watcher.Engine() == nil {
		t.Fatal("expected engine after reload")
	}
}

func TestModelWatcherLoadsExistingArtifactOnStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diehard-model.zip")
	if err := SaveModel(path, fixedModel(), "run-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	watcher, err := NewModelWatcher(path, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer watcher.Stop()
	if watcher.Engine() == nil {
		t.Fatal("expected engine loaded on start")
	}
}

func TestModelWatcherStopAfterFailedStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "diehard-model.zip")
	watcher, err := NewModelWatcher(path, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := watcher.Start(context.Background()); err == nil {
		t.Fatal("expected error watching a missing directory")
	}

	done := make(chan struct{})
	go func() {
		watcher.Stop()
		watcher.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
	if err := watcher.Start(context.Background()); err == nil {
		t.Fatal("expected error starting a stopped watcher")
	}
}

func TestModelWatcherRejectsForeignModelType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diehard-model.zip")
	model := fixedModel()
	model.Type = "decision_tree"
	if err := SaveModel(path, model, "run-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	watcher, err := NewModelWatcher(path, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var reloadErr error
	watcher.OnError = func(err error) { reloadErr = err }
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer watcher.Stop()
	if watcher.Engine() != nil {
		t.Fatal("expected no engine for a foreign model type")
	}
	if !errors.Is(reloadErr, ErrModelShape) {
		t.Fatalf("expected ErrModelShape, got %v", reloadErr)
	}
}
