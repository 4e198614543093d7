package ml

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	SchemaPipeline  = "diehard.pipeline"
	SchemaModel     = "diehard.model"
	ArtifactVersion = 1

	manifestEntry = "manifest.json"
	pipelineEntry = "pipeline.json"
	modelEntry    = "model.json"
)

var (
	ErrArtifactSchema  = errors.New("artifact schema mismatch")
	ErrArtifactVersion = errors.New("unsupported artifact version")
)

// Manifest heads every artifact archive.
type Manifest struct {
	Schema    string    `json:"schema"`
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

type modelPayload struct {
	Type                string             `json:"type"`
	Pipeline            *Pipeline          `json:"pipeline"`
	PipelineFingerprint string             `json:"pipeline_fingerprint"`
	Linear              *LinearBinaryModel `json:"linear"`
	Options             PerceptronOptions  `json:"options"`
}

func SavePipeline(path string, pipeline *Pipeline, runID string) error {
	if pipeline == nil {
		return errors.New("pipeline is nil")
	}
	if err := pipeline.validate(); err != nil {
		return err
	}
	return writeArchive(path, Manifest{
		Schema:    SchemaPipeline,
		Version:   ArtifactVersion,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
	}, pipelineEntry, pipeline)
}

func SaveModel(path string, model *TrainedModel, runID string) error {
	if model == nil {
		return errors.New("model is nil")
	}
	if err := model.Validate(); err != nil {
		return err
	}
	payload := modelPayload{
		Type:                model.Type,
		Pipeline:            model.Pipeline,
		PipelineFingerprint: model.Pipeline.Fingerprint(),
		Linear:              model.Linear,
		Options:             model.Options,
	}
	return writeArchive(path, Manifest{
		Schema:    SchemaModel,
		Version:   ArtifactVersion,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
	}, modelEntry, payload)
}

func LoadPipeline(path string) (*Pipeline, Manifest, error) {
	var pipeline Pipeline
	manifest, err := readArchive(path, SchemaPipeline, pipelineEntry, &pipeline)
	if err != nil {
		return nil, manifest, err
	}
	if err := pipeline.validate(); err != nil {
		return nil, manifest, fmt.Errorf("%w: %v", ErrArtifactSchema, err)
	}
	return &pipeline, manifest, nil
}

func LoadModel(path string) (*TrainedModel, Manifest, error) {
	var payload modelPayload
	manifest, err := readArchive(path, SchemaModel, modelEntry, &payload)
	if err != nil {
		return nil, manifest, err
	}
	model := &TrainedModel{
		Type:     payload.Type,
		Pipeline: payload.Pipeline,
		Linear:   payload.Linear,
		Options:  payload.Options,
	}
	if err := model.Validate(); err != nil {
		return nil, manifest, fmt.Errorf("%s: %w", path, err)
	}
	if payload.PipelineFingerprint != model.Pipeline.Fingerprint() {
		return nil, manifest, fmt.Errorf("%s: %w: embedded pipeline fingerprint does not match", path, ErrPipelineMismatch)
	}
	return model, manifest, nil
}

// writeArchive writes a temp file next to path and renames it into place.
func writeArchive(path string, manifest Manifest, entry string, payload interface{}) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	if err = writeJSONEntry(zw, manifestEntry, manifest); err != nil {
		return err
	}
	if err = writeJSONEntry(zw, entry, payload); err != nil {
		return err
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install artifact %s: %w", path, err)
	}
	return nil
}

func writeJSONEntry(zw *zip.Writer, name string, value interface{}) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("encode entry %s: %w", name, err)
	}
	return nil
}

func readArchive(path, schema, entry string, payload interface{}) (Manifest, error) {
	var manifest Manifest
	zr, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return manifest, fmt.Errorf("%s: %w: not a zip archive", path, ErrArtifactSchema)
		}
		return manifest, err
	}
	defer zr.Close()

	if err := readJSONEntry(&zr.Reader, manifestEntry, &manifest); err != nil {
		return manifest, fmt.Errorf("%s: %w: %v", path, ErrArtifactSchema, err)
	}
	if manifest.Schema != schema {
		return manifest, fmt.Errorf("%s: %w: expected %q, got %q", path, ErrArtifactSchema, schema, manifest.Schema)
	}
	if manifest.Version != ArtifactVersion {
		return manifest, fmt.Errorf("%s: %w: %d", path, ErrArtifactVersion, manifest.Version)
	}
	if err := readJSONEntry(&zr.Reader, entry, payload); err != nil {
		return manifest, fmt.Errorf("%s: %w: %v", path, ErrArtifactSchema, err)
	}
	return manifest, nil
}

func readJSONEntry(zr *zip.Reader, name string, value interface{}) error {
	f, err := zr.Open(name)
	if err != nil {
		return fmt.Errorf("missing entry %s", name)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, value)
}
