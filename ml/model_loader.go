package ml

import (
	"errors"
	"fmt"
)

var ErrUnknownModelType = errors.New("unsupported model type")

// LoadModelArtifact loads a persisted model of the given type and checks
// that the archive actually holds that type.
func LoadModelArtifact(modelType, path string) (*TrainedModel, Manifest, error) {
	switch modelType {
	case ModelTypeAveragedPerceptron:
		model, manifest, err := LoadModel(path)
		if err != nil {
			return nil, Manifest{}, err
		}
		if model.Type != modelType {
			return nil, Manifest{}, fmt.Errorf("%w: %s holds %q, want %q", ErrModelShape, path, model.Type, modelType)
		}
		return model, manifest, nil
	default:
		return nil, Manifest{}, fmt.Errorf("%w: %q", ErrUnknownModelType, modelType)
	}
}
