package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrEmptyDataset = errors.New("dataset is empty")

// Pipeline concatenates named numeric columns into one feature vector column.
type Pipeline struct {
	OutputColumn string   `json:"output_column"`
	InputColumns []string `json:"input_columns"`
}

// FeatureSet is the transformed view of a dataset.
type FeatureSet struct {
	Vectors [][]float64
	Labels  []bool
}

func (s FeatureSet) Len() int {
	return len(s.Vectors)
}

func NewConcatPipeline(output string, inputs ...string) *Pipeline {
	return &Pipeline{
		OutputColumn: output,
		InputColumns: append([]string(nil), inputs...),
	}
}

// DefaultPipeline concatenates the three movie ratings into Features.
func DefaultPipeline() *Pipeline {
	return NewConcatPipeline(ColumnFeatures, ColumnStarWars, ColumnArmageddon, ColumnSleeplessInSeattle)
}

func (p *Pipeline) FeatureCount() int {
	return len(p.InputColumns)
}

// Fit checks the input columns against the data and returns the fitted
// pipeline. A concatenation has no learned state, so the receiver itself is
// returned on success.
func (p *Pipeline) Fit(records []MoviePreference) (*Pipeline, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	for _, column := range p.InputColumns {
		if _, err := records[0].Column(column); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pipeline) Transform(records []MoviePreference) (FeatureSet, error) {
	if len(records) == 0 {
		return FeatureSet{}, ErrEmptyDataset
	}
	set := FeatureSet{
		Vectors: make([][]float64, 0, len(records)),
		Labels:  make([]bool, 0, len(records)),
	}
	for i, record := range records {
		vector, err := p.Vector(record)
		if err != nil {
			return FeatureSet{}, fmt.Errorf("record %d: %w", i, err)
		}
		set.Vectors = append(set.Vectors, vector)
		set.Labels = append(set.Labels, record.LikesDieHard)
	}
	return set, nil
}

// Vector transforms a single record, ignoring its label.
func (p *Pipeline) Vector(record MoviePreference) ([]float64, error) {
	vector := make([]float64, len(p.InputColumns))
	for i, column := range p.InputColumns {
		value, err := record.Column(column)
		if err != nil {
			return nil, err
		}
		vector[i] = value
	}
	return vector, nil
}

// Fingerprint identifies the pipeline layout. Models record it so a model is
// never paired with a pipeline that produces differently ordered features.
func (p *Pipeline) Fingerprint() string {
	payload, _ := json.Marshal(p)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (p *Pipeline) Equal(other *Pipeline) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Fingerprint() == other.Fingerprint()
}

func (p *Pipeline) validate() error {
	if p.OutputColumn == "" {
		return errors.New("pipeline output column is required")
	}
	if len(p.InputColumns) == 0 {
		return errors.New("pipeline has no input columns")
	}
	seen := make(map[string]struct{}, len(p.InputColumns))
	for _, column := range p.InputColumns {
		if _, ok := seen[column]; ok {
			return fmt.Errorf("duplicate input column %q", column)
		}
		seen[column] = struct{}{}
	}
	return nil
}
