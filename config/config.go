package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"diehard/ml"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Artifacts struct {
		PipelinePath string `yaml:"pipeline_path"`
		ModelPath    string `yaml:"model_path"`
	} `yaml:"artifacts"`
	Trainer struct {
		Iterations           int     `yaml:"iterations"`
		LearningRate         float64 `yaml:"learning_rate"`
		DecreaseLearningRate bool    `yaml:"decrease_learning_rate"`
		L2Regularization     float64 `yaml:"l2_regularization"`
		Shuffle              bool    `yaml:"shuffle"`
		Seed                 int64   `yaml:"seed"`
		Loss                 string  `yaml:"loss"`
		Margin               float64 `yaml:"margin"`
	} `yaml:"trainer"`
	Engine struct {
		CacheSize int `yaml:"cache_size"`
	} `yaml:"engine"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

// Default returns the settings used when no config file is present.
func Default() *Config {
	var c Config
	paths := ml.DefaultArtifactPaths()
	c.Artifacts.PipelinePath = paths.Pipeline
	c.Artifacts.ModelPath = paths.Model

	opts := ml.DefaultPerceptronOptions()
	c.Trainer.Iterations = opts.Iterations
	c.Trainer.LearningRate = opts.LearningRate
	c.Trainer.DecreaseLearningRate = opts.DecreaseLearningRate
	c.Trainer.L2Regularization = opts.L2Regularization
	c.Trainer.Shuffle = opts.Shuffle
	c.Trainer.Seed = opts.Seed
	c.Trainer.Loss = opts.Loss
	c.Trainer.Margin = opts.Margin

	c.Engine.CacheSize = ml.DefaultCacheSize
	c.Database.Path = "./diehard-history.db"
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 10
	c.Log.MaxBackups = 3
	return &c
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Artifacts.PipelinePath == "" || c.Artifacts.ModelPath == "" {
		return errors.New("artifact paths are required")
	}
	if filepath.Clean(c.Artifacts.PipelinePath) == filepath.Clean(c.Artifacts.ModelPath) {
		return errors.New("pipeline and model artifacts must be different files")
	}
	if c.Trainer.Iterations <= 0 {
		return errors.New("trainer.iterations must be positive")
	}
	if c.Trainer.LearningRate <= 0 {
		return errors.New("trainer.learning_rate must be positive")
	}
	if c.Trainer.L2Regularization < 0 {
		return errors.New("trainer.l2_regularization must not be negative")
	}
	if _, err := ml.LossByName(c.Trainer.Loss, c.Trainer.Margin); err != nil {
		return err
	}
	if c.Engine.CacheSize < 0 {
		return errors.New("engine.cache_size must not be negative")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

func (c *Config) ArtifactPaths() ml.ArtifactPaths {
	return ml.ArtifactPaths{
		Pipeline: c.Artifacts.PipelinePath,
		Model:    c.Artifacts.ModelPath,
	}
}

func (c *Config) PerceptronOptions() ml.PerceptronOptions {
	return ml.PerceptronOptions{
		Iterations:           c.Trainer.Iterations,
		LearningRate:         c.Trainer.LearningRate,
		DecreaseLearningRate: c.Trainer.DecreaseLearningRate,
		L2Regularization:     c.Trainer.L2Regularization,
		Shuffle:              c.Trainer.Shuffle,
		Seed:                 c.Trainer.Seed,
		Loss:                 c.Trainer.Loss,
		Margin:               c.Trainer.Margin,
	}
}
