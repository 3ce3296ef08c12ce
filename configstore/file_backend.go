package configstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/core"
)

// FileBackend persists Config as a local YAML file, for local/manual
// exercising of cmd/agentctl without a Redis instance. Adapted from the
// teacher's Config.LoadFromFile path-cleaning discipline (core/config.go);
// unlike the teacher's file loader, this one carries through YAML support
// rather than stopping at JSON. The file is always parsed as YAML; its
// extension is not checked.
type FileBackend struct {
	path   string
	logger core.Logger
}

func NewFileBackend(path string, logger core.Logger) *FileBackend {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &FileBackend{path: path, logger: logger}
}

func (b *FileBackend) Load(ctx context.Context) (Config, bool, error) {
	cleanPath := filepath.Clean(b.path)
	data, err := os.ReadFile(cleanPath)
	if os.IsNotExist(err) {
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, fmt.Errorf("reading config file %s: %w", cleanPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		b.logger.Error("failed to parse config file", map[string]interface{}{"path": cleanPath, "error": err.Error()})
		return Config{}, false, fmt.Errorf("parsing config file %s: %w", cleanPath, core.ErrInvalidConfiguration)
	}
	if cfg.APIKeys == nil {
		cfg.APIKeys = map[aiclient.Provider]string{}
	}
	return cfg, true, nil
}

func (b *FileBackend) Save(ctx context.Context, cfg Config) error {
	cleanPath := filepath.Clean(b.path)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(cleanPath, data, 0o600)
}
