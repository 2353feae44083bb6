package config

import (
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration in layers: defaults, the YAML file at path,
// dotenv files, then GUARD_ prefixed environment variables. A missing YAML
// or dotenv file is not an error.
func Load(path string, envFiles ...string) (*BaseConfig, error) {
	cfg := &BaseConfig{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(err, errors.CategoryBadInput, "unable to parse config file").
					WithMetadata(map[string]any{"path": path})
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, errors.Wrap(err, errors.CategoryInternal, "unable to read config file")
		}
	}

	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "unable to parse environment")
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	if len(existing) == 0 {
		return nil
	}

	// godotenv never overrides variables already set in the process
	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "unable to load dotenv files")
	}
	return nil
}

// Dump renders cfg for debug output, without secrets
func Dump(cfg *BaseConfig) string {
	return print.MaybePrettyJSON(cfg)
}
