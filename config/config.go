package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port         int           `yaml:"port"`
		Timeout      time.Duration `yaml:"timeout"`
		MaxBodyBytes int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Data struct {
		Path string `yaml:"path"`
	} `yaml:"data"`
	ML struct {
		ModelPath      string `yaml:"model_path"`
		ModelVersion   string `yaml:"model_version"`
		CacheArtifacts bool   `yaml:"cache_artifacts"`
		CacheSize      int    `yaml:"cache_size"`
	} `yaml:"ml"`
	Auth struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"auth"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
}

// envConfig lists the environment variables that override the yaml file.
// Fields are seeded from the file so unset variables keep those values.
type envConfig struct {
	Port           int           `env:"HTTP_PORT"`
	Timeout        time.Duration `env:"HTTP_TIMEOUT"`
	LogLevel       string        `env:"LOG_LEVEL"`
	LogFile        string        `env:"LOG_FILE"`
	DatasetPath    string        `env:"PATH_TO_DATASET"`
	ModelPath      string        `env:"PATH_TO_MODEL"`
	ModelVersion   string        `env:"MODEL_VERSION"`
	CacheArtifacts bool          `env:"MODEL_CACHE"`
	APIKey         string        `env:"API_KEY"`
	DatabasePath   string        `env:"AUDIT_DB_PATH"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Http.Port = 8000
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.MaxBodyBytes = 1 << 20
	cfg.Log.Level = "info"
	cfg.ML.ModelVersion = "v1"
	cfg.ML.CacheArtifacts = true
	cfg.ML.CacheSize = 4
	return cfg
}

// Load reads defaults, then the yaml file at path, then envFile, then the
// process environment. Missing files are skipped. The result is not
// validated; the server calls Validate before starting.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	env := envConfig{
		Port:           c.Http.Port,
		Timeout:        c.Http.Timeout,
		LogLevel:       c.Log.Level,
		LogFile:        c.Log.File,
		DatasetPath:    c.Data.Path,
		ModelPath:      c.ML.ModelPath,
		ModelVersion:   c.ML.ModelVersion,
		CacheArtifacts: c.ML.CacheArtifacts,
		APIKey:         c.Auth.APIKey,
		DatabasePath:   c.Database.Path,
	}
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decode environment: %w", err)
	}

	c.Http.Port = env.Port
	c.Http.Timeout = env.Timeout
	c.Log.Level = env.LogLevel
	c.Log.File = env.LogFile
	c.Data.Path = env.DatasetPath
	c.ML.ModelPath = env.ModelPath
	c.ML.ModelVersion = env.ModelVersion
	c.ML.CacheArtifacts = env.CacheArtifacts
	c.Auth.APIKey = env.APIKey
	c.Database.Path = env.DatabasePath
	return nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.Data.Path == "" {
		missing = append(missing, "PATH_TO_DATASET")
	}
	if c.ML.ModelPath == "" {
		missing = append(missing, "PATH_TO_MODEL")
	}
	if c.ML.ModelVersion == "" {
		missing = append(missing, "MODEL_VERSION")
	}
	if c.Auth.APIKey == "" {
		missing = append(missing, "API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.Http.Port)
	}
	return nil
}
