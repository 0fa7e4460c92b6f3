package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/conduit-lang/retarget/internal/orm/resolve"
)

// Config represents the retarget configuration
type Config struct {
	ProjectName    string          `mapstructure:"project_name"`
	Database       DatabaseConfig  `mapstructure:"database"`
	Mapping        MappingConfig   `mapstructure:"mapping"`
	Log            LogConfig       `mapstructure:"log"`
	ResolveTargets []ResolveTarget `mapstructure:"resolve_targets"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL    string `mapstructure:"url"`
	Driver string `mapstructure:"driver"`
}

// MappingConfig lists where mapping documents are read from. Entries may be
// files, directories, or glob patterns.
type MappingConfig struct {
	Paths []string `mapstructure:"paths"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ResolveTarget maps one abstract type to a concrete resource
type ResolveTarget struct {
	Abstract  string                 `mapstructure:"abstract"`
	Concrete  string                 `mapstructure:"concrete"`
	Overrides map[string]interface{} `mapstructure:"overrides"`
}

var (
	supportedDrivers = []string{"pgx", "postgres", "sqlite3"}
	logLevels        = []string{"debug", "info", "warn", "error"}
)

// Load loads the configuration from path, or from retarget.yml /
// retarget.yaml in the working directory when path is empty. Settings can be
// overridden with RETARGET_ environment variables, e.g. RETARGET_DATABASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("project_name", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", "pgx")
	v.SetDefault("log.level", "info")
	v.SetDefault("mapping.paths", []string{})

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("retarget")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RETARGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file in the working directory - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DatabaseURL returns DATABASE_URL when set, otherwise database.url
func (c *Config) DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return c.Database.URL
}

// RegisterTargets registers every configured resolve target
func (c *Config) RegisterTargets(targets *resolve.TargetRegistry) {
	for _, t := range c.ResolveTargets {
		targets.Register(t.Abstract, t.Concrete, t.Overrides)
	}
}

// MappingFiles returns the mapping files named by args, or by mapping.paths
// when args is empty. Entries may be files, directories, or doublestar glob
// patterns such as "mappings/**/*.yml". Directories expand to every .yml and
// .yaml file below them.
func (c *Config) MappingFiles(args []string) ([]string, error) {
	paths := args
	if len(paths) == 0 {
		paths = c.Mapping.Paths
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no mapping files given and mapping.paths is empty")
	}

	var files []string
	for _, path := range paths {
		pattern := path
		if !hasMeta(path) {
			info, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("mapping path: %w", err)
			}
			if !info.IsDir() {
				files = append(files, path)
				continue
			}
			pattern = filepath.Join(path, "**", "*.{yml,yaml}")
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("mapping path %s: %w", path, err)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no mapping files found in %s", strings.Join(paths, ", "))
	}
	return files, nil
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if !contains(supportedDrivers, cfg.Database.Driver) {
		return fmt.Errorf("database.driver must be one of %s, got: %s",
			strings.Join(supportedDrivers, ", "), cfg.Database.Driver)
	}
	if !contains(logLevels, cfg.Log.Level) {
		return fmt.Errorf("log.level must be one of %s, got: %s",
			strings.Join(logLevels, ", "), cfg.Log.Level)
	}

	seen := make(map[string]bool)
	for i, t := range cfg.ResolveTargets {
		if resolve.Normalize(t.Abstract) == "" {
			return fmt.Errorf("resolve_targets[%d]: abstract is required", i)
		}
		if resolve.Normalize(t.Concrete) == "" {
			return fmt.Errorf("resolve_targets[%d]: concrete is required", i)
		}
		key := resolve.Normalize(t.Abstract)
		if seen[key] {
			return fmt.Errorf("resolve_targets[%d]: %s is configured twice", i, t.Abstract)
		}
		seen[key] = true
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
