package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "EAMHC_"

type Configuration struct {
	ApiPort   string `json:"api_port" yaml:"api_port"`
	LogPath   string `json:"log_path" yaml:"log_path"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"` // "json" or "console"

	Database    string `json:"database" yaml:"database"` // "sqlite3" or "postgres"
	DbHost      string `json:"db_host" yaml:"db_host"`
	DbPort      string `json:"db_port" yaml:"db_port"`
	DbUser      string `json:"db_user" yaml:"db_user"`
	DbName      string `json:"db_name" yaml:"db_name"`
	DbPass      string `json:"db_pass" yaml:"db_pass"`
	DbPath      string `json:"db_path" yaml:"db_path"`
	AutoMigrate bool   `json:"automigrate" yaml:"automigrate"`

	CorsOrigins []string `json:"cors_origins" yaml:"cors_origins"`

	Classifier Classifier `json:"classifier" yaml:"classifier"`
	Recorder   Recorder   `json:"recorder" yaml:"recorder"`
}

type Classifier struct {
	Backend        string   `json:"backend" yaml:"backend"` // process, pipe or simulated
	Command        string   `json:"command" yaml:"command"`
	Args           []string `json:"args" yaml:"args"`
	WorkDir        string   `json:"work_dir" yaml:"work_dir"`
	TimeoutSeconds int      `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxConcurrent  int      `json:"max_concurrent" yaml:"max_concurrent"`
	MaxTextLen     int      `json:"max_text_len" yaml:"max_text_len"`
	Protocol       string   `json:"protocol" yaml:"protocol"` // lenient or strict
	AllowDegraded  bool     `json:"allow_degraded" yaml:"allow_degraded"`
}

// Timeout converts TimeoutSeconds to a duration.
func (c Classifier) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type Recorder struct {
	QueueSize int `json:"queue_size" yaml:"queue_size"`
}

// Default returns a configuration with every default filled in.
func Default() Configuration {
	var c Configuration
	c.applyDefaults()
	return c
}

// Load reads a JSON or YAML file (by extension), applies EAMHC_* env
// overrides and fills in defaults. A missing file is not an error: the
// service then runs on defaults plus env.
func Load(path string) (Configuration, error) {
	var c Configuration

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// env + defaults only
		case err != nil:
			return c, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := decode(path, b, &c); err != nil {
				return c, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := c.applyEnv(); err != nil {
		return c, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func decode(path string, b []byte, c *Configuration) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, c)
	default:
		return json.Unmarshal(b, c)
	}
}

func (c *Configuration) applyEnv() error {
	envOverride(&c.ApiPort, "API_PORT")
	envOverride(&c.LogPath, "LOG_PATH")
	envOverride(&c.LogLevel, "LOG_LEVEL")
	envOverride(&c.LogFormat, "LOG_FORMAT")
	envOverride(&c.Database, "DATABASE")
	envOverride(&c.DbHost, "DB_HOST")
	envOverride(&c.DbPort, "DB_PORT")
	envOverride(&c.DbUser, "DB_USER")
	envOverride(&c.DbName, "DB_NAME")
	envOverride(&c.DbPass, "DB_PASS")
	envOverride(&c.DbPath, "DB_PATH")
	envOverrideList(&c.CorsOrigins, "CORS_ORIGINS")

	envOverride(&c.Classifier.Backend, "CLASSIFIER_BACKEND")
	envOverride(&c.Classifier.Command, "CLASSIFIER_COMMAND")
	envOverrideList(&c.Classifier.Args, "CLASSIFIER_ARGS")
	envOverride(&c.Classifier.WorkDir, "CLASSIFIER_WORK_DIR")
	envOverride(&c.Classifier.Protocol, "CLASSIFIER_PROTOCOL")

	return errors.Join(
		envOverrideBool(&c.AutoMigrate, "AUTOMIGRATE"),
		envOverrideInt(&c.Classifier.TimeoutSeconds, "CLASSIFIER_TIMEOUT_SECONDS"),
		envOverrideInt(&c.Classifier.MaxConcurrent, "CLASSIFIER_MAX_CONCURRENT"),
		envOverrideInt(&c.Classifier.MaxTextLen, "CLASSIFIER_MAX_TEXT_LEN"),
		envOverrideBool(&c.Classifier.AllowDegraded, "CLASSIFIER_ALLOW_DEGRADED"),
		envOverrideInt(&c.Recorder.QueueSize, "RECORDER_QUEUE_SIZE"),
	)
}

// defaults (pra evitar nil/zero chato)
func (c *Configuration) applyDefaults() {
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.DbPath == "" {
		c.DbPath = "db/database.db"
	}
	if len(c.CorsOrigins) == 0 {
		c.CorsOrigins = []string{"*"}
	}
	if c.Classifier.Backend == "" {
		c.Classifier.Backend = "process"
	}
	if c.Classifier.Command == "" && c.Classifier.Backend != "simulated" {
		c.Classifier.Command = "python3"
		if len(c.Classifier.Args) == 0 {
			c.Classifier.Args = []string{"predict_emotion.py"}
		}
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		c.Classifier.TimeoutSeconds = 30
	}
	if c.Classifier.MaxConcurrent <= 0 {
		c.Classifier.MaxConcurrent = 4
	}
	if c.Classifier.MaxTextLen <= 0 {
		c.Classifier.MaxTextLen = 5000
	}
	if c.Classifier.Protocol == "" {
		c.Classifier.Protocol = "lenient"
	}
	if c.Recorder.QueueSize <= 0 {
		c.Recorder.QueueSize = 100
	}
}

// Validate rejects values the service cannot start with.
func (c Configuration) Validate() error {
	switch c.Database {
	case "sqlite3", "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported database %q", c.Database)
	}
	switch c.Classifier.Backend {
	case "process", "pipe", "simulated":
	default:
		return fmt.Errorf("unsupported classifier backend %q", c.Classifier.Backend)
	}
	switch c.Classifier.Protocol {
	case "lenient", "strict":
	default:
		return fmt.Errorf("unsupported classifier protocol %q", c.Classifier.Protocol)
	}
	return nil
}

func envOverride(field *string, key string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*field = val
	}
}

func envOverrideList(field *[]string, key string) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return
	}
	*field = nil
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*field = append(*field, item)
		}
	}
}

func envOverrideInt(field *int, key string) error {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, val, err)
	}
	*field = parsed
	return nil
}

func envOverrideBool(field *bool, key string) error {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, val, err)
	}
	*field = parsed
	return nil
}
