package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cozy-creator/brandgen/internal/templates"
	"github.com/cozy-creator/brandgen/internal/utils/pathutil"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FilesystemLocal = "local"
	FilesystemS3    = "s3"
)

const (
	DBDriverSQLite = "sqlite"
	DBDriverPG     = "pg"
	DBDriverLibSQL = "libsql"
)

const (
	TrainingModeAsync     = "async"
	TrainingModeImmediate = "immediate"
)

const EnvPrefix = "BRANDGEN"

type Config struct {
	Environment    string `mapstructure:"environment"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	PublicDir      string `mapstructure:"public_dir"`
	HomeDir        string `mapstructure:"home_dir"`
	AssetsDir      string `mapstructure:"assets_dir"`
	TempDir        string `mapstructure:"temp_dir"`
	FilesystemType string `mapstructure:"filesystem_type"`

	DB        DBConfig        `mapstructure:"db"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Training  TrainingConfig  `mapstructure:"training"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Tracing   TracingConfig   `mapstructure:"tracing"`

	S3     *S3Config     `mapstructure:"s3"`
	Pulsar *PulsarConfig `mapstructure:"pulsar"`
	Redis  *RedisConfig  `mapstructure:"redis"`

	OpenAI      *OpenAIConfig `mapstructure:"openai"`
	HuggingFace *APIKeyConfig `mapstructure:"huggingface"`
	Fireworks   *APIKeyConfig `mapstructure:"fireworks"`
	Replicate   *APIKeyConfig `mapstructure:"replicate"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

type GeneratorConfig struct {
	Backend string `mapstructure:"backend"`
	Topic   string `mapstructure:"topic"`
	Workers int    `mapstructure:"workers"`
	// QueueSize bounds the in-memory queue; ignored by Pulsar.
	QueueSize int `mapstructure:"queue_size"`
}

type TrainingConfig struct {
	Mode          string        `mapstructure:"mode"`
	Workers       int           `mapstructure:"workers"`
	StepInterval  time.Duration `mapstructure:"step_interval"`
	StorageDomain string        `mapstructure:"storage_domain"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type AuthConfig struct {
	Required bool `mapstructure:"required"`
	// JWTSecret enables HS256 signature checks. Without it tokens are
	// assumed to be verified by the fronting identity provider.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type S3Config struct {
	Folder      string `mapstructure:"folder"`
	Region      string `mapstructure:"region_name"`
	Bucket      string `mapstructure:"bucket_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	EndpointUrl string `mapstructure:"endpoint_url"`
	PublicUrl   string `mapstructure:"public_url"`
}

type PulsarConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type OpenAIConfig struct {
	APIKey       string `mapstructure:"api_key"`
	SafetyFilter bool   `mapstructure:"safety_filter"`
}

type APIKeyConfig struct {
	APIKey string `mapstructure:"api_key"`
}

var config *Config

// SetDefaults registers every key with viper so env overrides reach
// Unmarshal even when no config file mentions them.
func SetDefaults() {
	viper.SetDefault("environment", DefaultEnvironment)
	viper.SetDefault("host", DefaultHost)
	viper.SetDefault("port", DefaultPort)
	viper.SetDefault("public_dir", "")
	viper.SetDefault("home_dir", DefaultHomeDir)
	viper.SetDefault("assets_dir", "")
	viper.SetDefault("temp_dir", "")
	viper.SetDefault("filesystem_type", FilesystemLocal)

	viper.SetDefault("db.driver", DBDriverSQLite)
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.debug", false)

	viper.SetDefault("generator.backend", "mock")
	viper.SetDefault("generator.topic", DefaultGenerateTopic)
	viper.SetDefault("generator.workers", 2)
	viper.SetDefault("generator.queue_size", 64)

	viper.SetDefault("training.mode", TrainingModeAsync)
	viper.SetDefault("training.workers", 1)
	viper.SetDefault("training.step_interval", 50*time.Millisecond)
	viper.SetDefault("training.storage_domain", DefaultStorageDomain)

	viper.SetDefault("rate_limit.enabled", false)
	viper.SetDefault("rate_limit.requests_per_second", 5.0)
	viper.SetDefault("rate_limit.burst", 10)

	viper.SetDefault("auth.required", false)
	viper.SetDefault("auth.jwt_secret", "")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "")
	viper.SetDefault("tracing.insecure", false)
	viper.SetDefault("tracing.sample_ratio", 1.0)

	viper.SetDefault("s3.folder", "")
	viper.SetDefault("s3.region_name", "")
	viper.SetDefault("s3.bucket_name", "")
	viper.SetDefault("s3.access_key", "")
	viper.SetDefault("s3.secret_key", "")
	viper.SetDefault("s3.endpoint_url", "")
	viper.SetDefault("s3.public_url", "")

	viper.SetDefault("pulsar.url", "")
	viper.SetDefault("redis.url", "")
	viper.SetDefault("openai.safety_filter", false)
}

// BindEnvs binds third-party credentials to their conventional variable
// names, which do not carry the BRANDGEN_ prefix.
func BindEnvs() {
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("huggingface.api_key", "HF_TOKEN")
	viper.BindEnv("fireworks.api_key", "FIREWORKS_API_KEY")
	viper.BindEnv("replicate.api_key", "REPLICATE_API_TOKEN")
}

// LoadEnvAndConfigFiles prepares the home directory, loads the .env file and
// config.yaml from it (or from --env-file / --config-file), and unmarshals
// the result.
func LoadEnvAndConfigFiles() error {
	home, err := pathutil.ExpandPath(viper.GetString("home_dir"))
	if err != nil {
		return fmt.Errorf("failed to expand home dir: %w", err)
	}
	if home == "" {
		return ErrHomeNotSet
	}
	if err := createHomeDirs(home); err != nil {
		return err
	}
	viper.Set("home_dir", home)

	envFile := viper.GetString("env_file")
	if envFile == "" {
		envFile = filepath.Join(home, ".env")
		if err := writeIfMissing(envFile, templates.WriteEnv); err != nil {
			return err
		}
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	configFile := viper.GetString("config_file")
	if configFile == "" {
		configFile = filepath.Join(home, "config.yaml")
		err := writeIfMissing(configFile, func(path string) error {
			return templates.WriteConfig(path, home)
		})
		if err != nil {
			return err
		}
	}
	viper.SetConfigFile(configFile)

	return LoadConfig(true)
}

func LoadConfig(reload bool) error {
	if config != nil && !reload {
		return ErrConfigLoaded
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return err
	}

	config = cfg
	return nil
}

// normalize fills derived paths and drops optional sections that were
// left empty, so callers can test them against nil.
func (c *Config) normalize() error {
	if c.AssetsDir == "" && c.HomeDir != "" {
		c.AssetsDir = filepath.Join(c.HomeDir, "assets")
	}
	if c.TempDir == "" && c.HomeDir != "" {
		c.TempDir = filepath.Join(c.HomeDir, "temp")
	}
	if c.DB.DSN == "" && c.DB.Driver == DBDriverSQLite {
		c.DB.DSN = fmt.Sprintf("file:%s?cache=shared", filepath.Join(c.HomeDir, "brandgen.db"))
	}

	if c.S3 != nil && c.S3.Bucket == "" {
		c.S3 = nil
	}
	if c.Pulsar != nil && c.Pulsar.URL == "" {
		c.Pulsar = nil
	}
	if c.Redis != nil && c.Redis.URL == "" {
		c.Redis = nil
	}
	if c.OpenAI != nil && c.OpenAI.APIKey == "" {
		c.OpenAI = nil
	}
	for _, key := range []**APIKeyConfig{&c.HuggingFace, &c.Fireworks, &c.Replicate} {
		if *key != nil && (*key).APIKey == "" {
			*key = nil
		}
	}

	switch strings.ToLower(c.DB.Driver) {
	case DBDriverSQLite, DBDriverPG, DBDriverLibSQL:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidDBDriver, c.DB.Driver)
	}

	return nil
}

func IsLoaded() bool {
	return config != nil
}

func GetConfig() *Config {
	return config
}

func MustGetConfig() *Config {
	if config == nil {
		panic("config not loaded")
	}

	return config
}

// SetConfig replaces the process config. Intended for tests and for
// commands that build a config without viper.
func SetConfig(cfg *Config) {
	config = cfg
}

func createHomeDirs(home string) error {
	for _, dir := range []string{home, filepath.Join(home, "assets"), filepath.Join(home, "temp")} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	return nil
}

func writeIfMissing(path string, write func(string) error) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return write(path)
}
