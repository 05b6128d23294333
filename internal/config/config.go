package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Store struct {
		Driver string `yaml:"driver" validate:"oneof=memory redis sqlite"`
	} `yaml:"store"`
	Quiz struct {
		GroupSize          int    `yaml:"groupSize" validate:"min=1"`
		PerQuestionSeconds int    `yaml:"perQuestionSeconds" validate:"min=1"`
		Shuffle            bool   `yaml:"shuffle"`
		TTL                string `yaml:"ttl"`
		QuestionsFile      string `yaml:"questionsFile"`
	} `yaml:"quiz"`
	CORS struct {
		Origins []string `yaml:"origins"`
	} `yaml:"cors"`
}

var validate = validator.New()

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	cfg := Config{}
	cfg.Store.Driver = DriverMemory
	cfg.Quiz.GroupSize = 50
	cfg.Quiz.PerQuestionSeconds = 60
	cfg.CORS.Origins = []string{"*"}
	return cfg
}

// Load reads YAML config from path on top of the defaults and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, err
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("QUESTIONS_FILE"); v != "" {
		cfg.Quiz.QuestionsFile = v
	}
	if v, err := strconv.Atoi(os.Getenv("QUIZ_GROUP_SIZE")); err == nil {
		cfg.Quiz.GroupSize = v
	}
	if v, err := strconv.Atoi(os.Getenv("QUIZ_PER_QUESTION_SECONDS")); err == nil {
		cfg.Quiz.PerQuestionSeconds = v
	}
}

// Validate checks the struct constraints and cross-field requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Driver == DriverRedis && c.Redis.Addr == "" {
		return fmt.Errorf("invalid config: store.driver redis requires redis.addr")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
