package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	LogMode string `env:"LOG_MODE" envDefault:"dev"`

	DB DBConfig

	// Required in production. Outside it, an empty secret is replaced by a
	// random per-process key, so tokens do not survive a restart.
	JWTSecret          string   `env:"JWT_SECRET"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Empty disables the Redis leaderboard; the SQL board is used instead.
	RedisAddr string `env:"REDIS_ADDR"`

	StreakTimezone         string `env:"STREAK_TIMEZONE" envDefault:"UTC"`
	SectionUnlockThreshold int    `env:"SECTION_UNLOCK_THRESHOLD" envDefault:"80"`

	XP XPConfig
}

type DBConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"postgres"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"5432"`
	User       string `env:"DB_USER" envDefault:"tutorhub"`
	Password   string `env:"DB_PASSWORD" envDefault:"tutorhub"`
	Name       string `env:"DB_NAME" envDefault:"tutorhub"`
	SSLMode    string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"tutorhub.db"`
}

// XPConfig holds the fixed XP amount for each activity reason.
type XPConfig struct {
	Login          int `env:"XP_LOGIN" envDefault:"5"`
	LessonComplete int `env:"XP_LESSON_COMPLETE" envDefault:"10"`
	QuizPass       int `env:"XP_QUIZ_PASS" envDefault:"20"`
	CourseComplete int `env:"XP_COURSE_COMPLETE" envDefault:"50"`
	HelpPeer       int `env:"XP_HELP_PEER" envDefault:"15"`
	SessionAttend  int `env:"XP_SESSION_ATTEND" envDefault:"25"`
	GroupJoin      int `env:"XP_GROUP_JOIN" envDefault:"10"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be 'postgres' or 'sqlite', got %q", c.DB.Driver)
	}
	if c.SectionUnlockThreshold < 0 || c.SectionUnlockThreshold > 100 {
		return fmt.Errorf("SECTION_UNLOCK_THRESHOLD must be within 0..100")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required when LOG_MODE is production")
		}
		c.JWTSecret = uuid.NewString()
	}
	return nil
}

// IsProduction reports whether LOG_MODE selects the production setup.
func (c *Config) IsProduction() bool {
	switch c.LogMode {
	case "prod", "production":
		return true
	}
	return false
}

// Location resolves the timezone used to decide calendar days for streaks.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StreakTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid STREAK_TIMEZONE %q: %w", c.StreakTimezone, err)
	}
	return loc, nil
}
