package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Cfg struct {
	Database   Database
	Logger     Logger
	Browser    Browser
	Recorder   Recorder
	Media      Media
	Migrations Migrations
}

type Database struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// Enabled сообщает, настроена ли история записей в БД
func (d Database) Enabled() bool {
	return d.Host != ""
}

type Migrations struct {
	Path string
}

type Logger struct {
	Env   string
	Level string
}

type Browser struct {
	Headless     bool
	BrowsersPath string
}

type Recorder struct {
	OutputDir     string
	RecordTimeout time.Duration
	SettleDelay   time.Duration
	FetchRetries  int
}

type Media struct {
	FFmpegPath string
}

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	cfg := &Cfg{
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     env("DB_PORT", "5432"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
		},
		Logger: Logger{
			Env:   env("ENV", "dev"),
			Level: env("LOG_LEVEL", "info"),
		},
		Browser: Browser{
			Headless:     envBoolDefault("PW_HEADLESS", true),
			BrowsersPath: env("PW_BROWSERS_PATH", ""),
		},
		Recorder: Recorder{
			OutputDir:     env("REPLAY_OUTPUT_DIR", "replays"),
			RecordTimeout: envDuration("REPLAY_RECORD_TIMEOUT", 150*time.Second),
			SettleDelay:   envDuration("REPLAY_SETTLE_DELAY", 1500*time.Millisecond),
			FetchRetries:  envInt("REPLAY_FETCH_RETRIES", 3),
		},
		Media: Media{
			FFmpegPath: env("FFMPEG_PATH", "ffmpeg"),
		},
		Migrations: Migrations{
			Path: env("MIGRATIONS_PATH", "file://migrations"),
		},
	}

	return cfg, nil
}

func env(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envBoolDefault(key string, defaultValue bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

// envDuration принимает как "90s", так и число миллисекунд
func envDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
