// Package config loads daemon settings from three layers: built-in defaults,
// an optional TOML file at ~/.config/pomod/config.toml, and POMOD_* env
// variables. Later layers win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DataDir     string `toml:"data_dir"`     // POMOD_DATA_DIR (default ~/.local/share/pomod)
	SocketPath  string `toml:"socket_path"`  // POMOD_SOCKET_PATH (default <data_dir>/pomod.sock)
	DatabaseURL string `toml:"database_url"` // POMOD_DATABASE_URL (default sqlite at <data_dir>/pomod.db)
	NATSURL     string `toml:"nats_url"`     // POMOD_NATS_URL (optional, empty = no external events)
	LogLevel    string `toml:"log_level"`    // POMOD_LOG_LEVEL (default "info")

	// Sync settings
	SyncInterval   time.Duration `toml:"-"`                // POMOD_SYNC_INTERVAL (default 3m; 0 = disabled)
	SyncIntervalS  string        `toml:"sync_interval"`    // duration string in the TOML file
	SyncFilePath   string        `toml:"sync_file_path"`   // POMOD_SYNC_FILE_PATH (enables file export when set)
	SyncS3Bucket   string        `toml:"sync_s3_bucket"`   // POMOD_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        `toml:"sync_s3_endpoint"` // POMOD_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        `toml:"sync_s3_region"`   // POMOD_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        `toml:"sync_s3_key"`      // POMOD_SYNC_S3_KEY (default "pomod/sessions.jsonl")
	SyncGitRepo    string        `toml:"sync_git_repo"`    // POMOD_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        `toml:"sync_git_file"`    // POMOD_SYNC_GIT_FILE (default "sessions.jsonl")
	SyncGitBranch  string        `toml:"sync_git_branch"`  // POMOD_SYNC_GIT_BRANCH (default "main")
}

// Load builds the effective configuration from defaults, the config file,
// and the environment.
func Load() (*Config, error) {
	return load(defaultConfigPath())
}

// LoadFrom is Load with an explicit config file path; an empty path skips
// the file layer.
func LoadFrom(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	c := defaults()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if _, err := toml.DecodeFile(configPath, c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", configPath, err)
			}
		}
	}

	applyEnv(c)

	if c.SyncIntervalS != "" {
		d, err := time.ParseDuration(c.SyncIntervalS)
		if err != nil {
			return nil, fmt.Errorf("sync_interval: %w", err)
		}
		c.SyncInterval = d
	}

	// Paths left empty by the file/env layers derive from the data dir.
	if c.SocketPath == "" {
		c.SocketPath = filepath.Join(c.DataDir, "pomod.sock")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "sqlite://" + filepath.Join(c.DataDir, "pomod.db")
	}

	return c, nil
}

func defaults() *Config {
	return &Config{
		DataDir:       defaultDataDir(),
		LogLevel:      "info",
		SyncIntervalS: "3m",
		SyncS3Region:  "us-east-1",
		SyncS3Key:     "pomod/sessions.jsonl",
		SyncGitFile:   "sessions.jsonl",
		SyncGitBranch: "main",
	}
}

func applyEnv(c *Config) {
	setFromEnv(&c.DataDir, "POMOD_DATA_DIR")
	setFromEnv(&c.SocketPath, "POMOD_SOCKET_PATH")
	setFromEnv(&c.DatabaseURL, "POMOD_DATABASE_URL")
	setFromEnv(&c.NATSURL, "POMOD_NATS_URL")
	setFromEnv(&c.LogLevel, "POMOD_LOG_LEVEL")
	setFromEnv(&c.SyncIntervalS, "POMOD_SYNC_INTERVAL")
	setFromEnv(&c.SyncFilePath, "POMOD_SYNC_FILE_PATH")
	setFromEnv(&c.SyncS3Bucket, "POMOD_SYNC_S3_BUCKET")
	setFromEnv(&c.SyncS3Endpoint, "POMOD_SYNC_S3_ENDPOINT")
	setFromEnv(&c.SyncS3Region, "POMOD_SYNC_S3_REGION")
	setFromEnv(&c.SyncS3Key, "POMOD_SYNC_S3_KEY")
	setFromEnv(&c.SyncGitRepo, "POMOD_SYNC_GIT_REPO")
	setFromEnv(&c.SyncGitFile, "POMOD_SYNC_GIT_FILE")
	setFromEnv(&c.SyncGitBranch, "POMOD_SYNC_GIT_BRANCH")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "pomod")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "pomod-data"
	}
	return filepath.Join(home, ".local", "share", "pomod")
}

func defaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pomod", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pomod", "config.toml")
}
