package config

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const DefaultFile = "/etc/facelog/config.json"

// Capture sources.
const (
	SourceOpenCV = "opencv"
	SourceV4L2   = "v4l2"
)

// FaceLogDir is the shared subdirectory of TempDir holding face-log snapshots.
const FaceLogDir = "face_log"

type Config struct {
	BaseURL         string `json:"base_url"`
	TempDir         string `json:"temp_dir"`
	Devices         []int  `json:"devices"`
	Source          string `json:"source"`
	CascadeFile     string `json:"cascade_file"`
	Headless        bool   `json:"headless"`
	CaptureInterval int    `json:"capture_interval"`
	StabilizeFrames int    `json:"stabilize_frames"`
	MaxRounds       int    `json:"max_rounds"`
	MaxAttempts     int    `json:"max_attempts"`
	RetryDelay      int    `json:"retry_delay"`
	ResultDelay     int    `json:"result_delay"`
	LogLevel        string `json:"log_level"`
	Journal         bool   `json:"journal"`
}

// Load reads file (DefaultFile when empty), overlays .env and FACELOG_*
// variables, then fills in defaults for anything left unset.
func Load(file string) *Config {
	explicit := file != ""
	if !explicit {
		file = DefaultFile
	}

	conf, err := loadFromFile(file)
	if err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
		slog.Warn("Failed to load config file", "file", file, "error", err)
	}
	if conf == nil {
		conf = &Config{}
	}

	// .env is optional
	_ = godotenv.Load()
	conf.applyEnv()
	conf.applyDefaults()

	return conf
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8000"
	}
	if c.TempDir == "" {
		c.TempDir = "temp_images"
	}
	if len(c.Devices) == 0 {
		c.Devices = []int{1, 2}
	}
	if c.Source == "" {
		c.Source = SourceOpenCV
	}
	if c.CascadeFile == "" {
		c.CascadeFile = "haarcascade_frontalface_default.xml"
	}
	if c.CaptureInterval <= 0 {
		c.CaptureInterval = 30
	}
	if c.StabilizeFrames <= 0 {
		c.StabilizeFrames = 60
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2
	}
	if c.ResultDelay <= 0 {
		c.ResultDelay = 5
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FACELOG_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("FACELOG_TEMP_DIR"); v != "" {
		c.TempDir = v
	}
	if v := os.Getenv("FACELOG_DEVICES"); v != "" {
		if devices := parseDevices(v); len(devices) > 0 {
			c.Devices = devices
		} else {
			slog.Warn("Ignoring invalid FACELOG_DEVICES", "value", v)
		}
	}
	if v := os.Getenv("FACELOG_SOURCE"); v != "" {
		c.Source = strings.ToLower(v)
	}
	if v := os.Getenv("FACELOG_CASCADE_FILE"); v != "" {
		c.CascadeFile = v
	}
	if v := os.Getenv("FACELOG_HEADLESS"); v != "" {
		c.Headless, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("FACELOG_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("FACELOG_JOURNAL"); v != "" {
		c.Journal, _ = strconv.ParseBool(v)
	}
	c.MaxRounds = envInt("FACELOG_MAX_ROUNDS", c.MaxRounds)
	c.MaxAttempts = envInt("FACELOG_MAX_ATTEMPTS", c.MaxAttempts)
}

// envInt returns fallback when key is unset or not a positive integer.
func envInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return fallback
}

// parseDevices parses a comma separated list such as "1,2".
func parseDevices(s string) []int {
	var devices []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil
		}
		devices = append(devices, n)
	}
	return devices
}

func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

func (c *Config) ResultPause() time.Duration {
	return time.Duration(c.ResultDelay) * time.Second
}

func (c *Config) FaceLogPath() string {
	return filepath.Join(c.TempDir, FaceLogDir)
}

// loadFromFile returns nil and an error wrapping fs.ErrNotExist when path is
// missing.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Can not read config")
	}

	var conf Config
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, errors.Wrapf(err, "Can not parse %s", path)
	}
	return &conf, nil
}
