package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
	// MigrationsDir overrides the in-repo db/migrations path, for
	// deployments where migrations ship separately from the binary.
	MigrationsDir string `yaml:"migrationsDir"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

// BrowserConfig controls the headless browser used by the extraction
// engine. Bin is the path to a Chromium-compatible executable; when
// ControlURL is set the launcher is skipped and rod connects to an
// already-running browser instead.
type BrowserConfig struct {
	Bin        string `yaml:"bin"`
	ControlURL string `yaml:"controlURL"`
	Headless   bool   `yaml:"headless"`
}

// CaptchaConfig holds credentials for the external OCR service that
// turns captcha screenshots into text.
type CaptchaConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UserID    string `yaml:"userId"`
	APIKey    string `yaml:"apiKey"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

// ScraperConfig holds the per-attempt waits and retry caps for the
// portal form flow. Zero values fall back to the defaults in the
// scraper package.
type ScraperConfig struct {
	DetailsWaitMs      int `yaml:"detailsWaitMs"`
	FieldWaitMs        int `yaml:"fieldWaitMs"`
	CooldownWaitMs     int `yaml:"cooldownWaitMs"`
	MaxCaptchaAttempts int `yaml:"maxCaptchaAttempts"`
	MaxTimeoutAttempts int `yaml:"maxTimeoutAttempts"`
	MaxRefusedAttempts int `yaml:"maxRefusedAttempts"`
}

type WorkerConfig struct {
	MaxConcurrentJobs int `yaml:"maxConcurrentJobs"`
	PollIntervalMs    int `yaml:"pollIntervalMs"`
	FlushEvery        int `yaml:"flushEvery"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

// RobotsConfig controls the advisory robots.txt check in the
// start-scrape pre-flight. The portal form is an interactive flow, so
// the check only logs; it never blocks a job.
type RobotsConfig struct {
	Advisory bool `yaml:"advisory"`
}

// RetentionConfig controls TTL-like deletion of finished extraction
// rows so the jobs table does not grow without bound.
type RetentionConfig struct {
	Enabled                bool `yaml:"enabled"`
	CleanupIntervalMinutes int  `yaml:"cleanupIntervalMinutes"`
	ExtractionDays         int  `yaml:"extractionDays"`
}

// BootstrapDepartmentConfig seeds a department row at startup.
type BootstrapDepartmentConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type BootstrapConfig struct {
	Departments []BootstrapDepartmentConfig `yaml:"departments"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Browser   BrowserConfig   `yaml:"browser"`
	Captcha   CaptchaConfig   `yaml:"captcha"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Worker    WorkerConfig    `yaml:"worker"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Robots    RobotsConfig    `yaml:"robots"`
	Retention RetentionConfig `yaml:"retention"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	return &cfg
}
