package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ScoringConfig holds the tunable weights of the pair scorer.
type ScoringConfig struct {
	Base          float64       `env:"SCORE_BASE" envDefault:"40"`
	Recency       float64       `env:"SCORE_RECENCY_WEIGHT" envDefault:"25"`
	Engagement    float64       `env:"SCORE_ENGAGEMENT_WEIGHT" envDefault:"25"`
	PlatformBonus float64       `env:"SCORE_PLATFORM_BONUS" envDefault:"10"`
	RecencyWindow time.Duration `env:"SCORE_RECENCY_WINDOW" envDefault:"72h"`
	ViewsPerLike  float64       `env:"SCORE_VIEWS_PER_LIKE" envDefault:"10"`
}

// DefaultScoring mirrors the envDefault values above.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Base:          40,
		Recency:       25,
		Engagement:    25,
		PlatformBonus: 10,
		RecencyWindow: 72 * time.Hour,
		ViewsPerLike:  10,
	}
}

type MatchingConfig struct {
	Cooldown          time.Duration `env:"MATCHING_COOLDOWN" envDefault:"15m"`
	BattleDuration    time.Duration `env:"BATTLE_DURATION" envDefault:"72h"`
	DefaultMaxMatches int           `env:"MATCHING_DEFAULT_MAX" envDefault:"3"`
	Interval          time.Duration `env:"MATCHING_INTERVAL" envDefault:"15m"`
	ExpirySweep       time.Duration `env:"BATTLE_EXPIRY_SWEEP" envDefault:"1m"`
}

func DefaultMatching() MatchingConfig {
	return MatchingConfig{
		Cooldown:          15 * time.Minute,
		BattleDuration:    72 * time.Hour,
		DefaultMaxMatches: 3,
		Interval:          15 * time.Minute,
		ExpirySweep:       time.Minute,
	}
}

type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled reports whether uploads can be pushed to object storage.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.Bucket != ""
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	Debug      bool   `env:"LOG_DEBUG" envDefault:"false"`
}

type Config struct {
	Port           string   `env:"PORT" envDefault:"5300"`
	DatabaseURL    string   `env:"DATABASE_URL,required,notEmpty"`
	ServiceToken   string   `env:"BATTLE_SERVICE_TOKEN,required,notEmpty"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	VotePoints     int64    `env:"VOTE_POINTS" envDefault:"10"`

	Matching MatchingConfig
	Scoring  ScoringConfig
	R2       R2Config
	Log      LogConfig
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	if cfg.Matching.DefaultMaxMatches <= 0 {
		cfg.Matching.DefaultMaxMatches = 3
	}
	return &cfg, nil
}
