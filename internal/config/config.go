package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"ND_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"ND_DB_MAX_CONNS" default:"8"`

	// Engine tuning. The similarity threshold was calibrated against the
	// suffix stemmer in internal/pipeline; changing either without
	// re-validating clustering outcomes is a calibration change.
	SimilarityThreshold float64 `envconfig:"ND_SIMILARITY_THRESHOLD" default:"0.32"`
	BreadthWeight       float64 `envconfig:"ND_BREADTH_WEIGHT" default:"3"`
	VolumeWeight        float64 `envconfig:"ND_VOLUME_WEIGHT" default:"1"`
	RecencyWeight       float64 `envconfig:"ND_RECENCY_WEIGHT" default:"0.5"`
	RecencyWindowHours  int     `envconfig:"ND_RECENCY_WINDOW_HOURS" default:"6"`
	CandidateLimit      int     `envconfig:"ND_CANDIDATE_LIMIT" default:"30"`
	RepresentativeCap   int     `envconfig:"ND_REPRESENTATIVE_CAP" default:"6"`
	RepresentativeFloor int     `envconfig:"ND_REPRESENTATIVE_FLOOR" default:"3"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("ND_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("ND_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("ND_DB_MIN_CONNS (%d) cannot exceed ND_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold >= 1 {
		return fmt.Errorf("ND_SIMILARITY_THRESHOLD must be in (0, 1)")
	}
	if c.RecencyWindowHours < 1 || c.RecencyWindowHours > 24 {
		return fmt.Errorf("ND_RECENCY_WINDOW_HOURS must be between 1 and 24")
	}
	if c.CandidateLimit < 1 {
		return fmt.Errorf("ND_CANDIDATE_LIMIT must be >= 1")
	}
	if c.RepresentativeFloor < 1 {
		return fmt.Errorf("ND_REPRESENTATIVE_FLOOR must be >= 1")
	}
	if c.RepresentativeCap < c.RepresentativeFloor {
		return fmt.Errorf("ND_REPRESENTATIVE_CAP (%d) cannot be below ND_REPRESENTATIVE_FLOOR (%d)", c.RepresentativeCap, c.RepresentativeFloor)
	}
	return nil
}
