// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// BackendConfig holds settings for the review backend the engine
// talks to.
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// SimulatorConfig holds knobs for the load simulator.
type SimulatorConfig struct {
	NumReviewers     int
	NumArticles      int
	RunTime          time.Duration
	CommentFrequency float64
	RatingFrequency  float64
	MetricsAddr      string
}

// Config holds the complete application configuration
type Config struct {
	Backend   *BackendConfig
	Simulator *SimulatorConfig
	Debug     bool
}

// DefaultBackendConfig provides default backend settings
func DefaultBackendConfig() *BackendConfig {
	return &BackendConfig{
		BaseURL:        "http://localhost:8000",
		RequestTimeout: 10 * time.Second,
	}
}

// DefaultSimulatorConfig provides default simulator settings
func DefaultSimulatorConfig() *SimulatorConfig {
	return &SimulatorConfig{
		NumReviewers:     20,
		NumArticles:      5,
		RunTime:          30 * time.Second,
		CommentFrequency: 0.4,
		RatingFrequency:  0.2,
		MetricsAddr:      ":9190",
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env from the usual locations; silent failure when
	// none exists is fine.
	envLocations := []string{
		".env",
		"../../.env",
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		_ = godotenv.Load()
	}

	backend := DefaultBackendConfig()
	if url := os.Getenv("BACKEND_URL"); url != "" {
		backend.BaseURL = url
	}
	if timeoutStr := os.Getenv("REQUEST_TIMEOUT_SECONDS"); timeoutStr != "" {
		if seconds, err := strconv.Atoi(timeoutStr); err == nil && seconds > 0 {
			backend.RequestTimeout = time.Duration(seconds) * time.Second
		}
	}

	sim := DefaultSimulatorConfig()
	if n := envInt("SIM_REVIEWERS"); n > 0 {
		sim.NumReviewers = n
	}
	if n := envInt("SIM_ARTICLES"); n > 0 {
		sim.NumArticles = n
	}
	if n := envInt("SIM_RUNTIME_SECONDS"); n > 0 {
		sim.RunTime = time.Duration(n) * time.Second
	}
	if f := envFloat("SIM_COMMENT_FREQUENCY"); f > 0 {
		sim.CommentFrequency = f
	}
	if f := envFloat("SIM_RATING_FREQUENCY"); f > 0 {
		sim.RatingFrequency = f
	}
	if addr := os.Getenv("SIM_METRICS_ADDR"); addr != "" {
		sim.MetricsAddr = addr
	}

	config := &Config{
		Backend:   backend,
		Simulator: sim,
		Debug:     os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

func envInt(key string) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return 0
}

func envFloat(key string) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return 0
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
