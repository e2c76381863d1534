// Package hnswconfig loads runtime configuration for the HNSW demo and
// build tooling from environment variables and command-line flags,
// following the env-var-with-flag-override layering the teacher's
// internal/config package uses throughout.
package hnswconfig

import (
	"flag"
	"fmt"
	"os"
)

// Config holds the tunable parameters of a graph build and search
// session.
type Config struct {
	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel string

	// LogFormat is the log output format (json, text)
	LogFormat string

	// Dimension is the vector dimension every inserted vector must share.
	Dimension int

	// Similarity selects the scoring function: "dot", "euclidean", "cosine"
	Similarity string

	// Encoding selects the vector value shape: "float32" or "byte"
	Encoding string

	// HNSW holds the graph construction and search parameters.
	HNSW HNSWConfig
}

// HNSWConfig holds configuration for the HNSW index itself.
type HNSWConfig struct {
	// M is the number of bi-directional links per node at level 0 is 2M.
	// Range: 4-64, default 16. Higher M = better recall, more memory.
	M int

	// BeamWidth is the candidate list size used during insertion.
	// Default: 100.
	BeamWidth int

	// TopK is the default number of results a search returns.
	// Default: 10.
	TopK int

	// VisitLimit caps the number of nodes a search scores before
	// returning incomplete=true. 0 means unbounded. Default: 0.
	VisitLimit int

	// Parallelism is the number of worker goroutines BuildAsync uses.
	// Default: 0, which the demo CLI turns into max(3, runtime.NumCPU()).
	Parallelism int

	// Seed fixes the level-assignment RNG for reproducible builds.
	// Default: 42.
	Seed int64
}

// LoadConfig loads configuration from environment variables and
// command-line flags, with flags taking precedence.
func LoadConfig() *Config {
	cfg := &Config{
		LogLevel:   getEnvOrDefault("HNSW_LOG_LEVEL", "info"),
		LogFormat:  getEnvOrDefault("HNSW_LOG_FORMAT", "json"),
		Dimension:  getEnvInt("HNSW_DIMENSION", 128),
		Similarity: getEnvOrDefault("HNSW_SIMILARITY", "dot"),
		Encoding:   getEnvOrDefault("HNSW_ENCODING", "float32"),
		HNSW: HNSWConfig{
			M:           getEnvInt("HNSW_M", 16),
			BeamWidth:   getEnvInt("HNSW_BEAM_WIDTH", 100),
			TopK:        getEnvInt("HNSW_TOP_K", 10),
			VisitLimit:  getEnvInt("HNSW_VISIT_LIMIT", 0),
			Parallelism: getEnvInt("HNSW_PARALLELISM", 0),
			Seed:        getEnvInt64("HNSW_SEED", 42),
		},
	}

	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: 'debug', 'info', 'warn', 'error'")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: 'json' or 'text'")
	flag.IntVar(&cfg.Dimension, "dimension", cfg.Dimension, "Vector dimension")
	flag.StringVar(&cfg.Similarity, "similarity", cfg.Similarity, "Similarity: 'dot', 'euclidean', or 'cosine'")
	flag.StringVar(&cfg.Encoding, "encoding", cfg.Encoding, "Vector encoding: 'float32' or 'byte'")
	flag.IntVar(&cfg.HNSW.M, "m", cfg.HNSW.M, "Bi-directional links per node (level 0 uses 2M)")
	flag.IntVar(&cfg.HNSW.BeamWidth, "beam-width", cfg.HNSW.BeamWidth, "Candidate list size during insertion")
	flag.IntVar(&cfg.HNSW.TopK, "top-k", cfg.HNSW.TopK, "Number of search results to return")
	flag.IntVar(&cfg.HNSW.VisitLimit, "visit-limit", cfg.HNSW.VisitLimit, "Max nodes scored per search, 0=unbounded")
	flag.IntVar(&cfg.HNSW.Parallelism, "parallelism", cfg.HNSW.Parallelism, "Worker goroutines for BuildAsync, 0=max(3, NumCPU)")
	flag.Int64Var(&cfg.HNSW.Seed, "seed", cfg.HNSW.Seed, "Level-assignment RNG seed")

	flag.Parse()
	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result int64
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}
