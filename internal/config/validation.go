package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for out-of-range or missing values.
// It returns a sentinel-wrapped error describing the first problem found.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	return c.validatePostgres()
}

func (c *Config) validateModels() error {
	for _, m := range []struct{ name, value string }{
		{"small_model", c.SmallModel},
		{"big_model", c.BigModel},
		{"embedder_model", c.EmbedderModel},
	} {
		if strings.TrimSpace(m.value) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidModelName, m.name)
		}
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %.2f (must be within [0, 2])", ErrInvalidTemperature, c.Temperature)
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.ChunkSize < 100 || c.ChunkSize > 8192 {
		return fmt.Errorf("%w: chunk_size %d (must be within [100, 8192])", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d (must be within [0, chunk_size))", ErrInvalidChunking, c.ChunkOverlap)
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: top_k %d (must be within [1, 50])", ErrInvalidRetrieval, c.TopK)
	}
	for _, th := range []struct {
		name  string
		value float32
	}{
		{"chunk_threshold", c.ChunkThreshold},
		{"summary_threshold", c.SummaryThreshold},
	} {
		if th.value < 0 || th.value > 1 {
			return fmt.Errorf("%w: %s %.2f (must be within [0, 1])", ErrInvalidRetrieval, th.name, th.value)
		}
	}
	if c.HistoryWindow < 1 || c.HistoryWindow > 100 {
		return fmt.Errorf("%w: history_window %d (must be within [1, 100])", ErrInvalidRetrieval, c.HistoryWindow)
	}
	if c.SearchMaxResults < 1 || c.SearchMaxResults > 10 {
		return fmt.Errorf("%w: search_max_results %d (must be within [1, 10])", ErrInvalidRetrieval, c.SearchMaxResults)
	}
	return nil
}

func (c *Config) validatePostgres() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidPostgres, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgres)
	}

	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: ssl mode %q", ErrInvalidPostgres, c.PostgresSSLMode)
	}
	return nil
}
