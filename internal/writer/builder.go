// internal/writer/builder.go
package writer

import (
	"errors"
	"log/slog"

	cfg "github.com/tamzrod/powerlog/internal/config"
)

// Build creates and opens the sink configured by c.
// Assumes config has already passed validation.
func Build(c *cfg.Config, log *slog.Logger) (*CSVSink, error) {
	if c.LogPath == "" {
		return nil, errors.New("writer: log_path required")
	}

	s := NewCSVSink(c.LogPath, log)
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}
